package testutil

import (
	"context"
	"io"
	"path"

	"github.com/stretchr/testify/mock"
)

// MockArchiveStore is a mock of ArchiveStore. Path helpers are not mocked
// and resolve below MockHostingRoot.
type MockArchiveStore struct {
	mock.Mock
}

const MockHostingRoot = "/srv/sites"

func (m *MockArchiveStore) DeploymentPath(subdomain string) string {
	return path.Join(MockHostingRoot, subdomain)
}

func (m *MockArchiveStore) VersionPath(subdomain, version string) string {
	return path.Join(MockHostingRoot, subdomain, version)
}

func (m *MockArchiveStore) Extract(ctx context.Context, archive io.Reader, destination string) error {
	args := m.Called(ctx, archive, destination)
	return args.Error(0)
}

func (m *MockArchiveStore) Delete(ctx context.Context, p string) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockArchiveStore) UpdatePointer(ctx context.Context, subdomain, version string) error {
	args := m.Called(ctx, subdomain, version)
	return args.Error(0)
}
