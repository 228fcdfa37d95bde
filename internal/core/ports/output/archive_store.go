package ports

import (
	"context"
	"io"
)

// ArchiveStore owns the hosting directory tree. Calls are never retried.
type ArchiveStore interface {
	// DeploymentPath is the directory holding every version of a deployment.
	DeploymentPath(subdomain string) string
	// VersionPath is the directory a single version is extracted into.
	VersionPath(subdomain, version string) string

	Extract(ctx context.Context, archive io.Reader, destination string) error
	Delete(ctx context.Context, path string) error
	// UpdatePointer repoints the deployment's "latest" link at version.
	UpdatePointer(ctx context.Context, subdomain, version string) error
}
