package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"site-deploy-service/internal/core/domain"
	output "site-deploy-service/internal/core/ports/output"
)

// LatestLink is the name of the symlink pointing at the active version.
const LatestLink = "latest"

// NewArchiveStore serves deployments out of root:
//
//	root/<subdomain>/<version>/...
//	root/<subdomain>/latest -> <version>
func NewArchiveStore(root string) (*ArchiveStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve hosting root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, &domain.IOError{Op: "create hosting root", Path: abs, Err: err}
	}
	return &ArchiveStore{root: abs}, nil
}

// ArchiveStore is the on-disk implementation of output.ArchiveStore.
type ArchiveStore struct {
	root string
}

var _ output.ArchiveStore = (*ArchiveStore)(nil)

func (s *ArchiveStore) Root() string {
	return s.root
}

func (s *ArchiveStore) DeploymentPath(subdomain string) string {
	return filepath.Join(s.root, subdomain)
}

func (s *ArchiveStore) VersionPath(subdomain, version string) string {
	return filepath.Join(s.root, subdomain, version)
}

// Extract unpacks archive into destination, replacing anything already
// there. The archive format is detected from its leading bytes.
func (s *ArchiveStore) Extract(ctx context.Context, archive io.Reader, destination string) error {
	if err := s.within(destination); err != nil {
		return err
	}

	if err := os.RemoveAll(destination); err != nil {
		return &domain.IOError{Op: "clear destination", Path: destination, Err: err}
	}
	if err := os.MkdirAll(destination, 0o755); err != nil {
		return &domain.IOError{Op: "create destination", Path: destination, Err: err}
	}

	if err := extract(ctx, archive, destination); err != nil {
		return err
	}

	log.WithField("path", destination).Debug("archive extracted")
	return nil
}

// Delete removes path recursively. A missing path is not an error.
func (s *ArchiveStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return &domain.IOError{Op: "delete", Path: path, Err: err}
	}
	if err := s.within(path); err != nil {
		return err
	}
	if err := os.RemoveAll(path); err != nil {
		return &domain.IOError{Op: "delete", Path: path, Err: err}
	}
	return nil
}

// UpdatePointer swaps the latest link to version with a rename, so readers
// see either the old or the new target and never a missing link.
func (s *ArchiveStore) UpdatePointer(ctx context.Context, subdomain, version string) error {
	link := filepath.Join(s.DeploymentPath(subdomain), LatestLink)

	if err := ctx.Err(); err != nil {
		return &domain.IOError{Op: "update pointer", Path: link, Err: err}
	}

	info, err := os.Stat(s.VersionPath(subdomain, version))
	if err != nil {
		return &domain.IOError{Op: "update pointer", Path: link, Err: err}
	}
	if !info.IsDir() {
		return &domain.IOError{Op: "update pointer", Path: link, Err: fmt.Errorf("%s is not a directory", version)}
	}

	tmp := link + ".tmp-" + uuid.NewString()
	if err := os.Symlink(version, tmp); err != nil {
		return &domain.IOError{Op: "update pointer", Path: link, Err: err}
	}
	if err := os.Rename(tmp, link); err != nil {
		_ = os.Remove(tmp)
		return &domain.IOError{Op: "update pointer", Path: link, Err: err}
	}
	return nil
}

// Latest resolves the latest link of a deployment to an absolute path.
func (s *ArchiveStore) Latest(subdomain string) (string, error) {
	link := filepath.Join(s.DeploymentPath(subdomain), LatestLink)
	target, err := os.Readlink(link)
	if err != nil {
		return "", &domain.IOError{Op: "read pointer", Path: link, Err: err}
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(link), target)
	}
	return target, nil
}

// within rejects paths outside the hosting root and the root itself.
func (s *ArchiveStore) within(path string) error {
	rel, err := filepath.Rel(s.root, filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return &domain.IOError{Op: "resolve", Path: path, Err: fmt.Errorf("path is outside hosting root %s", s.root)}
	}
	return nil
}
