package services

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"sync"
	"testing"

	"pgregory.net/rapid"

	"site-deploy-service/internal/core/domain"
	"site-deploy-service/internal/testutil"
)

// memArchives tracks extracted version directories and latest pointers in
// memory. Archives whose content is "broken" fail to extract.
type memArchives struct {
	mu       sync.Mutex
	dirs     map[string]bool
	pointers map[string]string
}

func newMemArchives() *memArchives {
	return &memArchives{dirs: map[string]bool{}, pointers: map[string]string{}}
}

func (m *memArchives) DeploymentPath(subdomain string) string { return path.Join("/", subdomain) }
func (m *memArchives) VersionPath(subdomain, version string) string {
	return path.Join("/", subdomain, version)
}

func (m *memArchives) Extract(ctx context.Context, archive io.Reader, destination string) error {
	body, err := io.ReadAll(archive)
	if err != nil {
		return err
	}
	if string(body) == "broken" {
		return domain.ErrUnsupportedArchive
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[destination] = true
	return nil
}

func (m *memArchives) Delete(ctx context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for dir := range m.dirs {
		if dir == p || strings.HasPrefix(dir, p+"/") {
			delete(m.dirs, dir)
		}
	}
	if sub := strings.TrimPrefix(p, "/"); !strings.Contains(sub, "/") {
		delete(m.pointers, sub)
	}
	return nil
}

func (m *memArchives) UpdatePointer(ctx context.Context, subdomain, version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirs[m.VersionPath(subdomain, version)] {
		return errors.New("version directory missing")
	}
	m.pointers[subdomain] = version
	return nil
}

// Any sequence of uploads and deletions keeps exactly one active version per
// deployment, with the latest pointer and the version directories matching
// the rows.
func TestLifecycle_SingleActiveVersionProperty(t *testing.T) {
	labels := []string{"v1", "v2", "v3", "v4"}
	sites := []string{"alpha", "beta"}

	rapid.Check(t, func(rt *rapid.T) {
		store := testutil.NewMemoryStore()
		archives := newMemArchives()
		registry := NewDeploymentService(store)
		svc := NewLifecycleService(store, registry, archives)
		ctx := context.Background()

		content := func(rt *rapid.T) io.Reader {
			if rapid.IntRange(0, 9).Draw(rt, "broken") == 0 {
				return strings.NewReader("broken")
			}
			return strings.NewReader("site")
		}

		rt.Repeat(map[string]func(*rapid.T){
			"upload": func(rt *rapid.T) {
				site := rapid.SampledFrom(sites).Draw(rt, "site")
				label := rapid.SampledFrom(labels).Draw(rt, "label")

				d, err := registry.Lookup(ctx, domain.LookupBySubdomain, site)
				if errors.Is(err, domain.ErrNotFound) {
					_, err = svc.InitialUpload(ctx, site, site, label, content(rt))
					if err != nil && !errors.Is(err, domain.ErrUnsupportedArchive) {
						rt.Fatalf("initial upload: %v", err)
					}
					return
				}
				if err != nil {
					rt.Fatalf("lookup: %v", err)
				}

				_, err = svc.NewVersionUpload(ctx, d, label, content(rt))
				switch {
				case err == nil:
				case errors.Is(err, domain.ErrVersionConflict) && d.HasVersion(label):
				case errors.Is(err, domain.ErrUnsupportedArchive):
				default:
					rt.Fatalf("upload %s/%s: %v", site, label, err)
				}
			},
			"delete": func(rt *rapid.T) {
				site := rapid.SampledFrom(sites).Draw(rt, "site")
				label := rapid.SampledFrom(labels).Draw(rt, "label")

				d, err := registry.Lookup(ctx, domain.LookupBySubdomain, site)
				if errors.Is(err, domain.ErrNotFound) {
					return
				}
				if err != nil {
					rt.Fatalf("lookup: %v", err)
				}

				err = svc.DeleteVersion(ctx, d, label)
				if err != nil && !(errors.Is(err, domain.ErrVersionNotFound) && !d.HasVersion(label)) {
					rt.Fatalf("delete %s/%s: %v", site, label, err)
				}
			},
			"": func(rt *rapid.T) {
				deployments, err := registry.ListAll(ctx)
				if err != nil {
					rt.Fatalf("list: %v", err)
				}
				seen := map[string]bool{}
				for _, d := range deployments {
					seen[d.Subdomain] = true
					if len(d.Versions) == 0 {
						rt.Fatalf("deployment %s has no versions", d.Subdomain)
					}
					active := 0
					for _, v := range d.Versions {
						if v.Active {
							active++
						}
						if !archives.dirs[archives.VersionPath(d.Subdomain, v.Version)] {
							rt.Fatalf("version %s/%s has no directory", d.Subdomain, v.Version)
						}
					}
					if active != 1 {
						rt.Fatalf("deployment %s has %d active versions", d.Subdomain, active)
					}
					if got := archives.pointers[d.Subdomain]; got != d.ActiveVersion().Version {
						rt.Fatalf("deployment %s latest points at %q, active is %q", d.Subdomain, got, d.ActiveVersion().Version)
					}
				}
				for dir := range archives.dirs {
					if !seen[strings.Split(strings.TrimPrefix(dir, "/"), "/")[0]] {
						rt.Fatalf("orphan directory %s", dir)
					}
				}
			},
		})
	})
}
