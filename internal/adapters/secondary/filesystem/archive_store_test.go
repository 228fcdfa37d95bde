package filesystem

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-deploy-service/internal/core/domain"
)

func tarBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		body := files[name]
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func tarGzBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(tarBytes(t, files))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newStore(t *testing.T) *ArchiveStore {
	t.Helper()
	s, err := NewArchiveStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

// ============================================================================
// Extract
// ============================================================================

func TestExtract_Formats(t *testing.T) {
	files := map[string]string{
		"index.html":     "<h1>hello</h1>",
		"assets/app.css": "body{}",
	}

	tests := []struct {
		name    string
		archive []byte
	}{
		{name: "tar.gz", archive: tarGzBytes(t, files)},
		{name: "tar", archive: tarBytes(t, files)},
		{name: "zip", archive: zipBytes(t, files)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			dest := s.VersionPath("blog", "v1")

			err := s.Extract(context.Background(), bytes.NewReader(tt.archive), dest)
			require.NoError(t, err)

			assert.Equal(t, "<h1>hello</h1>", readFile(t, filepath.Join(dest, "index.html")))
			assert.Equal(t, "body{}", readFile(t, filepath.Join(dest, "assets", "app.css")))
		})
	}
}

func TestExtract_ReplacesExistingDestination(t *testing.T) {
	s := newStore(t)
	dest := s.VersionPath("blog", "v1")
	require.NoError(t, os.MkdirAll(dest, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "stale.html"), []byte("old"), 0o644))

	err := s.Extract(context.Background(), bytes.NewReader(tarGzBytes(t, map[string]string{"index.html": "new"})), dest)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dest, "stale.html"))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, "new", readFile(t, filepath.Join(dest, "index.html")))
}

func TestExtract_RejectsTraversal(t *testing.T) {
	s := newStore(t)
	dest := s.VersionPath("blog", "v1")

	archive := tarBytes(t, map[string]string{"../../escape.txt": "nope"})
	err := s.Extract(context.Background(), bytes.NewReader(archive), dest)

	assert.ErrorIs(t, err, domain.ErrUnsafeArchivePath)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, statErr := os.Stat(filepath.Join(s.Root(), "escape.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtract_Unsupported(t *testing.T) {
	s := newStore(t)

	err := s.Extract(context.Background(), bytes.NewReader([]byte("definitely not an archive")), s.VersionPath("blog", "v1"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedArchive)
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(data)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestExtract_MalformedStreams(t *testing.T) {
	full := tarBytes(t, map[string]string{"index.html": strings.Repeat("a", 2048)})
	gzipped := tarGzBytes(t, map[string]string{"index.html": strings.Repeat("a", 2048)})

	tests := []struct {
		name    string
		archive []byte
	}{
		{name: "gzip of plain text", archive: gzipBytes(t, []byte("hello, this is not a tar"))},
		{name: "gzip of junk blocks", archive: gzipBytes(t, bytes.Repeat([]byte("x"), 1024))},
		{name: "tar cut mid entry", archive: full[:512+100]},
		{name: "tar.gz cut short", archive: gzipped[:len(gzipped)/2]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)

			err := s.Extract(context.Background(), bytes.NewReader(tt.archive), s.VersionPath("blog", "v1"))
			assert.ErrorIs(t, err, domain.ErrUnsupportedArchive)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.NotErrorIs(t, err, domain.ErrIO)
		})
	}
}

func TestExtract_CancelledContext(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Extract(ctx, bytes.NewReader(tarGzBytes(t, map[string]string{"index.html": "x"})), s.VersionPath("blog", "v1"))
	assert.ErrorIs(t, err, domain.ErrIO)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtract_OutsideRoot(t *testing.T) {
	s := newStore(t)

	err := s.Extract(context.Background(), bytes.NewReader(tarBytes(t, map[string]string{"a": "b"})), t.TempDir())
	assert.ErrorIs(t, err, domain.ErrIO)
}

// ============================================================================
// Pointer
// ============================================================================

func TestUpdatePointer_Swaps(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Extract(ctx, bytes.NewReader(tarBytes(t, map[string]string{"index.html": "one"})), s.VersionPath("blog", "v1")))
	require.NoError(t, s.Extract(ctx, bytes.NewReader(tarBytes(t, map[string]string{"index.html": "two"})), s.VersionPath("blog", "v2")))

	require.NoError(t, s.UpdatePointer(ctx, "blog", "v1"))
	latest, err := s.Latest("blog")
	require.NoError(t, err)
	assert.Equal(t, s.VersionPath("blog", "v1"), latest)

	require.NoError(t, s.UpdatePointer(ctx, "blog", "v2"))
	latest, err = s.Latest("blog")
	require.NoError(t, err)
	assert.Equal(t, s.VersionPath("blog", "v2"), latest)
	assert.Equal(t, "two", readFile(t, filepath.Join(s.DeploymentPath("blog"), LatestLink, "index.html")))

	entries, err := os.ReadDir(s.DeploymentPath("blog"))
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temporary links left behind")
}

func TestUpdatePointer_MissingVersion(t *testing.T) {
	s := newStore(t)

	err := s.UpdatePointer(context.Background(), "blog", "v9")
	assert.ErrorIs(t, err, domain.ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// ============================================================================
// Delete
// ============================================================================

func TestDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Extract(ctx, bytes.NewReader(tarBytes(t, map[string]string{"index.html": "x"})), s.VersionPath("blog", "v1")))

	require.NoError(t, s.Delete(ctx, s.DeploymentPath("blog")))
	_, err := os.Stat(s.DeploymentPath("blog"))
	assert.True(t, os.IsNotExist(err))

	// already gone
	assert.NoError(t, s.Delete(ctx, s.DeploymentPath("blog")))
}

func TestDelete_RefusesRootAndOutside(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Delete(ctx, s.Root()), domain.ErrIO)
	assert.ErrorIs(t, s.Delete(ctx, filepath.Dir(s.Root())), domain.ErrIO)
	assert.ErrorIs(t, s.Delete(ctx, filepath.Join(s.Root(), "..", "elsewhere")), domain.ErrIO)
}
