package filesystem

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"site-deploy-service/internal/core/domain"
)

type archiveFormat int

const (
	formatUnknown archiveFormat = iota
	formatZip
	formatGzip
	formatTar
)

// tar headers carry the "ustar" magic at offset 257.
const tarMagicOffset = 257

func detectFormat(header []byte) archiveFormat {
	switch {
	case bytes.HasPrefix(header, []byte("PK\x03\x04")), bytes.HasPrefix(header, []byte("PK\x05\x06")):
		return formatZip
	case bytes.HasPrefix(header, []byte{0x1f, 0x8b}):
		return formatGzip
	case len(header) >= tarMagicOffset+5 && string(header[tarMagicOffset:tarMagicOffset+5]) == "ustar":
		return formatTar
	default:
		return formatUnknown
	}
}

func extract(ctx context.Context, archive io.Reader, dest string) error {
	br := bufio.NewReaderSize(archive, 4096)
	header, err := br.Peek(tarMagicOffset + 5)
	if err != nil && !errors.Is(err, io.EOF) {
		return &domain.IOError{Op: "read archive", Path: dest, Err: err}
	}

	switch detectFormat(header) {
	case formatZip:
		return extractZip(ctx, br, dest)
	case formatGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrUnsupportedArchive, err)
		}
		defer gz.Close()
		return extractTar(ctx, gz, dest)
	case formatTar:
		return extractTar(ctx, br, dest)
	default:
		return domain.ErrUnsupportedArchive
	}
}

func extractTar(ctx context.Context, r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return &domain.IOError{Op: "extract", Path: dest, Err: err}
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if malformed(err) {
				return fmt.Errorf("%w: %v", domain.ErrUnsupportedArchive, err)
			}
			return &domain.IOError{Op: "read tar entry", Path: dest, Err: err}
		}

		target, err := entryPath(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := mkdir(target); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(ctx, target, tr, hdr.FileInfo().Mode()); err != nil {
				return err
			}
		default:
			// links and devices are not published
		}
	}
}

func extractZip(ctx context.Context, r io.Reader, dest string) error {
	// zip needs random access; uploads are already size-capped upstream.
	data, err := io.ReadAll(r)
	if err != nil {
		return &domain.IOError{Op: "read archive", Path: dest, Err: err}
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnsupportedArchive, err)
	}

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return &domain.IOError{Op: "extract", Path: dest, Err: err}
		}

		target, err := entryPath(dest, f.Name)
		if err != nil {
			return err
		}

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := mkdir(target); err != nil {
				return err
			}
		case mode.IsRegular():
			rc, err := f.Open()
			if err != nil {
				return &domain.IOError{Op: "open zip entry", Path: target, Err: err}
			}
			err = writeFile(ctx, target, rc, mode)
			rc.Close()
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// entryPath maps an archive entry name to a path below dest, rejecting
// absolute names and ".." traversal.
func entryPath(dest, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsafeArchivePath, name)
	}
	return filepath.Join(dest, clean), nil
}

func mkdir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return &domain.IOError{Op: "mkdir", Path: path, Err: err}
	}
	return nil
}

func writeFile(ctx context.Context, path string, r io.Reader, mode os.FileMode) error {
	if err := mkdir(filepath.Dir(path)); err != nil {
		return err
	}

	perm := mode.Perm() | 0o644
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return &domain.IOError{Op: "create file", Path: path, Err: err}
	}
	if _, err := io.Copy(f, &contextReader{ctx: ctx, r: r}); err != nil {
		f.Close()
		if malformed(err) {
			return fmt.Errorf("%w: %v", domain.ErrUnsupportedArchive, err)
		}
		return &domain.IOError{Op: "write file", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &domain.IOError{Op: "close file", Path: path, Err: err}
	}
	return nil
}

// malformed reports whether err comes from a corrupt or truncated archive
// stream rather than from the disk.
func malformed(err error) bool {
	var corrupt flate.CorruptInputError
	return errors.Is(err, tar.ErrHeader) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, gzip.ErrHeader) ||
		errors.Is(err, gzip.ErrChecksum) ||
		errors.As(err, &corrupt)
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
