package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/docredact/internal/model"
)

// Default permissions for published files and created directories.
const (
	DefaultFileMode os.FileMode = 0o600
	DefaultDirMode  os.FileMode = 0o750
)

// WriteFileAtomic publishes data at path through a temporary file in the
// same directory. Missing parent directories are created.
func WriteFileAtomic(ctx context.Context, path string, data []byte, perm os.FileMode) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrIOFailure, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DefaultDirMode); err != nil {
		return fmt.Errorf("%w: failed to create directory: %w", model.ErrIOFailure, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: failed to create temporary file: %w", model.ErrIOFailure, err)
	}
	tmpPath := tmp.Name()

	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: failed to write %s: %w", model.ErrIOFailure, filepath.Base(path), err)
	}

	if err := tmp.Chmod(perm); err != nil {
		return fail(err)
	}
	if _, err := io.Copy(tmp, readerWithCtx(ctx, bytes.NewReader(data))); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: failed to close temporary file: %w", model.ErrIOFailure, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: failed to publish %s: %w", model.ErrIOFailure, filepath.Base(path), err)
	}

	// Best effort: the rename is durable only once the directory is synced.
	_ = syncDir(dir)
	return nil
}

// ReadFile reads path, checking ctx between reads.
func ReadFile(ctx context.Context, path string) ([]byte, error) {
	f, err := os.Open(path) //nolint:gosec // path is built by the caller from a validated key or a CLI argument
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", model.ErrNotFound, filepath.Base(path))
		}
		return nil, fmt.Errorf("%w: %w", model.ErrIOFailure, err)
	}
	defer f.Close()

	data, err := io.ReadAll(readerWithCtx(ctx, f))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", model.ErrIOFailure, filepath.Base(path), err)
	}
	return data, nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir) //nolint:gosec // directory of a file we just wrote
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// readerWithCtx checks ctx before every Read.
func readerWithCtx(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
