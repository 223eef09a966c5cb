package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/docredact/internal/model"
)

// ErrInvalidKey is returned for keys that would escape the blob directory.
var ErrInvalidKey = errors.New("invalid blob key")

// fallbackName replaces an upload name that sanitizes to nothing.
const fallbackName = "document.docx"

// Blobs stores uploaded originals as flat files under a root directory.
type Blobs struct {
	root    string
	timeout time.Duration
	logger  *slog.Logger
}

// BlobOption configures Blobs.
type BlobOption func(*Blobs)

// WithTimeout bounds every Get, Put and Delete. Zero disables the bound.
func WithTimeout(d time.Duration) BlobOption {
	return func(b *Blobs) {
		b.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) BlobOption {
	return func(b *Blobs) {
		b.logger = logger
	}
}

// NewBlobs creates the root directory if needed and returns the store.
func NewBlobs(root string, opts ...BlobOption) (*Blobs, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%w: blob directory is empty", model.ErrIOFailure)
	}
	if err := os.MkdirAll(root, DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: failed to create blob directory: %w", model.ErrIOFailure, err)
	}

	b := &Blobs{root: root}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b, nil
}

// Root returns the blob directory.
func (b *Blobs) Root() string {
	return b.root
}

// Put stores data under key atomically, replacing any previous blob.
func (b *Blobs) Put(ctx context.Context, key string, data []byte) error {
	path, err := b.path(key)
	if err != nil {
		return err
	}

	ctx, cancel := b.bound(ctx)
	defer cancel()

	if err := WriteFileAtomic(ctx, path, data, DefaultFileMode); err != nil {
		return err
	}
	b.logger.Debug("blob stored", "key", key, "size", len(data))
	return nil
}

// Get returns the blob stored under key. A missing blob fails with
// model.ErrNotFound.
func (b *Blobs) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := b.path(key)
	if err != nil {
		return nil, err
	}

	ctx, cancel := b.bound(ctx)
	defer cancel()

	return ReadFile(ctx, path)
}

// Delete removes the blob. Deleting a missing blob is not an error.
func (b *Blobs) Delete(ctx context.Context, key string) error {
	path, err := b.path(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrIOFailure, err)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: failed to delete blob: %w", model.ErrIOFailure, err)
	}
	b.logger.Debug("blob deleted", "key", key)
	return nil
}

func (b *Blobs) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

// path maps a key to a file directly under root.
func (b *Blobs) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || key != filepath.Base(key) || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(b.root, key), nil
}

// NewKey names a stored original as <unix seconds>_<8 hex chars>_<name>,
// where name is originalName reduced to a safe file name.
func NewKey(originalName string, now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d_%s_%s", now.Unix(), id, SafeName(originalName))
}

// SafeName reduces an uploaded file name to ASCII letters, digits, dots,
// dashes and underscores. Whitespace becomes an underscore; leading dots
// are dropped so the result can never be hidden or relative.
func SafeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))

	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		case r == ' ' || r == '\t':
			sb.WriteByte('_')
		}
	}

	out := strings.TrimLeft(sb.String(), "._")
	if out == "" {
		return fallbackName
	}
	return out
}
