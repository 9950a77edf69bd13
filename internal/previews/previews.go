// Package previews holds the image bytes displayed beside a session or a
// queue item. Each handle returned by Acquire is released exactly once; a
// second Release of the same handle reports ErrNotFound.
package previews

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/JaimeStill/lineage/internal/forensics"
	"github.com/JaimeStill/lineage/pkg/storage"
)

// Store issues and releases preview handles.
type Store interface {
	// Acquire stores file and returns its handle. Non-image files fail with
	// ErrNotImage.
	Acquire(ctx context.Context, file forensics.File) (string, error)
	// Release frees the handle.
	Release(ctx context.Context, id string) error
	// Open returns the preview bytes and content type. The caller closes the body.
	Open(ctx context.Context, id string) (io.ReadCloser, string, error)
	// Len reports the number of outstanding handles.
	Len() int
	// Close releases every outstanding handle.
	Close(ctx context.Context) error
}

// New creates the Store selected by cfg. blobs is required for the blob
// backend and ignored otherwise.
func New(cfg *Config, blobs storage.System, logger *slog.Logger) (Store, error) {
	logger = logger.With("system", "previews", "backend", cfg.Backend)

	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemory(logger), nil
	case BackendBlob:
		if blobs == nil {
			return nil, errors.New("blob backend requires storage")
		}
		return NewBlob(blobs, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// URL returns the path a browser fetches the preview from.
func URL(basePath, id string) string {
	if id == "" {
		return ""
	}
	return basePath + "/previews/" + id
}

func closeAll(ctx context.Context, s Store, ids []string) error {
	var errs []error
	for _, id := range ids {
		if err := s.Release(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
