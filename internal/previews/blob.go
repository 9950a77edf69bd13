package previews

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/JaimeStill/lineage/internal/forensics"
	"github.com/JaimeStill/lineage/pkg/storage"
)

// Blob keeps previews in blob storage. Outstanding handles are tracked
// locally so a handle is only ever released once.
type Blob struct {
	blobs   storage.System
	mu      sync.Mutex
	handles map[string]struct{}
	logger  *slog.Logger
}

func NewBlob(blobs storage.System, logger *slog.Logger) *Blob {
	return &Blob{
		blobs:   blobs,
		handles: make(map[string]struct{}),
		logger:  logger,
	}
}

func (b *Blob) Acquire(ctx context.Context, file forensics.File) (string, error) {
	if !file.IsImage() {
		return "", ErrNotImage
	}

	id := uuid.NewString()
	if err := b.blobs.Put(ctx, id, bytes.NewReader(file.Data), file.MediaType()); err != nil {
		return "", fmt.Errorf("store preview: %w", err)
	}

	b.mu.Lock()
	b.handles[id] = struct{}{}
	b.mu.Unlock()

	b.logger.DebugContext(ctx, "preview acquired", "preview", id, "bytes", len(file.Data))
	return id, nil
}

func (b *Blob) Release(ctx context.Context, id string) error {
	b.mu.Lock()
	if _, ok := b.handles[id]; !ok {
		b.mu.Unlock()
		return ErrNotFound
	}
	delete(b.handles, id)
	b.mu.Unlock()

	if err := b.blobs.Remove(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("remove preview %s: %w", id, err)
	}

	b.logger.DebugContext(ctx, "preview released", "preview", id)
	return nil
}

func (b *Blob) Open(ctx context.Context, id string) (io.ReadCloser, string, error) {
	b.mu.Lock()
	_, ok := b.handles[id]
	b.mu.Unlock()
	if !ok {
		return nil, "", ErrNotFound
	}

	body, contentType, err := b.blobs.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", ErrNotFound
	}
	return body, contentType, err
}

func (b *Blob) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handles)
}

func (b *Blob) Close(ctx context.Context) error {
	b.mu.Lock()
	ids := slices.Collect(maps.Keys(b.handles))
	b.mu.Unlock()

	return closeAll(ctx, b, ids)
}
