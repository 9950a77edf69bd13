package previews

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/JaimeStill/lineage/internal/forensics"
)

type entry struct {
	data        []byte
	contentType string
}

// Memory keeps previews in process memory.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	logger  *slog.Logger
}

func NewMemory(logger *slog.Logger) *Memory {
	return &Memory{
		entries: make(map[string]entry),
		logger:  logger,
	}
}

func (m *Memory) Acquire(ctx context.Context, file forensics.File) (string, error) {
	if !file.IsImage() {
		return "", ErrNotImage
	}

	id := uuid.NewString()
	m.mu.Lock()
	m.entries[id] = entry{data: file.Data, contentType: file.MediaType()}
	m.mu.Unlock()

	m.logger.DebugContext(ctx, "preview acquired", "preview", id, "bytes", len(file.Data))
	return id, nil
}

func (m *Memory) Release(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return ErrNotFound
	}
	delete(m.entries, id)

	m.logger.DebugContext(ctx, "preview released", "preview", id)
	return nil
}

func (m *Memory) Open(_ context.Context, id string) (io.ReadCloser, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, "", ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(e.data)), e.contentType, nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) Close(ctx context.Context) error {
	m.mu.Lock()
	ids := slices.Collect(maps.Keys(m.entries))
	m.mu.Unlock()

	return closeAll(ctx, m, ids)
}
