package previews_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/JaimeStill/lineage/internal/forensics"
	"github.com/JaimeStill/lineage/internal/previews"
	"github.com/JaimeStill/lineage/pkg/lifecycle"
	"github.com/JaimeStill/lineage/pkg/storage"
)

var png = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type blobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	removed int
}

func newBlobs() *blobs {
	return &blobs{objects: map[string][]byte{}, types: map[string]string{}}
}

func (b *blobs) Start(*lifecycle.Coordinator) error { return nil }

func (b *blobs) Put(_ context.Context, key string, r io.Reader, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	b.types[key] = contentType
	return nil
}

func (b *blobs) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, "", storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), b.types[key], nil
}

func (b *blobs) Remove(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[key]; !ok {
		return storage.ErrNotFound
	}
	delete(b.objects, key)
	b.removed++
	return nil
}

func stores(t *testing.T) map[string]previews.Store {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	blob, err := previews.New(&previews.Config{Backend: previews.BackendBlob}, newBlobs(), logger)
	if err != nil {
		t.Fatal(err)
	}

	return map[string]previews.Store{
		"memory": previews.NewMemory(logger),
		"blob":   blob,
	}
}

func TestAcquireOpenRelease(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			id, err := store.Acquire(ctx, forensics.File{Name: "a.png", Data: png})
			if err != nil {
				t.Fatal(err)
			}
			if store.Len() != 1 {
				t.Errorf("len = %d, want 1", store.Len())
			}

			body, contentType, err := store.Open(ctx, id)
			if err != nil {
				t.Fatal(err)
			}
			data, _ := io.ReadAll(body)
			body.Close()

			if !bytes.Equal(data, png) {
				t.Error("preview bytes differ")
			}
			if contentType != "image/png" {
				t.Errorf("content type = %q, want image/png", contentType)
			}

			if err := store.Release(ctx, id); err != nil {
				t.Fatal(err)
			}
			if err := store.Release(ctx, id); !errors.Is(err, previews.ErrNotFound) {
				t.Errorf("second release: err = %v, want ErrNotFound", err)
			}
			if _, _, err := store.Open(ctx, id); !errors.Is(err, previews.ErrNotFound) {
				t.Errorf("open after release: err = %v, want ErrNotFound", err)
			}
			if store.Len() != 0 {
				t.Errorf("len = %d, want 0", store.Len())
			}
		})
	}
}

func TestAcquireRejectsNonImage(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Acquire(ctx, forensics.File{Name: "notes.txt", ContentType: "text/plain", Data: []byte("hi")})
			if !errors.Is(err, previews.ErrNotImage) {
				t.Errorf("err = %v, want ErrNotImage", err)
			}
			if store.Len() != 0 {
				t.Error("rejected file was stored")
			}
		})
	}
}

func TestCloseReleasesOutstanding(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for range 3 {
				if _, err := store.Acquire(ctx, forensics.File{Data: png}); err != nil {
					t.Fatal(err)
				}
			}

			if err := store.Close(ctx); err != nil {
				t.Fatal(err)
			}
			if store.Len() != 0 {
				t.Errorf("len = %d after close, want 0", store.Len())
			}
		})
	}
}

func TestBlobReleaseRemovesObject(t *testing.T) {
	ctx := context.Background()
	b := newBlobs()
	store := previews.NewBlob(b, slog.New(slog.DiscardHandler))

	id, err := store.Acquire(ctx, forensics.File{Data: png})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Release(ctx, id); err != nil {
		t.Fatal(err)
	}
	_ = store.Release(ctx, id)

	if b.removed != 1 {
		t.Errorf("blob removed %d times, want 1", b.removed)
	}
}

func TestNew(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	if _, err := previews.New(&previews.Config{Backend: previews.BackendBlob}, nil, logger); err == nil {
		t.Error("blob backend without storage should fail")
	}
	if _, err := previews.New(&previews.Config{Backend: "disk"}, nil, logger); !errors.Is(err, previews.ErrUnknownBackend) {
		t.Errorf("err = %v, want ErrUnknownBackend", err)
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_PREVIEWS_BACKEND", "blob")

	cfg := &previews.Config{}
	if err := cfg.Finalize(""); err != nil || cfg.Backend != previews.BackendMemory {
		t.Errorf("default backend = %q (%v), want memory", cfg.Backend, err)
	}
	if err := cfg.Finalize("TEST_PREVIEWS_BACKEND"); err != nil || cfg.Backend != previews.BackendBlob {
		t.Errorf("env backend = %q (%v), want blob", cfg.Backend, err)
	}

	bad := &previews.Config{Backend: "disk"}
	if err := bad.Finalize(""); !errors.Is(err, previews.ErrUnknownBackend) {
		t.Errorf("err = %v, want ErrUnknownBackend", err)
	}
}

func TestURL(t *testing.T) {
	if got := previews.URL("/api", "abc"); got != "/api/previews/abc" {
		t.Errorf("URL = %q", got)
	}
	if got := previews.URL("/api", ""); got != "" {
		t.Errorf("URL for empty id = %q, want empty", got)
	}
}
