package storage_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/JaimeStill/lineage/pkg/storage"
)

func TestFinalize(t *testing.T) {
	t.Setenv("TEST_STORAGE_CONNECTION", "UseDevelopmentStorage=true")

	cfg := &storage.Config{}
	if err := cfg.Finalize(&storage.Env{ConnectionString: "TEST_STORAGE_CONNECTION"}); err != nil {
		t.Fatal(err)
	}

	if cfg.Container != "previews" {
		t.Errorf("container = %q, want previews", cfg.Container)
	}
	if !cfg.Configured() {
		t.Error("connection string from env not applied")
	}
}

func TestFinalizeRejectsTraversalPrefix(t *testing.T) {
	cfg := &storage.Config{Prefix: "../"}
	if err := cfg.Finalize(nil); !errors.Is(err, storage.ErrInvalidKey) {
		t.Errorf("err = %v, want ErrInvalidKey", err)
	}
}

func TestMerge(t *testing.T) {
	base := &storage.Config{Container: "base", Prefix: "a/"}
	base.Merge(&storage.Config{Prefix: "b/"})

	if base.Container != "base" || base.Prefix != "b/" {
		t.Errorf("merged = %+v", base)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{storage.ErrNotFound, http.StatusNotFound},
		{storage.ErrEmptyKey, http.StatusBadRequest},
		{storage.ErrInvalidKey, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := storage.MapHTTPStatus(tt.err); got != tt.want {
			t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
