package database_test

import (
	"testing"
	"time"

	"github.com/JaimeStill/lineage/pkg/database"
)

func TestFinalizeDefaults(t *testing.T) {
	cfg := &database.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}

	if cfg.Configured() {
		t.Error("empty url should leave the database unconfigured")
	}
	if cfg.MaxOpenConns != 10 || cfg.MaxIdleConns != 2 {
		t.Errorf("pool = %d/%d, want 10/2", cfg.MaxOpenConns, cfg.MaxIdleConns)
	}
	if cfg.ConnTimeoutDuration() != 5*time.Second {
		t.Errorf("conn timeout = %v", cfg.ConnTimeoutDuration())
	}
	if cfg.ConnMaxLifetimeDuration() != 15*time.Minute {
		t.Errorf("conn max lifetime = %v", cfg.ConnMaxLifetimeDuration())
	}
}

func TestFinalizeEnv(t *testing.T) {
	t.Setenv("TEST_DB_URL", "postgres://lineage:lineage@db:5432/lineage?sslmode=disable")
	t.Setenv("TEST_DB_MAX_OPEN", "4")

	cfg := &database.Config{}
	err := cfg.Finalize(&database.Env{URL: "TEST_DB_URL", MaxOpenConns: "TEST_DB_MAX_OPEN"})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Configured() || cfg.MaxOpenConns != 4 {
		t.Errorf("config = %+v", cfg)
	}
}

func TestFinalizeValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  database.Config
	}{
		{"mysql url", database.Config{URL: "mysql://root@localhost/db"}},
		{"bad timeout", database.Config{ConnTimeout: "soon"}},
		{"bad lifetime", database.Config{ConnMaxLifetime: "forever"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Finalize(nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := &database.Config{URL: "postgres://a", MaxOpenConns: 10}
	base.Merge(&database.Config{URL: "postgres://b"})

	if base.URL != "postgres://b" || base.MaxOpenConns != 10 {
		t.Errorf("merged = %+v", base)
	}
}
