// Package config loads service configuration from config.toml, an optional
// config.<env>.toml overlay, and LINEAGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/lineage/internal/batch"
	"github.com/JaimeStill/lineage/internal/forensics"
	"github.com/JaimeStill/lineage/internal/previews"
	"github.com/JaimeStill/lineage/pkg/database"
	"github.com/JaimeStill/lineage/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvLineageEnv             = "LINEAGE_ENV"
	EnvLineageShutdownTimeout = "LINEAGE_SHUTDOWN_TIMEOUT"
	EnvLineageVersion         = "LINEAGE_VERSION"

	EnvBatchConcurrency = "LINEAGE_BATCH_CONCURRENCY"
	EnvPreviewsBackend  = "LINEAGE_PREVIEWS_BACKEND"
)

var databaseEnv = &database.Env{
	URL:             "LINEAGE_DATABASE_URL",
	MaxOpenConns:    "LINEAGE_DATABASE_MAX_OPEN_CONNS",
	MaxIdleConns:    "LINEAGE_DATABASE_MAX_IDLE_CONNS",
	ConnMaxLifetime: "LINEAGE_DATABASE_CONN_MAX_LIFETIME",
	ConnTimeout:     "LINEAGE_DATABASE_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Container:        "LINEAGE_STORAGE_CONTAINER",
	ConnectionString: "LINEAGE_STORAGE_CONNECTION_STRING",
	Prefix:           "LINEAGE_STORAGE_PREFIX",
}

var forensicsEnv = &forensics.Env{
	BaseURL: "LINEAGE_FORENSICS_BASE_URL",
	Timeout: "LINEAGE_FORENSICS_TIMEOUT",
	Token:   "LINEAGE_FORENSICS_TOKEN",
}

// Config is the root configuration.
type Config struct {
	Server          ServerConfig     `toml:"server"`
	Database        database.Config  `toml:"database"`
	Storage         storage.Config   `toml:"storage"`
	API             APIConfig        `toml:"api"`
	Forensics       forensics.Config `toml:"forensics"`
	Batch           batch.Config     `toml:"batch"`
	Layout          LayoutConfig     `toml:"layout"`
	Previews        previews.Config  `toml:"previews"`
	ShutdownTimeout string           `toml:"shutdown_timeout"`
	Version         string           `toml:"version"`
}

// Env returns LINEAGE_ENV, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvLineageEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads config.toml when present, merges the LINEAGE_ENV overlay, and
// finalizes every section. Without any file, defaults and the environment
// supply everything.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sections.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Forensics.Merge(&overlay.Forensics)
	c.Batch.Merge(&overlay.Batch)
	c.Layout.Merge(&overlay.Layout)
	c.Previews.Merge(&overlay.Previews)
}

// Finalize applies defaults, environment overrides, and validation to every
// section.
func (c *Config) Finalize() error {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if v := os.Getenv(EnvLineageShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvLineageVersion); v != "" {
		c.Version = v
	}
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}

	sections := []struct {
		name     string
		finalize func() error
	}{
		{"server", c.Server.Finalize},
		{"database", func() error { return c.Database.Finalize(databaseEnv) }},
		{"storage", func() error { return c.Storage.Finalize(storageEnv) }},
		{"api", c.API.Finalize},
		{"forensics", func() error { return c.Forensics.Finalize(forensicsEnv) }},
		{"batch", func() error { return c.Batch.Finalize(EnvBatchConcurrency) }},
		{"layout", c.Layout.Finalize},
		{"previews", func() error { return c.Previews.Finalize(EnvPreviewsBackend) }},
	}
	for _, s := range sections {
		if err := s.finalize(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}

	if c.Previews.Backend == previews.BackendBlob && !c.Storage.Configured() {
		return errors.New("previews: blob backend requires storage.connection_string")
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvLineageEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
