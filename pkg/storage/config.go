package storage

import (
	"errors"
	"os"
)

// Config holds the Azure Blob Storage container that receives preview bytes.
type Config struct {
	Container        string `toml:"container"`
	ConnectionString string `toml:"connection_string"`
	Prefix           string `toml:"prefix"`
}

// Env names the environment variables that override Config fields.
type Env struct {
	Container        string
	ConnectionString string
	Prefix           string
}

// Finalize applies defaults, environment overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if c.Container == "" {
		c.Container = "previews"
	}
	if env != nil {
		c.Container = envOr(env.Container, c.Container)
		c.ConnectionString = envOr(env.ConnectionString, c.ConnectionString)
		c.Prefix = envOr(env.Prefix, c.Prefix)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Container != "" {
		c.Container = overlay.Container
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
	if overlay.Prefix != "" {
		c.Prefix = overlay.Prefix
	}
}

// Configured reports whether a connection string is present. A service
// without one keeps previews in memory.
func (c *Config) Configured() bool {
	return c.ConnectionString != ""
}

func (c *Config) validate() error {
	if c.Container == "" {
		return errors.New("container required")
	}
	return validateKey(c.Prefix + "x")
}

func envOr(name, current string) string {
	if name == "" {
		return current
	}
	if v := os.Getenv(name); v != "" {
		return v
	}
	return current
}
