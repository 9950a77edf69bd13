package previews

import (
	"fmt"
	"os"
)

const (
	BackendMemory = "memory"
	BackendBlob   = "blob"
)

// Config selects where preview bytes live.
type Config struct {
	Backend string `toml:"backend"`
}

// Finalize applies the default backend, the envVar override, and validation.
func (c *Config) Finalize(envVar string) error {
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if envVar != "" {
		if v := os.Getenv(envVar); v != "" {
			c.Backend = v
		}
	}

	switch c.Backend {
	case BackendMemory, BackendBlob:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
}
