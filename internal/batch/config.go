package batch

import (
	"errors"
	"os"
	"strconv"
)

// Config controls how many queue items are processed at once. One keeps
// processing strictly in queue order.
type Config struct {
	Concurrency int `toml:"concurrency"`
}

// Finalize applies the default, the envVar override, and validation.
func (c *Config) Finalize(envVar string) error {
	if c.Concurrency == 0 {
		c.Concurrency = 1
	}
	if envVar != "" {
		if n, err := strconv.Atoi(os.Getenv(envVar)); err == nil {
			c.Concurrency = n
		}
	}
	if c.Concurrency < 1 {
		return errors.New("concurrency must be positive")
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Concurrency != 0 {
		c.Concurrency = overlay.Concurrency
	}
}
