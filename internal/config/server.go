package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	EnvServerHost            = "LINEAGE_SERVER_HOST"
	EnvServerPort            = "LINEAGE_SERVER_PORT"
	EnvServerReadTimeout     = "LINEAGE_SERVER_READ_TIMEOUT"
	EnvServerWriteTimeout    = "LINEAGE_SERVER_WRITE_TIMEOUT"
	EnvServerShutdownTimeout = "LINEAGE_SERVER_SHUTDOWN_TIMEOUT"
)

// ServerConfig holds HTTP listener settings. Timeouts are Go duration strings.
type ServerConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	ReadTimeout     string `toml:"read_timeout"`
	WriteTimeout    string `toml:"write_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *ServerConfig) ReadTimeoutDuration() time.Duration {
	return duration(c.ReadTimeout)
}

func (c *ServerConfig) WriteTimeoutDuration() time.Duration {
	return duration(c.WriteTimeout)
}

func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return duration(c.ShutdownTimeout)
}

// Finalize applies defaults, environment overrides, and validation.
func (c *ServerConfig) Finalize() error {
	setDefault(&c.Host, "0.0.0.0")
	setDefault(&c.ReadTimeout, "1m")
	setDefault(&c.WriteTimeout, "5m")
	setDefault(&c.ShutdownTimeout, "30s")
	if c.Port == 0 {
		c.Port = 8080
	}

	setEnv(&c.Host, EnvServerHost)
	setEnv(&c.ReadTimeout, EnvServerReadTimeout)
	setEnv(&c.WriteTimeout, EnvServerWriteTimeout)
	setEnv(&c.ShutdownTimeout, EnvServerShutdownTimeout)
	if port, err := strconv.Atoi(os.Getenv(EnvServerPort)); err == nil {
		c.Port = port
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	for name, v := range map[string]string{
		"read_timeout":     c.ReadTimeout,
		"write_timeout":    c.WriteTimeout,
		"shutdown_timeout": c.ShutdownTimeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	merge(&c.Host, overlay.Host)
	merge(&c.ReadTimeout, overlay.ReadTimeout)
	merge(&c.WriteTimeout, overlay.WriteTimeout)
	merge(&c.ShutdownTimeout, overlay.ShutdownTimeout)
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func setEnv(field *string, name string) {
	if v := os.Getenv(name); v != "" {
		*field = v
	}
}

func merge(field *string, overlay string) {
	if overlay != "" {
		*field = overlay
	}
}
