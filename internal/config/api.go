package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/JaimeStill/lineage/pkg/formatting"
	"github.com/JaimeStill/lineage/pkg/middleware"
	"github.com/JaimeStill/lineage/pkg/pagination"
)

const (
	EnvAPIBasePath      = "LINEAGE_API_BASE_PATH"
	EnvAPIMaxUploadSize = "LINEAGE_API_MAX_UPLOAD_SIZE"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "LINEAGE_CORS_ENABLED",
	Origins:          "LINEAGE_CORS_ORIGINS",
	AllowedMethods:   "LINEAGE_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "LINEAGE_CORS_ALLOWED_HEADERS",
	AllowCredentials: "LINEAGE_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "LINEAGE_CORS_MAX_AGE",
}

var paginationEnv = &pagination.Env{
	DefaultPageSize: "LINEAGE_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "LINEAGE_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds routing, upload limits, CORS, and pagination for the
// HTTP API.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxUploadSize string                `toml:"max_upload_size"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Pagination    pagination.Config     `toml:"pagination"`

	maxUploadBytes int64
}

// MaxUploadSizeBytes returns the parsed MaxUploadSize. Valid after Finalize.
func (c *APIConfig) MaxUploadSizeBytes() int64 {
	return c.maxUploadBytes
}

// Finalize applies defaults, environment overrides, and validation for the
// section and its nested CORS and pagination configs.
func (c *APIConfig) Finalize() error {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "50MB"
	}
	if v := os.Getenv(EnvAPIBasePath); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv(EnvAPIMaxUploadSize); v != "" {
		c.MaxUploadSize = v
	}

	if !strings.HasPrefix(c.BasePath, "/") || strings.Count(c.BasePath, "/") != 1 {
		return fmt.Errorf("base_path must be a single segment like /api: %q", c.BasePath)
	}
	size, err := formatting.ParseBytes(c.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("max_upload_size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("max_upload_size must be positive: %q", c.MaxUploadSize)
	}
	c.maxUploadBytes = size

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}
	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}
