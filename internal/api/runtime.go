package api

import (
	"github.com/JaimeStill/lineage/internal/config"
	"github.com/JaimeStill/lineage/internal/infrastructure"
	"github.com/JaimeStill/lineage/internal/layout"
	"github.com/JaimeStill/lineage/pkg/middleware"
	"github.com/JaimeStill/lineage/pkg/pagination"
)

// Runtime extends Infrastructure with API-scoped settings.
type Runtime struct {
	*infrastructure.Infrastructure
	BasePath      string
	MaxUploadSize int64
	Pagination    pagination.Config
	CORS          middleware.CORSConfig
	Layout        layout.Options
	Concurrency   int
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	scoped := *infra
	scoped.Logger = infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &scoped,
		BasePath:       cfg.API.BasePath,
		MaxUploadSize:  cfg.API.MaxUploadSizeBytes(),
		Pagination:     cfg.API.Pagination,
		CORS:           cfg.API.CORS,
		Layout:         cfg.Layout.Options(),
		Concurrency:    cfg.Batch.Concurrency,
	}
}
