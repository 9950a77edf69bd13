// Package api assembles the API module: domain systems, handlers, and
// middleware mounted under the configured base path.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/JaimeStill/lineage/internal/config"
	"github.com/JaimeStill/lineage/internal/infrastructure"
	"github.com/JaimeStill/lineage/pkg/middleware"
	"github.com/JaimeStill/lineage/pkg/module"
)

const releaseTimeout = 10 * time.Second

// NewModule creates the API module and registers a shutdown hook that
// releases every preview still held by the session, the queue, and the store.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	if err := registerRoutes(mux, domain, runtime, cfg.Version); err != nil {
		return nil, err
	}

	runtime.Lifecycle.OnShutdown(func() {
		<-runtime.Lifecycle.Context().Done()

		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()

		domain.Close(ctx)
		if err := runtime.Previews.Close(ctx); err != nil {
			runtime.Logger.Error("preview release failed", "error", err)
			return
		}
		runtime.Logger.Info("previews released")
	})

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&runtime.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(middleware.Metrics("api"))

	return m, nil
}
