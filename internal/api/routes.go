package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/lineage/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime, version string) error {
	groups := []routes.Group{
		newSessionHandler(domain.Pipeline, runtime).routes(),
		newBatchHandler(domain.Batch, runtime).routes(),
		domain.History.Handler().Routes(),
		newDashboardHandler(runtime.Forensics, runtime.Logger).routes(),
		newPreviewHandler(runtime.Previews, runtime.Logger).routes(),
	}

	routes.Register(mux, groups...)

	spec, err := newSpec(version, runtime.BasePath, groups).Handler()
	if err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	mux.HandleFunc("GET /openapi.json", spec)

	runtime.Logger.Debug("routes registered", "patterns", routes.Patterns(groups...))
	return nil
}
