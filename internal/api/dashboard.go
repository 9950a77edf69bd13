package api

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/lineage/internal/forensics"
	"github.com/JaimeStill/lineage/pkg/handlers"
	"github.com/JaimeStill/lineage/pkg/routes"
)

type dashboardHandler struct {
	client forensics.Client
	logger *slog.Logger
}

func newDashboardHandler(client forensics.Client, logger *slog.Logger) *dashboardHandler {
	return &dashboardHandler{
		client: client,
		logger: logger.With("handler", "dashboard"),
	}
}

func (h *dashboardHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/dashboard",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/stats", Handler: h.stats, OpenAPI: dashboardSpec.Stats},
		},
	}
}

// stats relays the forensics service's aggregate statistics.
func (h *dashboardHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.client.DashboardStats(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, forensics.MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, stats)
}
