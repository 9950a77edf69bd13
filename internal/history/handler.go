package history

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/lineage/pkg/handlers"
	"github.com/JaimeStill/lineage/pkg/pagination"
	"github.com/JaimeStill/lineage/pkg/routes"
)

// Handler serves recorded analyses.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "history"),
		pagination: pagination,
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/history",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.Recent, OpenAPI: Spec.Recent},
			{Method: "GET", Pattern: "/stats", Handler: h.Stats, OpenAPI: Spec.Stats},
		},
	}
}

// Recent lists analyses. Query parameters: page, page_size, search, sort,
// source, is_deepfake.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	page := pagination.FromQuery(values, h.pagination)
	filters := FiltersFromQuery(values)

	result, err := h.sys.Recent(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sys.Stats(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, stats)
}
