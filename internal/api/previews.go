package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/lineage/internal/previews"
	"github.com/JaimeStill/lineage/pkg/handlers"
	"github.com/JaimeStill/lineage/pkg/routes"
)

type previewHandler struct {
	store  previews.Store
	logger *slog.Logger
}

func newPreviewHandler(store previews.Store, logger *slog.Logger) *previewHandler {
	return &previewHandler{
		store:  store,
		logger: logger.With("handler", "previews"),
	}
}

func (h *previewHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/previews",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{id}", Handler: h.open, OpenAPI: previewSpec.Open},
		},
	}
}

// open streams preview bytes. Handles are never reused, so the response may
// be cached for as long as the client likes.
func (h *previewHandler) open(w http.ResponseWriter, r *http.Request) {
	body, contentType, err := h.store.Open(r.Context(), r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, previews.MapHTTPStatus(err), err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		h.logger.WarnContext(r.Context(), "preview stream interrupted", "error", err)
	}
}
