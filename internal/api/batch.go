package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/lineage/internal/batch"
	"github.com/JaimeStill/lineage/internal/previews"
	"github.com/JaimeStill/lineage/pkg/handlers"
	"github.com/JaimeStill/lineage/pkg/routes"
)

type itemView struct {
	batch.Item
	PreviewURL string `json:"preview_url,omitempty"`
}

type queueView struct {
	Items   []itemView  `json:"items"`
	Stats   batch.Stats `json:"stats"`
	Running bool        `json:"running"`
}

type batchHandler struct {
	queue     *batch.Processor
	runCtx    context.Context
	basePath  string
	maxUpload int64
	logger    *slog.Logger
}

func newBatchHandler(queue *batch.Processor, runtime *Runtime) *batchHandler {
	return &batchHandler{
		queue:     queue,
		runCtx:    runtime.Lifecycle.Context(),
		basePath:  runtime.BasePath,
		maxUpload: runtime.MaxUploadSize,
		logger:    runtime.Logger.With("handler", "batch"),
	}
}

func (h *batchHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/batch",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.list, OpenAPI: batchSpec.List},
			{Method: "POST", Pattern: "", Handler: h.enqueue, OpenAPI: batchSpec.Enqueue},
			{Method: "GET", Pattern: "/stats", Handler: h.stats, OpenAPI: batchSpec.Stats},
			{Method: "POST", Pattern: "/run", Handler: h.run, OpenAPI: batchSpec.Run},
			{Method: "POST", Pattern: "/clear", Handler: h.clear, OpenAPI: batchSpec.Clear},
			{Method: "POST", Pattern: "/{id}/run", Handler: h.runItem, OpenAPI: batchSpec.RunItem},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.remove, OpenAPI: batchSpec.Remove},
		},
	}
}

func (h *batchHandler) views(items []batch.Item) []itemView {
	out := make([]itemView, len(items))
	for i, it := range items {
		out[i] = itemView{Item: it, PreviewURL: previews.URL(h.basePath, it.Preview)}
	}
	return out
}

func (h *batchHandler) queueView() queueView {
	return queueView{
		Items:   h.views(h.queue.Items()),
		Stats:   h.queue.Stats(),
		Running: h.queue.Running(),
	}
}

func (h *batchHandler) list(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.queueView())
}

func (h *batchHandler) stats(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.queue.Stats())
}

// enqueue appends the images in the multipart "files" field. Non-image files
// are skipped.
func (h *batchHandler) enqueue(w http.ResponseWriter, r *http.Request) {
	files, err := readFiles(w, r, "files", h.maxUpload)
	if err != nil {
		handlers.RespondError(w, h.logger, uploadStatus(err), err)
		return
	}

	added, err := h.queue.Enqueue(r.Context(), files)
	if err != nil {
		handlers.RespondError(w, h.logger, batch.MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusCreated, h.views(added))
}

// run starts processing the queue in the background and returns at once.
// Progress is read from GET /batch.
func (h *batchHandler) run(w http.ResponseWriter, r *http.Request) {
	if err := h.queue.Start(h.runCtx); err != nil {
		handlers.RespondError(w, h.logger, batch.MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusAccepted, h.queueView())
}

// runItem processes one queued or failed item and waits for it.
func (h *batchHandler) runItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	if err := h.queue.RunItem(context.WithoutCancel(r.Context()), id); err != nil {
		handlers.RespondError(w, h.logger, batch.MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, h.queueView())
}

func (h *batchHandler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	if err := h.queue.Remove(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, batch.MapHTTPStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *batchHandler) clear(w http.ResponseWriter, r *http.Request) {
	removed := h.queue.ClearDone(r.Context())
	handlers.RespondJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (h *batchHandler) itemID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid item id: %w", err))
		return uuid.Nil, false
	}
	return id, true
}
