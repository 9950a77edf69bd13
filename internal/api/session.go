package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/JaimeStill/lineage/internal/forensics"
	"github.com/JaimeStill/lineage/internal/pipeline"
	"github.com/JaimeStill/lineage/internal/previews"
	"github.com/JaimeStill/lineage/internal/session"
	"github.com/JaimeStill/lineage/pkg/handlers"
	"github.com/JaimeStill/lineage/pkg/routes"
)

// sessionView is the session state as the dashboard renders it.
type sessionView struct {
	session.State
	PreviewURL string `json:"preview_url,omitempty"`
}

type sessionHandler struct {
	pipeline  *pipeline.Orchestrator
	session   *session.Session
	basePath  string
	maxUpload int64
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

func newSessionHandler(p *pipeline.Orchestrator, runtime *Runtime) *sessionHandler {
	return &sessionHandler{
		pipeline:  p,
		session:   p.Session(),
		basePath:  runtime.BasePath,
		maxUpload: runtime.MaxUploadSize,
		upgrader:  newUpgrader(&runtime.CORS),
		logger:    runtime.Logger.With("handler", "session"),
	}
}

func (h *sessionHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/session",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.get, OpenAPI: sessionSpec.Get},
			{Method: "GET", Pattern: "/events", Handler: h.events, OpenAPI: sessionSpec.Events},
			{Method: "GET", Pattern: "/layout", Handler: h.layout, OpenAPI: sessionSpec.Layout},
			{Method: "POST", Pattern: "/run", Handler: h.run, OpenAPI: sessionSpec.Run},
			{Method: "POST", Pattern: "/investigate", Handler: h.investigate, OpenAPI: sessionSpec.Investigate},
			{Method: "POST", Pattern: "/analyze", Handler: h.stage(h.pipeline.Analyze), OpenAPI: sessionSpec.Analyze},
			{Method: "POST", Pattern: "/graph", Handler: h.stage(h.pipeline.BuildGraph), OpenAPI: sessionSpec.Graph},
			{Method: "POST", Pattern: "/social", Handler: h.stage(h.pipeline.SimulateSpread), OpenAPI: sessionSpec.Social},
			{Method: "POST", Pattern: "/report", Handler: h.stage(h.pipeline.GenerateReport), OpenAPI: sessionSpec.Report},
			{Method: "POST", Pattern: "/reset", Handler: h.reset, OpenAPI: sessionSpec.Reset},
		},
	}
}

func (h *sessionHandler) view(s session.State) sessionView {
	return sessionView{State: s, PreviewURL: previews.URL(h.basePath, s.Preview)}
}

func (h *sessionHandler) get(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.view(h.session.Snapshot()))
}

// run starts a new session from the multipart "file" field, then uploads and
// analyzes it.
func (h *sessionHandler) run(w http.ResponseWriter, r *http.Request) {
	h.start(w, r, h.pipeline.Run)
}

// investigate is run followed by graph, spread, and report.
func (h *sessionHandler) investigate(w http.ResponseWriter, r *http.Request) {
	h.start(w, r, h.pipeline.Investigate)
}

func (h *sessionHandler) start(
	w http.ResponseWriter,
	r *http.Request,
	fn func(context.Context, *forensics.File) error,
) {
	files, err := readFiles(w, r, "file", h.maxUpload)
	if err != nil {
		handlers.RespondError(w, h.logger, uploadStatus(err), err)
		return
	}

	var file *forensics.File
	if len(files) > 0 {
		file = &files[0]
	}

	h.respond(w, fn(context.WithoutCancel(r.Context()), file))
}

// stage adapts a single-stage pipeline call. Stages run to completion even
// if the client disconnects; their result lands in the session either way.
func (h *sessionHandler) stage(fn func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.respond(w, fn(context.WithoutCancel(r.Context())))
	}
}

func (h *sessionHandler) respond(w http.ResponseWriter, err error) {
	if err != nil {
		handlers.RespondError(w, h.logger, pipeline.MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, h.view(h.session.Snapshot()))
}

func (h *sessionHandler) layout(w http.ResponseWriter, r *http.Request) {
	result, err := h.pipeline.Layout()
	if err != nil {
		handlers.RespondError(w, h.logger, pipeline.MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *sessionHandler) reset(w http.ResponseWriter, r *http.Request) {
	h.pipeline.Reset(r.Context())
	handlers.RespondJSON(w, http.StatusOK, h.view(h.session.Snapshot()))
}
