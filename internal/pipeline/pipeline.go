// Package pipeline drives one image through the forensics service: upload,
// analysis, provenance graph, social spread, and report. Each stage owns a
// busy flag in the session, records its failure as the session's single
// error message, and applies its result only if the session has not moved on
// since the stage began.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/lineage/internal/forensics"
	"github.com/JaimeStill/lineage/internal/history"
	"github.com/JaimeStill/lineage/internal/layout"
	"github.com/JaimeStill/lineage/internal/previews"
	"github.com/JaimeStill/lineage/internal/session"
	"github.com/JaimeStill/lineage/internal/verdict"
)

// Recorder persists completed analyses and report verdicts.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) error
	SetVerdict(ctx context.Context, imageID string, v verdict.Verdict) error
}

// Orchestrator sequences stages against one session.
type Orchestrator struct {
	client   forensics.Client
	session  *session.Session
	previews previews.Store
	recorder Recorder
	layout   layout.Options
	logger   *slog.Logger
}

type Option func(*Orchestrator)

// WithRecorder records every completed analysis and report verdict.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithLayout sets the spacing Layout uses.
func WithLayout(opts layout.Options) Option {
	return func(o *Orchestrator) {
		o.layout = opts
	}
}

// New creates an Orchestrator. store may be nil when previews are not kept.
func New(
	client forensics.Client,
	sess *session.Session,
	store previews.Store,
	logger *slog.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		client:   client,
		session:  sess,
		previews: store,
		logger:   logger.With("system", "pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Session returns the session the orchestrator writes to.
func (o *Orchestrator) Session() *session.Session {
	return o.session
}

// Run starts a new session for file, then uploads and analyzes it. A failed
// upload leaves nothing to retry; a failed analysis keeps the upload so
// Analyze can be called again.
func (o *Orchestrator) Run(ctx context.Context, file *forensics.File) error {
	return o.start(ctx, file, o.analyzeStage())
}

// Investigate runs every stage for file in order, stopping at the first
// failure.
func (o *Orchestrator) Investigate(ctx context.Context, file *forensics.File) error {
	return o.start(ctx, file,
		o.analyzeStage(),
		o.graphStage(),
		o.socialStage(),
		o.reportStage(),
	)
}

// Analyze re-runs analysis for the current image.
func (o *Orchestrator) Analyze(ctx context.Context) error {
	return o.single(ctx, o.analyzeStage())
}

// BuildGraph fetches the provenance graph for the current image.
func (o *Orchestrator) BuildGraph(ctx context.Context) error {
	return o.single(ctx, o.graphStage())
}

// SimulateSpread fetches the social spread for the current image.
func (o *Orchestrator) SimulateSpread(ctx context.Context) error {
	return o.single(ctx, o.socialStage())
}

// GenerateReport fetches the report for the current image. The service
// expects the graph and spread to exist already.
func (o *Orchestrator) GenerateReport(ctx context.Context) error {
	return o.single(ctx, o.reportStage())
}

// Layout positions the current provenance graph.
func (o *Orchestrator) Layout() (layout.Result, error) {
	snap := o.session.Snapshot()
	if snap.Graph == nil {
		return layout.Result{}, ErrNoGraph
	}
	return layout.Compute(*snap.Graph, o.layout), nil
}

// Reset clears the session.
func (o *Orchestrator) Reset(ctx context.Context) {
	o.session.Reset(ctx)
}

func (o *Orchestrator) start(ctx context.Context, file *forensics.File, rest ...stage) error {
	if file == nil || len(file.Data) == 0 {
		return session.ErrNoFile
	}

	f := file.Normalize()
	if !f.IsImage() {
		return fmt.Errorf("%w: %w", session.ErrValidation, previews.ErrNotImage)
	}

	t, err := o.session.Restart(ctx)
	if err != nil {
		return err
	}

	o.attachPreview(ctx, t, f)

	stages := append([]stage{o.uploadStage(f)}, rest...)
	return o.sequence(ctx, t, stages)
}

func (o *Orchestrator) attachPreview(ctx context.Context, t session.Target, f forensics.File) {
	if o.previews == nil {
		return
	}

	id, err := o.previews.Acquire(ctx, f)
	if err != nil {
		o.logger.WarnContext(ctx, "preview unavailable", "filename", f.Name, "error", err)
		return
	}
	if err := o.session.SetPreview(ctx, t, id); err != nil {
		o.discarded(ctx, session.StageUpload, t)
	}
}

// sequence runs stages in order. The first stage must already have begun
// under t.
func (o *Orchestrator) sequence(ctx context.Context, t session.Target, stages []stage) error {
	for i, st := range stages {
		if i > 0 {
			next, err := o.session.Continue(t, st.name)
			if err != nil {
				if errors.Is(err, session.ErrStaleResponse) {
					o.discarded(ctx, st.name, t)
					return nil
				}
				return err
			}
			t = next
		}

		if err := o.execute(ctx, st, t); err != nil {
			if errors.Is(err, session.ErrStaleResponse) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (o *Orchestrator) single(ctx context.Context, st stage) error {
	t, err := o.session.Begin(st.name, true)
	if err != nil {
		return err
	}

	if err := o.execute(ctx, st, t); err != nil && !errors.Is(err, session.ErrStaleResponse) {
		return err
	}
	return nil
}

// execute runs st under t and always releases the stage's busy flag.
func (o *Orchestrator) execute(ctx context.Context, st stage, t session.Target) error {
	defer o.session.End(t, st.name)

	start := time.Now()
	err := st.run(ctx, t)
	stageDuration.WithLabelValues(string(st.name)).Observe(time.Since(start).Seconds())

	if err == nil {
		stageTotal.WithLabelValues(string(st.name), outcomeSuccess).Inc()
		return nil
	}
	if errors.Is(err, session.ErrStaleResponse) {
		o.discarded(ctx, st.name, t)
		return err
	}

	msg := forensics.Message(err, st.fallback)
	if serr := o.session.SetError(t, msg); serr != nil {
		o.discarded(ctx, st.name, t)
		return serr
	}

	stageTotal.WithLabelValues(string(st.name), outcomeError).Inc()
	o.logger.WarnContext(ctx, "stage failed",
		"stage", st.name,
		"image_id", t.ImageID,
		"message", msg,
		"error", err,
	)
	return err
}

func (o *Orchestrator) discarded(ctx context.Context, name session.Stage, t session.Target) {
	stageTotal.WithLabelValues(string(name), outcomeStale).Inc()
	o.logger.InfoContext(ctx, "stale response discarded",
		"stage", name,
		"image_id", t.ImageID,
		"generation", t.Generation,
		"error", session.ErrStaleResponse,
	)
}
