package api

import (
	"context"

	"github.com/JaimeStill/lineage/internal/batch"
	"github.com/JaimeStill/lineage/internal/history"
	"github.com/JaimeStill/lineage/internal/pipeline"
	"github.com/JaimeStill/lineage/internal/session"
)

// Domain holds the systems behind the API: one analysis session with its
// pipeline, the batch queue, and the analysis history.
type Domain struct {
	Session  *session.Session
	Pipeline *pipeline.Orchestrator
	Batch    *batch.Processor
	History  history.System
}

// NewDomain creates the domain systems from the runtime. History is backed
// by Postgres when a database is configured and disabled otherwise.
func NewDomain(runtime *Runtime) *Domain {
	var hist history.System
	if runtime.Database != nil {
		hist = history.New(runtime.Database, runtime.Logger, runtime.Pagination)
	} else {
		hist = history.Disabled(runtime.Logger, runtime.Pagination)
	}

	sess := session.New(runtime.Previews, runtime.Logger)
	runtime.OnUnauthorized(func() {
		runtime.Logger.Warn("credentials rejected, resetting session")
		sess.Reset(context.Background())
	})

	return &Domain{
		Session: sess,
		Pipeline: pipeline.New(
			runtime.Forensics,
			sess,
			runtime.Previews,
			runtime.Logger,
			pipeline.WithRecorder(hist),
			pipeline.WithLayout(runtime.Layout),
		),
		Batch: batch.New(
			runtime.Forensics,
			runtime.Previews,
			runtime.Logger,
			batch.WithConcurrency(runtime.Concurrency),
			batch.WithRecorder(hist),
		),
		History: hist,
	}
}

// Close ends session subscriptions and releases every preview the session
// and queue hold.
func (d *Domain) Close(ctx context.Context) {
	d.Session.Close(ctx)
	d.Batch.Close(ctx)
}
