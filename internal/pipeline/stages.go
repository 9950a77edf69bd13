package pipeline

import (
	"context"

	"github.com/JaimeStill/lineage/internal/forensics"
	"github.com/JaimeStill/lineage/internal/history"
	"github.com/JaimeStill/lineage/internal/session"
	"github.com/JaimeStill/lineage/internal/verdict"
)

// stage is one remote call and the session write that applies its result.
// run returns session.ErrStaleResponse when the write is rejected.
type stage struct {
	name     session.Stage
	fallback string
	run      func(ctx context.Context, t session.Target) error
}

func (o *Orchestrator) uploadStage(file forensics.File) stage {
	return stage{
		name:     session.StageUpload,
		fallback: "Upload failed",
		run: func(ctx context.Context, t session.Target) error {
			u, err := o.client.Upload(ctx, file)
			if err != nil {
				return err
			}
			if err := u.Validate(); err != nil {
				return err
			}
			return o.session.SetUpload(t, u)
		},
	}
}

func (o *Orchestrator) analyzeStage() stage {
	return stage{
		name:     session.StageAnalyze,
		fallback: "Analysis failed",
		run: func(ctx context.Context, t session.Target) error {
			a, err := o.client.Analyze(ctx, t.ImageID)
			if err != nil {
				return err
			}

			v := verdict.Classify(a.DeepfakeScore.OverallScore, a.DeepfakeScore.IsDeepfake)
			if err := o.session.SetAnalysis(t, a, v); err != nil {
				return err
			}

			o.logger.InfoContext(ctx, "analysis complete",
				"image_id", t.ImageID,
				"score", a.DeepfakeScore.OverallScore,
				"verdict", v,
			)
			o.recordAnalysis(ctx, t.ImageID, a)
			return nil
		},
	}
}

func (o *Orchestrator) graphStage() stage {
	return stage{
		name:     session.StageGraph,
		fallback: "Failed to build provenance graph",
		run: func(ctx context.Context, t session.Target) error {
			g, err := o.client.BuildGraph(ctx, t.ImageID)
			if err != nil {
				return err
			}
			return o.session.SetGraph(t, g)
		},
	}
}

func (o *Orchestrator) socialStage() stage {
	return stage{
		name:     session.StageSocial,
		fallback: "Failed to simulate spread",
		run: func(ctx context.Context, t session.Target) error {
			sp, err := o.client.SimulateSpread(ctx, t.ImageID)
			if err != nil {
				return err
			}
			return o.session.SetSocial(t, sp)
		},
	}
}

func (o *Orchestrator) reportStage() stage {
	return stage{
		name:     session.StageReport,
		fallback: "Failed to generate report",
		run: func(ctx context.Context, t session.Target) error {
			r, err := o.client.GenerateReport(ctx, t.ImageID)
			if err != nil {
				return err
			}
			if err := o.session.SetReport(t, r); err != nil {
				return err
			}
			o.recordVerdict(ctx, t.ImageID, r.Verdict)
			return nil
		},
	}
}

func (o *Orchestrator) recordAnalysis(ctx context.Context, imageID string, a *forensics.Analysis) {
	if o.recorder == nil {
		return
	}

	var filename string
	if u := o.session.Snapshot().Upload; u != nil {
		filename = u.Filename
	}

	err := o.recorder.Record(ctx, history.Entry{
		ImageID:    imageID,
		Filename:   filename,
		Score:      a.DeepfakeScore.OverallScore,
		IsDeepfake: a.DeepfakeScore.IsDeepfake,
		Source:     history.SourcePipeline,
	})
	if err != nil {
		o.logger.WarnContext(ctx, "record analysis failed", "image_id", imageID, "error", err)
	}
}

func (o *Orchestrator) recordVerdict(ctx context.Context, imageID, raw string) {
	if o.recorder == nil {
		return
	}

	v, err := verdict.Parse(raw)
	if err != nil {
		o.logger.WarnContext(ctx, "report verdict not recognized", "image_id", imageID, "verdict", raw)
		return
	}
	if err := o.recorder.SetVerdict(ctx, imageID, v); err != nil {
		o.logger.WarnContext(ctx, "record verdict failed", "image_id", imageID, "error", err)
	}
}
