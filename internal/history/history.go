// Package history records completed analyses so the dashboard can list recent
// results and aggregate statistics across sessions.
package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/lineage/internal/verdict"
)

// Source names what produced an analysis.
type Source string

const (
	SourcePipeline Source = "pipeline"
	SourceBatch    Source = "batch"
)

// Entry is a completed analysis to record.
type Entry struct {
	ImageID    string
	Filename   string
	Score      float64
	IsDeepfake bool
	Source     Source
}

// Analysis is a recorded analysis with its resolved verdict.
type Analysis struct {
	ID            uuid.UUID       `json:"id"`
	ImageID       string          `json:"image_id"`
	Filename      string          `json:"filename"`
	Score         float64         `json:"overall_score"`
	IsDeepfake    bool            `json:"is_deepfake"`
	Verdict       verdict.Verdict `json:"verdict"`
	ServerVerdict bool            `json:"server_verdict"`
	Source        Source          `json:"source"`
	AnalyzedAt    time.Time       `json:"analyzed_at"`
}

// Stats aggregates resolved verdicts over every recorded analysis.
type Stats struct {
	Total       int `json:"total_analyses"`
	Deepfakes   int `json:"deepfakes_detected"`
	Manipulated int `json:"manipulated"`
	Suspicious  int `json:"suspicious"`
	Authentic   int `json:"authentic"`
}

// ResolveVerdict prefers the verdict the service issued in its report and
// falls back to the interim classification when none was recorded or the
// recorded value is not a known verdict.
func ResolveVerdict(server *string, score float64, isDeepfake bool) (verdict.Verdict, bool) {
	if server != nil {
		if v, err := verdict.Parse(*server); err == nil {
			return v, true
		}
	}
	return verdict.Classify(score, isDeepfake), false
}
