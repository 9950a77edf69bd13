package session

import (
	"github.com/JaimeStill/lineage/internal/forensics"
	"github.com/JaimeStill/lineage/internal/verdict"
)

// Stage names one step of the per-image pipeline.
type Stage string

const (
	StageUpload  Stage = "upload"
	StageAnalyze Stage = "analyze"
	StageGraph   Stage = "graph"
	StageSocial  Stage = "social"
	StageReport  Stage = "report"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{StageUpload, StageAnalyze, StageGraph, StageSocial, StageReport}

// Busy holds the per-stage in-flight flags.
type Busy struct {
	Upload  bool `json:"upload"`
	Analyze bool `json:"analyze"`
	Graph   bool `json:"graph"`
	Social  bool `json:"social"`
	Report  bool `json:"report"`
}

func (b *Busy) flag(s Stage) *bool {
	switch s {
	case StageUpload:
		return &b.Upload
	case StageAnalyze:
		return &b.Analyze
	case StageGraph:
		return &b.Graph
	case StageSocial:
		return &b.Social
	case StageReport:
		return &b.Report
	}
	return nil
}

// Get reports whether stage s is in flight.
func (b Busy) Get(s Stage) bool {
	if f := b.flag(s); f != nil {
		return *f
	}
	return false
}

// Any reports whether any stage is in flight.
func (b Busy) Any() bool {
	return b.Upload || b.Analyze || b.Graph || b.Social || b.Report
}

// State is the progress of one image through the pipeline. Stage results are
// replaced wholesale and never mutated in place, so copies share them.
type State struct {
	ImageID  string              `json:"current_image_id,omitempty"`
	Preview  string              `json:"preview_id,omitempty"`
	Upload   *forensics.Upload   `json:"uploaded_image"`
	Analysis *forensics.Analysis `json:"analysis_result"`
	Verdict  verdict.Verdict     `json:"verdict,omitempty"`
	Graph    *forensics.Graph    `json:"provenance_graph"`
	Social   *forensics.Spread   `json:"social_spread"`
	Report   *forensics.Report   `json:"report"`
	Busy     Busy                `json:"busy"`
	Error    string              `json:"error,omitempty"`
}

// Target identifies the session a request was issued against. A response is
// applied only if its target still matches.
type Target struct {
	Generation uint64
	ImageID    string
}
