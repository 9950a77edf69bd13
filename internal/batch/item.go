package batch

import (
	"github.com/google/uuid"

	"github.com/JaimeStill/lineage/internal/forensics"
	"github.com/JaimeStill/lineage/internal/verdict"
)

// Status is a queue item's position in the pipeline. Items only move forward
// except when a failed item is run again.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusUploading Status = "uploading"
	StatusAnalyzing Status = "analyzing"
	StatusDone      Status = "done"
	StatusError     Status = "error"
)

// Active reports whether the item is mid-pipeline.
func (s Status) Active() bool {
	return s == StatusUploading || s == StatusAnalyzing
}

// Item is one image in the queue.
type Item struct {
	ID       uuid.UUID       `json:"id"`
	Filename string          `json:"filename"`
	Status   Status          `json:"status"`
	ImageID  string          `json:"image_id,omitempty"`
	Verdict  verdict.Verdict `json:"verdict,omitempty"`
	Score    *float64        `json:"score,omitempty"`
	Error    string          `json:"error,omitempty"`
	Preview  string          `json:"preview_id,omitempty"`

	file forensics.File
}

// Stats summarizes the queue. It is computed from the items on every call.
type Stats struct {
	Total     int `json:"total"`
	Done      int `json:"done"`
	Errored   int `json:"errored"`
	Deepfakes int `json:"deepfakes"`
	Queued    int `json:"queued"`
	Active    int `json:"active"`
}

func statsOf(items []*Item) Stats {
	s := Stats{Total: len(items)}
	for _, it := range items {
		switch {
		case it.Status == StatusDone:
			s.Done++
		case it.Status == StatusError:
			s.Errored++
		case it.Status == StatusQueued:
			s.Queued++
		case it.Status.Active():
			s.Active++
		}
		if it.Verdict == verdict.Deepfake {
			s.Deepfakes++
		}
	}
	return s
}
