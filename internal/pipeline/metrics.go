package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
	outcomeStale   = "stale"
)

var (
	// stageTotal counts finished stages. Labels: stage, outcome (success, error, stale).
	stageTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lineage",
		Subsystem: "pipeline",
		Name:      "stages_total",
		Help:      "Pipeline stages finished, by outcome",
	}, []string{"stage", "outcome"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lineage",
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Time spent waiting on the forensics service per stage",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"stage"})
)
