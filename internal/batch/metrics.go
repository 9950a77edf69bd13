package batch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// itemsTotal counts processed queue items. Labels: outcome (done, error, discarded).
	itemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lineage",
		Subsystem: "batch",
		Name:      "items_total",
		Help:      "Queue items processed, by outcome",
	}, []string{"outcome"})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lineage",
		Subsystem: "batch",
		Name:      "queue_depth",
		Help:      "Items currently in the queue",
	})
)
