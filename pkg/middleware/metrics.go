package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lineage",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by module, method, and status code.",
		},
		[]string{"module", "method", "code"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lineage",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by module and method.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"module", "method"},
	)
)

// Metrics counts requests and observes their latency under the module label.
func Metrics(module string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &recorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			requestsTotal.WithLabelValues(module, r.Method, strconv.Itoa(rec.status)).Inc()
			requestDuration.WithLabelValues(module, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}
