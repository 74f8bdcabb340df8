// Package metrics provides Prometheus metrics for layerscope.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Backend command metrics
	backendCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layerscope_backend_calls_total",
			Help: "Total backend commands issued",
		},
		[]string{"command", "status"},
	)

	backendCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "layerscope_backend_call_duration_seconds",
			Help:    "Backend command duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"command"},
	)

	// Orchestrator metrics
	staleResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layerscope_stale_responses_total",
			Help: "Backend responses discarded because a newer selection superseded them",
		},
		[]string{"command"},
	)

	treeEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layerscope_tree_entries",
			Help: "Number of entries in the current layer's entry collection",
		},
	)

	pendingExtractions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layerscope_pending_extractions",
			Help: "Directory extractions currently in flight",
		},
	)

	// Cache budget metrics
	cacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layerscope_cache_bytes",
			Help: "Bytes of extracted layer data accounted against the cache budget",
		},
	)

	cacheBudgetBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layerscope_cache_budget_bytes",
			Help: "Configured cache budget in bytes",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordBackendCall records one backend command.
func RecordBackendCall(command string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	backendCallsTotal.WithLabelValues(command, status).Inc()
	backendCallDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordStale counts a discarded stale response.
func RecordStale(command string) {
	staleResponsesTotal.WithLabelValues(command).Inc()
}

// SetTreeEntries records the size of the entry collection.
func SetTreeEntries(n int) {
	treeEntries.Set(float64(n))
}

// SetPendingExtractions records the number of in-flight extractions.
func SetPendingExtractions(n int) {
	pendingExtractions.Set(float64(n))
}

// SetCacheUsage records cache usage against the budget.
func SetCacheUsage(used, budget uint64) {
	cacheBytes.Set(float64(used))
	cacheBudgetBytes.Set(float64(budget))
}
