// Package metrics provides Prometheus metrics for trendlens.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "trendlens"

var (
	// AnalysisTotal counts backend analysis requests by outcome.
	AnalysisTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_total",
			Help:      "Total number of analysis requests",
		},
		[]string{"status"},
	)

	// AnalysisDuration measures backend round trips.
	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Duration of analysis requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// KeywordResults counts per-keyword outcomes within successful responses.
	KeywordResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keyword_results_total",
			Help:      "Per-keyword results by outcome",
		},
		[]string{"outcome"},
	)

	// CacheLookups counts analysis cache hits and misses.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Analysis cache lookups",
		},
		[]string{"result"},
	)

	// StaleResponses counts backend responses discarded because a newer request superseded them.
	StaleResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_responses_total",
			Help:      "Responses discarded for a superseded epoch",
		},
	)

	// Epoch is the current session epoch.
	Epoch = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_epoch",
			Help:      "Current analysis epoch",
		},
	)

	// ExportsTotal counts exports by format and status.
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Total number of exports",
		},
		[]string{"format", "status"},
	)

	// ErrorsTotal counts errors by operation and type.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of errors",
		},
		[]string{"operation", "error_type"},
	)
)

// RecordAnalysis records one backend analysis request.
func RecordAnalysis(status string, duration float64) {
	AnalysisTotal.WithLabelValues(status).Inc()
	AnalysisDuration.Observe(duration)
}

// RecordKeywordResults records how many keywords succeeded and failed in a response.
func RecordKeywordResults(ok, failed int) {
	KeywordResults.WithLabelValues("ok").Add(float64(ok))
	KeywordResults.WithLabelValues("error").Add(float64(failed))
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	CacheLookups.WithLabelValues("miss").Inc()
}

// RecordStale records a discarded stale response.
func RecordStale() {
	StaleResponses.Inc()
}

// SetEpoch publishes the current epoch.
func SetEpoch(epoch uint64) {
	Epoch.Set(float64(epoch))
}

// RecordExport records an export.
func RecordExport(format, status string) {
	ExportsTotal.WithLabelValues(format, status).Inc()
}

// RecordError records an error.
func RecordError(operation, errorType string) {
	ErrorsTotal.WithLabelValues(operation, errorType).Inc()
}
