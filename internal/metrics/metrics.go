// Package metrics exports Prometheus metrics for the analysis service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all service Prometheus metrics.
type Metrics struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Extraction metrics
	ExtractionsTotal  *prometheus.CounterVec
	ExtractionsFailed *prometheus.CounterVec

	// Classifier metrics
	ClassifierCalls    *prometheus.CounterVec
	ClassifierDuration prometheus.Histogram
	ClassifierTokens   prometheus.Counter
	FallbacksServed    prometheus.Counter

	// Admission metrics
	RequestsBlocked *prometheus.CounterVec
}

// New registers the service metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the service metrics on the given registerer.
// Tests pass a fresh registry so repeated construction does not collide.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safetycheck_requests_total",
			Help: "Total analysis requests by input kind and outcome",
		}, []string{"kind", "outcome"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "safetycheck_request_duration_seconds",
			Help:    "End-to-end analysis request latency",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),

		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "safetycheck_cache_hits_total",
			Help: "Analysis results served from cache",
		}),

		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "safetycheck_cache_misses_total",
			Help: "Analysis requests that missed the cache",
		}),

		ExtractionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safetycheck_extractions_total",
			Help: "Successful content extractions by platform",
		}, []string{"platform"}),

		ExtractionsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safetycheck_extractions_failed_total",
			Help: "Failed content extractions by platform and error kind",
		}, []string{"platform", "error_kind"}),

		ClassifierCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safetycheck_classifier_calls_total",
			Help: "Classifier invocations by outcome",
		}, []string{"outcome"}),

		ClassifierDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "safetycheck_classifier_duration_seconds",
			Help:    "Classifier call latency including bounded retries",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		ClassifierTokens: factory.NewCounter(prometheus.CounterOpts{
			Name: "safetycheck_classifier_tokens_total",
			Help: "Total tokens consumed by classifier calls",
		}),

		FallbacksServed: factory.NewCounter(prometheus.CounterOpts{
			Name: "safetycheck_fallbacks_served_total",
			Help: "Requests answered with the fixed fallback verdict",
		}),

		RequestsBlocked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safetycheck_requests_blocked_total",
			Help: "Requests rejected before analysis, by admission layer",
		}, []string{"layer"}),
	}
}

// Handler returns the Prometheus HTTP handler for the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records one completed request.
func (m *Metrics) RecordRequest(kind, outcome string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(kind, outcome).Inc()
	m.RequestDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordCache records a cache lookup outcome.
func (m *Metrics) RecordCache(hit bool) {
	if hit {
		m.CacheHits.Inc()
	} else {
		m.CacheMisses.Inc()
	}
}

// RecordExtraction records one extraction attempt. errorKind is empty on
// success.
func (m *Metrics) RecordExtraction(platform, errorKind string) {
	if errorKind == "" {
		m.ExtractionsTotal.WithLabelValues(platform).Inc()
		return
	}
	m.ExtractionsFailed.WithLabelValues(platform, errorKind).Inc()
}

// RecordClassifierCall records one classifier invocation.
func (m *Metrics) RecordClassifierCall(outcome string, duration time.Duration, tokens int64) {
	m.ClassifierCalls.WithLabelValues(outcome).Inc()
	m.ClassifierDuration.Observe(duration.Seconds())
	m.ClassifierTokens.Add(float64(tokens))
}

// RecordBlocked records a request rejected by an admission layer.
func (m *Metrics) RecordBlocked(layer string) {
	m.RequestsBlocked.WithLabelValues(layer).Inc()
}
