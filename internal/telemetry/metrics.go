// Package telemetry exports Prometheus metrics for comment analysis.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "commentpulse"

// Metrics holds all analysis metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// Generative backend metrics
	GenerativeAttempts *prometheus.CounterVec
	Fallbacks          *prometheus.CounterVec

	// Analysis metrics
	Analyses         *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	CommentsAnalyzed prometheus.Counter

	// Result cache metrics
	CacheLookups *prometheus.CounterVec
}

// NewMetrics registers all metrics with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.GenerativeAttempts = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generative_attempts_total",
		Help:      "Generative backend attempts by outcome (success, overloaded, transient, parse)",
	}, []string{"provider", "outcome"})

	m.Fallbacks = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generative_fallbacks_total",
		Help:      "Analyses that exhausted generative retries and used the local analyzer",
	}, []string{"provider"})

	m.Analyses = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analyses_total",
		Help:      "Completed analyses by analyzer path",
	}, []string{"path"})

	m.AnalysisDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "analysis_duration_seconds",
		Help:      "Time to analyze one batch of comments",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"path"})

	m.CommentsAnalyzed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "comments_analyzed_total",
		Help:      "Total comments analyzed",
	})

	m.CacheLookups = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "result_cache_lookups_total",
		Help:      "Result cache lookups by result (hit, miss)",
	}, []string{"result"})

	return m
}

// RecordAttempt counts one generative attempt.
func (m *Metrics) RecordAttempt(provider, outcome string) {
	if m == nil {
		return
	}
	m.GenerativeAttempts.WithLabelValues(provider, outcome).Inc()
}

// RecordFallback counts one exhausted generative analysis.
func (m *Metrics) RecordFallback(provider string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(provider).Inc()
}

// RecordAnalysis records a finished analysis.
func (m *Metrics) RecordAnalysis(path string, comments int, duration time.Duration) {
	if m == nil {
		return
	}
	m.Analyses.WithLabelValues(path).Inc()
	m.AnalysisDuration.WithLabelValues(path).Observe(duration.Seconds())
	m.CommentsAnalyzed.Add(float64(comments))
}

// RecordCacheLookup counts a result cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
