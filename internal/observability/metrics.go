// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "litreview"

// Metrics holds the Prometheus collectors for one process. Each Metrics
// owns its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	// RunsTotal counts pipeline runs by outcome (completed, failed).
	RunsTotal *prometheus.CounterVec

	// StageDuration observes stage duration in seconds, labeled by stage.
	StageDuration *prometheus.HistogramVec

	// StageFailures counts aborted stages, labeled by stage.
	StageFailures *prometheus.CounterVec

	// PapersFound observes the number of papers returned per run.
	PapersFound prometheus.Histogram

	// SearchBackendErrors counts absorbed search backend failures, labeled by backend.
	SearchBackendErrors *prometheus.CounterVec

	// LLMRequests counts model calls, labeled by tier and outcome.
	LLMRequests *prometheus.CounterVec

	// LLMRequestDuration observes model call duration in seconds, labeled by tier.
	LLMRequestDuration *prometheus.HistogramVec

	// MemoryEntries tracks the number of entries held by the semantic memory.
	MemoryEntries prometheus.Gauge
}

// NewMetrics creates and registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by outcome",
		}, []string{"outcome"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"stage"}),
		StageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Total number of aborted pipeline stages",
		}, []string{"stage"}),
		PapersFound: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "papers_found",
			Help:      "Number of papers returned by the search stage per run",
			Buckets:   []float64{0, 1, 3, 5, 10, 20, 50},
		}),
		SearchBackendErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_backend_errors_total",
			Help:      "Total number of absorbed search backend failures",
		}, []string{"backend"}),
		LLMRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of language model requests",
		}, []string{"tier", "outcome"}),
		LLMRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of language model requests in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"tier"}),
		MemoryEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_entries",
			Help:      "Number of entries in the semantic memory index",
		}),
	}
}

// Registry returns the registry holding these collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordStage records a finished stage.
func (m *Metrics) RecordStage(stage string, durationSeconds float64, failed bool) {
	m.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
	if failed {
		m.StageFailures.WithLabelValues(stage).Inc()
	}
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(failed bool) {
	if failed {
		m.RunsTotal.WithLabelValues("failed").Inc()
		return
	}
	m.RunsTotal.WithLabelValues("completed").Inc()
}

// RecordLLMRequest records one model call.
func (m *Metrics) RecordLLMRequest(tier string, durationSeconds float64, failed bool) {
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	m.LLMRequests.WithLabelValues(tier, outcome).Inc()
	m.LLMRequestDuration.WithLabelValues(tier).Observe(durationSeconds)
}
