// Package metrics defines the Prometheus collectors for bot runs and exposes
// an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the bot. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	RequestsProcessedTotal *prometheus.CounterVec
	StageResultsTotal      *prometheus.CounterVec
	CatalogMatchesTotal    *prometheus.CounterVec
	EnrichmentTotal        *prometheus.CounterVec
	RunsTotal              *prometheus.CounterVec
	StageDuration          *prometheus.HistogramVec
	ExternalCallDuration   *prometheus.HistogramVec
	RequestsInFlight       prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		RequestsProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "suggestbot_requests_processed_total",
				Help: "Requests processed by final bot status (completed, error, skipped).",
			},
			[]string{"result"},
		),
		StageResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "suggestbot_stage_results_total",
				Help: "Stage outcomes by stage and outcome (success, skipped, failed).",
			},
			[]string{"stage", "outcome"},
		),
		CatalogMatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "suggestbot_catalog_matches_total",
				Help: "Catalog lookups by match classification.",
			},
			[]string{"match"},
		),
		EnrichmentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "suggestbot_enrichment_confidence_total",
				Help: "Open Library enrichments by match confidence.",
			},
			[]string{"confidence"},
		),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "suggestbot_runs_total",
				Help: "Batch runs by final status.",
			},
			[]string{"status"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "suggestbot_stage_duration_seconds",
				Help:    "Stage latency in seconds.",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),
		ExternalCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "suggestbot_external_call_duration_seconds",
				Help:    "Latency of catalog and Open Library API calls in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"source", "operation"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "suggestbot_requests_in_flight",
				Help: "Requests currently moving through the pipeline.",
			},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.RequestsProcessedTotal,
		m.StageResultsTotal,
		m.CatalogMatchesTotal,
		m.EnrichmentTotal,
		m.RunsTotal,
		m.StageDuration,
		m.ExternalCallDuration,
		m.RequestsInFlight,
	)
	return m
}

// Handler returns the scrape handler for the registry m was built with.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveStage records one stage outcome.
func (m *Metrics) ObserveStage(stage, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.StageResultsTotal.WithLabelValues(stage, outcome).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// ObserveRequest records the final status of one request.
func (m *Metrics) ObserveRequest(result string) {
	if m == nil {
		return
	}
	m.RequestsProcessedTotal.WithLabelValues(result).Inc()
}

// ObserveCatalogMatch records a catalog classification.
func (m *Metrics) ObserveCatalogMatch(match string) {
	if m == nil {
		return
	}
	m.CatalogMatchesTotal.WithLabelValues(match).Inc()
}

// ObserveEnrichment records an enrichment confidence.
func (m *Metrics) ObserveEnrichment(confidence string) {
	if m == nil {
		return
	}
	m.EnrichmentTotal.WithLabelValues(confidence).Inc()
}

// ObserveRun records a finished batch run.
func (m *Metrics) ObserveRun(status string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
}

// ExternalCallObserver returns a callback suitable for the catalog and Open
// Library client observer options.
func (m *Metrics) ExternalCallObserver(source string) func(operation string, elapsed time.Duration, err error) {
	return func(operation string, elapsed time.Duration, _ error) {
		if m == nil {
			return
		}
		m.ExternalCallDuration.WithLabelValues(source, operation).Observe(elapsed.Seconds())
	}
}

// TrackInFlight increments the in-flight gauge and returns the matching
// decrement.
func (m *Metrics) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.RequestsInFlight.Inc()
	return m.RequestsInFlight.Dec
}
