// Package metrics declares the prometheus collectors shared by the source
// adapters, the aggregator, the prefetch cache and the HTTP layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SourceFetches counts adapter invocations by source and outcome
	// ("success", "failure", "rejected").
	SourceFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "showtimes_source_fetches_total",
			Help: "Total number of upstream schedule fetches",
		},
		[]string{"source", "outcome"},
	)

	// SourceFetchDuration observes how long one adapter call took.
	SourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "showtimes_source_fetch_duration_seconds",
			Help:    "Upstream schedule fetch duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"source"},
	)

	// SourceShows counts canonical shows produced per source.
	SourceShows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "showtimes_source_shows_total",
			Help: "Total number of shows produced by source adapters",
		},
		[]string{"source"},
	)

	// Joins counts fan-in completions by policy ("strict", "tolerant") and
	// outcome ("success", "failure", "partial").
	Joins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "showtimes_joins_total",
			Help: "Total number of fan-out/fan-in joins",
		},
		[]string{"policy", "outcome"},
	)

	// PrefetchRuns counts prefetch passes actually executed.
	PrefetchRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "showtimes_prefetch_runs_total",
		Help: "Total number of prefetch passes executed",
	})

	// UniverseSize tracks the number of known titles and cinemas.
	UniverseSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "showtimes_universe_size",
			Help: "Distinct titles and cinemas observed this process",
		},
		[]string{"kind"},
	)

	// BreakerState mirrors each source circuit breaker: 0 closed, 1 half-open, 2 open.
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "showtimes_source_breaker_state",
			Help: "Circuit breaker state per source",
		},
		[]string{"source"},
	)

	// Sessions tracks live browsing sessions.
	Sessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "showtimes_sessions_active",
		Help: "Number of live browsing sessions",
	})

	// APIRequests counts HTTP requests by method, route and status.
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "showtimes_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	// EventsPublished counts broker publications by outcome.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "showtimes_events_published_total",
			Help: "Total number of schedule.aggregated events published",
		},
		[]string{"outcome"},
	)
)
