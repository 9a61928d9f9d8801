// Package metrics exposes the engine's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Calculations counts calculations served, by operation and result mode
	// (live or estimate).
	Calculations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calculo_calculations_total",
			Help: "Calculations served, by operation and result mode.",
		},
		[]string{"operation", "mode"},
	)

	// SeriesFetches counts fetches against the SGS time-series API.
	SeriesFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calculo_sgs_fetches_total",
			Help: "Fetches against the SGS time-series API, by index and outcome.",
		},
		[]string{"index", "outcome"},
	)

	// CacheEvents counts latest-value cache lookups.
	CacheEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calculo_latest_cache_total",
			Help: "Latest-value cache lookups, by index and event.",
		},
		[]string{"index", "event"},
	)
)

// Label values used with the collectors above.
const (
	ModeLive     = "live"
	ModeEstimate = "estimate"

	OutcomeOK        = "ok"
	OutcomeTransport = "transport_error"
	OutcomeBadStatus = "bad_status"
	OutcomeNoData    = "no_data"

	EventHit  = "hit"
	EventMiss = "miss"
)
