package venue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchErrorsTotal tracks network/payload-shape failures per venue,
	// error kind 1-2 of §7 (never fatal, always counted).
	FetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_scanner_venue_fetch_errors_total",
			Help: "Total venue client fetch errors by venue and kind",
		},
		[]string{"venue", "kind"},
	)

	// FetchDurationSeconds tracks HTTP round-trip latency per venue/op.
	FetchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arb_scanner_venue_fetch_duration_seconds",
			Help:    "Venue client fetch duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"venue", "op"},
	)

	// MarketsListedTotal tracks markets returned from ListOpenMarkets.
	MarketsListedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_scanner_venue_markets_listed_total",
			Help: "Total markets returned by venue listing calls",
		},
		[]string{"venue"},
	)
)
