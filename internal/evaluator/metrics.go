package evaluator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpportunitiesTotal counts opportunity-classified signals by kind
	// (internal vs cross_venue).
	OpportunitiesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_scanner_evaluator_opportunities_total",
			Help: "Total opportunity signals emitted by the evaluator",
		},
		[]string{"kind"},
	)

	// NearMissesTotal counts near-miss-classified signals by kind.
	NearMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_scanner_evaluator_near_misses_total",
			Help: "Total near-miss signals emitted by the evaluator",
		},
		[]string{"kind"},
	)
)
