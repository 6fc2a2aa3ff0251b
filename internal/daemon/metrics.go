package daemon

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IterationsTotal counts completed iterations by outcome.
	IterationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_scanner_daemon_iterations_total",
			Help: "Total number of daemon loop iterations by outcome",
		},
		[]string{"outcome"},
	)

	// IterationDurationSeconds observes wall-clock time per iteration.
	IterationDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_scanner_daemon_iteration_duration_seconds",
		Help:    "Duration of a single daemon loop iteration",
		Buckets: prometheus.DefBuckets,
	})

	// UniverseSize reports the number of markets currently tracked.
	UniverseSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arb_scanner_daemon_universe_size",
		Help: "Number of markets currently in the scan universe",
	})

	// ConsecutiveFailures reports the current backoff attempt count.
	ConsecutiveFailures = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arb_scanner_daemon_consecutive_failures",
		Help: "Number of consecutive failed iterations since the last success",
	})

	// CooldownSkipsTotal counts trade attempts skipped due to cooldown.
	CooldownSkipsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_scanner_daemon_cooldown_skips_total",
		Help: "Total number of paper-execution attempts skipped due to an active cooldown",
	})
)
