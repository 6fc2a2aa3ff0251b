package paperexec

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExecutionsTotal tracks paper execution attempts by outcome.
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_scanner_paper_executions_total",
			Help: "Total number of paper trade execution attempts by outcome",
		},
		[]string{"outcome"},
	)

	// SettledTotal tracks auto-settled paper trades.
	SettledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_scanner_paper_settled_total",
		Help: "Total number of paper trades auto-settled",
	})

	// NotionalOpenedUSD tracks cumulative notional locked into open trades.
	NotionalOpenedUSD = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_scanner_paper_notional_opened_usd",
		Help: "Cumulative notional (sum_price * size) committed to paper trades",
	})

	// ProfitRealizedUSD tracks cumulative realized paper profit.
	ProfitRealizedUSD = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_scanner_paper_profit_realized_usd",
		Help: "Cumulative hypothetical profit realized on settled paper trades",
	})
)
