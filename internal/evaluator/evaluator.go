// Package evaluator implements the pure arithmetic and classification
// rules that turn a pair of snapshots into zero, one, or two Signals.
// Grounded on original_source/daemon.py's inline cost/raw_edge/buf_edge
// computation and the internal_floor/internal_ceiling near-miss window,
// restructured as the teacher's arbitrage package's small-value-type +
// promauto-metrics idiom (internal/arbitrage/opportunity.go), but kept a
// pure function per §4.2's "no I/O" contract rather than a stateful
// detector wired to a live orderbook channel.
package evaluator

import (
	"math"

	"github.com/Nicotcy/arb-scanner/pkg/types"
)

const weirdSumDetail = "WEIRD_SUM"

// direction is one leg-pairing candidate: buy yes at venue X, buy no at
// venue Y (X may equal Y for intra-venue evaluation).
type direction struct {
	yesVenue   types.Venue
	yesMarket  string
	noVenue    types.Venue
	noMarket   string
	priceYes   float64
	priceNo    float64
	sizeYes    float64
	sizeNo     float64
	bothPriced bool
}

// EvaluateCrossVenue evaluates both hedge directions between two snapshots
// of the same underlying event on different venues, returning signals
// sorted per §4.2's ordering rule (buf_edge desc, exec_size desc,
// a_market_id asc).
func EvaluateCrossVenue(sA, sB types.MarketSnapshot, policy PolicyConfig, ts int64) []types.Signal {
	dirs := []direction{
		{
			yesVenue: sA.Market.Venue, yesMarket: sA.Market.MarketID,
			noVenue: sB.Market.Venue, noMarket: sB.Market.MarketID,
			priceYes: sA.Book.BestYesAskPrice, priceNo: sB.Book.BestNoAskPrice,
			sizeYes: sA.Book.BestYesAskSize, sizeNo: sB.Book.BestNoAskSize,
			bothPriced: sA.Book.YesAskPriceSet && sB.Book.NoAskPriceSet,
		},
		{
			yesVenue: sB.Market.Venue, yesMarket: sB.Market.MarketID,
			noVenue: sA.Market.Venue, noMarket: sA.Market.MarketID,
			priceYes: sB.Book.BestYesAskPrice, priceNo: sA.Book.BestNoAskPrice,
			sizeYes: sB.Book.BestYesAskSize, sizeNo: sA.Book.BestNoAskSize,
			bothPriced: sB.Book.YesAskPriceSet && sA.Book.NoAskPriceSet,
		},
	}

	var out []types.Signal
	for _, d := range dirs {
		sig, ok := evaluateDirection(d, types.SignalCrossVenue, false, policy, ts)
		if ok {
			out = append(out, sig)
		}
	}

	return sortSignals(out)
}

// EvaluateIntraVenue evaluates the single same-venue hedge direction (buy
// yes and buy no in the same market), used for self-test / observability
// signals per §9's intra-venue mode.
func EvaluateIntraVenue(snap types.MarketSnapshot, policy PolicyConfig, ts int64) []types.Signal {
	d := direction{
		yesVenue: snap.Market.Venue, yesMarket: snap.Market.MarketID,
		noVenue: snap.Market.Venue, noMarket: snap.Market.MarketID,
		priceYes: snap.Book.BestYesAskPrice, priceNo: snap.Book.BestNoAskPrice,
		sizeYes: snap.Book.BestYesAskSize, sizeNo: snap.Book.BestNoAskSize,
		bothPriced: snap.Book.YesAskPriceSet && snap.Book.NoAskPriceSet,
	}

	sig, ok := evaluateDirection(d, types.SignalInternal, true, policy, ts)
	if !ok {
		return nil
	}
	return []types.Signal{sig}
}

func evaluateDirection(d direction, kind types.SignalKind, intraVenue bool, policy PolicyConfig, ts int64) (types.Signal, bool) {
	// Category-4 evaluator-input errors: any absent price or non-positive
	// size skips the direction entirely. No signal, no reject record.
	if !d.bothPriced {
		return types.Signal{}, false
	}
	if d.sizeYes <= 0 || d.sizeNo <= 0 {
		return types.Signal{}, false
	}

	cost := d.priceYes + d.priceNo
	rawEdge := 1 - cost
	feeBuffer := cost * (policy.FeeBufferBps / 10_000)
	bufEdge := rawEdge - feeBuffer
	execSize := math.Min(d.sizeYes, d.sizeNo)

	class, details := classify(cost, bufEdge, execSize, intraVenue, policy)
	if class == types.ClassReject {
		return types.Signal{}, false
	}

	sig := types.Signal{
		Ts:        ts,
		Kind:      kind,
		AVenue:    d.yesVenue,
		AMarketID: d.yesMarket,
		HasB:      !intraVenue,
		BVenue:    d.noVenue,
		BMarketID: d.noMarket,
		SumPrice:  cost,
		RawEdge:   rawEdge,
		BufEdge:   bufEdge,
		ExecSize:  execSize,
		Class:     class,
		Details:   details,
	}

	switch class {
	case types.ClassOpportunity:
		OpportunitiesTotal.WithLabelValues(string(kind)).Inc()
	case types.ClassNearMiss:
		NearMissesTotal.WithLabelValues(string(kind)).Inc()
	}

	return sig, true
}

// classify applies §4.2's classification rule. The near-miss window's
// upper bound is min(min_edge_opportunity, near_miss_edge_ceiling): the
// ceiling (default +Inf) can only tighten the window, never widen it past
// the opportunity threshold.
func classify(cost, bufEdge, execSize float64, intraVenue bool, policy PolicyConfig) (types.Classification, string) {
	// A weird intra-venue sum can never be an opportunity, regardless of
	// edge: it overrides the normal classification entirely.
	if intraVenue && (cost < 0.90 || cost > 1.10) {
		if execSize < policy.MinExecutableSize || bufEdge < policy.NearMissEdgeFloor {
			return types.ClassReject, ""
		}
		if !policy.NearMissIncludeWeirdSums {
			return types.ClassReject, ""
		}
		return types.ClassNearMiss, weirdSumDetail
	}

	minEdge := policy.EffectiveMinEdge()

	if bufEdge >= minEdge && execSize >= policy.MinExecutableSize {
		return types.ClassOpportunity, ""
	}

	upperBound := math.Min(minEdge, policy.EffectiveNearMissCeiling())
	inWindow := bufEdge >= policy.NearMissEdgeFloor && bufEdge < upperBound
	if inWindow && execSize >= policy.MinExecutableSize {
		return types.ClassNearMiss, ""
	}

	return types.ClassReject, ""
}

// sortSignals orders by buf_edge descending, then exec_size descending,
// then a_market_id ascending, per §4.2.
func sortSignals(signals []types.Signal) []types.Signal {
	for i := 1; i < len(signals); i++ {
		j := i
		for j > 0 && less(signals[j], signals[j-1]) {
			signals[j], signals[j-1] = signals[j-1], signals[j]
			j--
		}
	}
	return signals
}

func less(a, b types.Signal) bool {
	if a.BufEdge != b.BufEdge {
		return a.BufEdge > b.BufEdge
	}
	if a.ExecSize != b.ExecSize {
		return a.ExecSize > b.ExecSize
	}
	return a.AMarketID < b.AMarketID
}
