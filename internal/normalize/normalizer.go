// Package normalize converts venue-raw market and top-of-book payloads into
// uniform MarketSnapshot records. Grounded on original_source's
// arb_scanner/models.py (the MarketSnapshot shape) and kalshi_public.py's
// cents-to-dollars/complementarity conventions, restructured as a pure
// function in the teacher's arbitrage package idiom (no metrics, and
// zap-free since there is no I/O here to log).
package normalize

import (
	"github.com/Nicotcy/arb-scanner/internal/venue"
	"github.com/Nicotcy/arb-scanner/pkg/types"
)

// Reason classifies why no snapshot was produced.
type Reason string

const (
	ReasonMissingPrices Reason = "missing_prices"
	ReasonMissingTokens Reason = "missing_tokens"
	ReasonNotBinary     Reason = "not_binary"
	ReasonFetchError    Reason = "fetch_error"
)

// Policy configures the two-sided requirement for emitted snapshots.
type Policy struct {
	// RequireTwoSided, when true, refuses to emit a one-sided snapshot
	// (only one of yes/no priced); such books are dropped with
	// ReasonMissingPrices rather than recorded one-sided.
	RequireTwoSided bool
}

// Normalize applies price normalization, ask derivation, the binary gate
// and the two-sided policy to a single venue-raw observation, returning a
// MarketSnapshot or a reason why none could be produced.
func Normalize(market venue.RawMarket, top venue.RawTopOfBook, ts int64, policy Policy) (types.MarketSnapshot, Reason, bool) {
	m := types.Market{
		Venue:    market.Venue,
		MarketID: market.MarketID,
		Question: market.Question,
		Outcomes: market.Outcomes,
	}
	if !m.IsBinary() {
		return types.MarketSnapshot{}, ReasonNotBinary, false
	}

	book := buildBook(top)

	if policy.RequireTwoSided && !book.TwoSided() {
		return types.MarketSnapshot{}, ReasonMissingPrices, false
	}
	if !book.YesPriceSet() && !book.NoPriceSet() {
		return types.MarketSnapshot{}, ReasonMissingPrices, false
	}

	snap := types.MarketSnapshot{
		Market:     m,
		Book:       book,
		Ts:         ts,
		Executable: top.Executable,
	}
	return snap, "", true
}

// buildBook normalizes prices (÷100 when >1, clamp to [0,1]) and derives
// the complementary ask side for bid-only venues.
func buildBook(top venue.RawTopOfBook) types.OrderBookTop {
	var book types.OrderBookTop

	yesBid := normalizePrice(top.YesBid)
	yesAsk := normalizePrice(top.YesAsk)
	noBid := normalizePrice(top.NoBid)
	noAsk := normalizePrice(top.NoAsk)

	if top.BidOnly {
		// Derive uniformly by complementarity; never fall back to a raw
		// ask field even if one happened to be present.
		if noBid != nil {
			derived := 1 - *noBid
			yesAsk = &derived
		} else {
			yesAsk = nil
		}
		if yesBid != nil {
			derived := 1 - *yesBid
			noAsk = &derived
		} else {
			noAsk = nil
		}
	}

	if yesBid != nil {
		book.BestYesPrice = *yesBid
		book.BestYesPriceSet = true
		book.BestYesSize = top.YesSize
	}
	if yesAsk != nil {
		book.BestYesAskPrice = *yesAsk
		book.YesAskPriceSet = true
		if top.BidOnly {
			book.BestYesAskSize = top.NoSize
		} else {
			book.BestYesAskSize = top.YesAskSize
		}
	}
	if noBid != nil {
		book.BestNoPrice = *noBid
		book.BestNoPriceSet = true
		book.BestNoSize = top.NoSize
	}
	if noAsk != nil {
		book.BestNoAskPrice = *noAsk
		book.NoAskPriceSet = true
		if top.BidOnly {
			book.BestNoAskSize = top.YesSize
		} else {
			book.BestNoAskSize = top.NoAskSize
		}
	}

	return book
}

func normalizePrice(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	if v > 1 {
		v = v / 100
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return &v
}
