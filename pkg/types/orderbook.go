package types

import "time"

// OrderBookTop is the top-of-book for both legs of a binary market, bid and
// ask. A missing price is represented by its *Set flag rather than a
// sentinel float, so "absent" can never be silently treated as zero.
type OrderBookTop struct {
	BestYesPrice    float64 // bid
	BestYesPriceSet bool
	BestYesSize     float64

	BestYesAskPrice float64
	YesAskPriceSet  bool
	BestYesAskSize  float64

	BestNoPrice    float64 // bid
	BestNoPriceSet bool
	BestNoSize     float64

	BestNoAskPrice float64
	NoAskPriceSet  bool
	BestNoAskSize  float64
}

// TwoSided reports whether both legs have a known ask price — the
// condition required to actually buy both legs of a hedge.
func (o OrderBookTop) TwoSided() bool {
	return o.YesAskPriceSet && o.NoAskPriceSet
}

// YesPriceSet reports whether any yes-side price (bid or ask) is known.
func (o OrderBookTop) YesPriceSet() bool {
	return o.BestYesPriceSet || o.YesAskPriceSet
}

// NoPriceSet reports whether any no-side price (bid or ask) is known.
func (o OrderBookTop) NoPriceSet() bool {
	return o.BestNoPriceSet || o.NoAskPriceSet
}

// MarketSnapshot is an immutable tuple of a market, its top-of-book, and the
// integer-second timestamp at which the client completed the fetch.
type MarketSnapshot struct {
	Market     Market
	Book       OrderBookTop
	Ts         int64
	Executable bool // false for venue-B metadata-only fallback snapshots (size forced to 0)
}

// FetchedAt returns Ts as a time.Time, for logging only.
func (s MarketSnapshot) FetchedAt() time.Time {
	return time.Unix(s.Ts, 0).UTC()
}
