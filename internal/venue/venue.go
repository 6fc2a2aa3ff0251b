// Package venue defines the capability contract both exchange clients
// satisfy. Per the spec's design notes (§9), the two venues are modeled as
// independent values satisfying one small interface rather than as
// subclasses of a shared base — polymorphism via capability, not
// inheritance.
package venue

import (
	"context"

	"github.com/Nicotcy/arb-scanner/pkg/types"
)

// RawMarket is a venue-native market listing entry, before binary/outcome
// gating and before price normalization.
type RawMarket struct {
	Venue    types.Venue
	MarketID string
	Question string
	Outcomes [2]string
	// ExtraID carries a venue-specific secondary identifier: the Gamma
	// slug for venue B (used by the mapping registry), unused for venue A.
	ExtraID string
}

// RawTopOfBook is a venue-native top-of-book payload. Prices are already in
// [0,1] (the venue client divides cents by 100 where applicable) but a
// pointer is used so "absent" is representable without a sentinel float.
type RawTopOfBook struct {
	YesBid *float64
	YesAsk *float64
	NoBid  *float64
	NoAsk  *float64
	// YesSize/NoSize are the top bid-level sizes on each side.
	YesSize float64
	NoSize  float64
	// YesAskSize/NoAskSize are the top ask-level sizes on each side, as
	// reported by a genuinely two-sided venue's own book. Bid-only venues
	// never populate these: the normalizer derives their ask sizes from
	// the complementary side's bid size instead.
	YesAskSize float64
	NoAskSize  float64
	// BidOnly marks a venue whose book exposes bids only; the normalizer
	// must derive asks by complementarity for these.
	BidOnly bool
	// Executable is false for a metadata-only fallback fetch (venue B,
	// orderbook empty/inaccessible). Such a fetch carries size 0, so the
	// evaluator skips every direction that uses it and it yields no signal.
	Executable bool
}

// Client is the capability contract for a read-only venue data source.
// Both variants (venue A, venue B) implement it independently.
type Client interface {
	// Name identifies the venue for logging and metrics labels.
	Name() string

	// ListOpenMarkets paginates the venue's open-market listing via an
	// opaque cursor, stopping at end-of-list or maxPages.
	ListOpenMarkets(ctx context.Context, maxPages, limitPerPage int) ([]RawMarket, error)

	// FetchTopOfBook returns top-of-book for a single market id.
	FetchTopOfBook(ctx context.Context, marketID string) (RawTopOfBook, error)

	// ResolveSlugToTokens resolves a venue-B slug to its yes/no token ids.
	// Venue A implementations return ok=false always.
	ResolveSlugToTokens(ctx context.Context, slug string) (yesToken, noToken string, ok bool, err error)
}
