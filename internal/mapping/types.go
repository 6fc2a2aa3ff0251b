package mapping

import "github.com/Nicotcy/arb-scanner/pkg/types"

// Entry is one curated cross-venue market pairing as it appears in the
// mapping file on disk. Grounded on
// original_source/arb_scanner/mappings.py's MarketMapping dataclass
// (kalshi_ticker/polymarket_slug). VenueBSlug is the Gamma slug used to
// resolve token ids; it is kept alongside the resolved ids rather than
// discarded, since a stale token pair is re-resolved from the slug.
type Entry struct {
	VenueAMarketID string `json:"venue_a_market_id"`
	VenueBSlug     string `json:"venue_b_slug"`
	VenueBID       string `json:"venue_b_market_id,omitempty"`
	VenueBYesToken string `json:"venue_b_yes_token,omitempty"`
	VenueBNoToken  string `json:"venue_b_no_token,omitempty"`
}

// TokensResolved reports whether both venue-B token ids are known, i.e.
// whether the daemon can use this entry for cross-venue pairing at all.
func (e Entry) TokensResolved() bool {
	return e.VenueBYesToken != "" && e.VenueBNoToken != ""
}

// ToMarketMapping projects the on-disk entry to the evaluator-facing type.
func (e Entry) ToMarketMapping() types.MarketMapping {
	return types.MarketMapping{
		VenueAID:       e.VenueAMarketID,
		VenueBID:       e.VenueBID,
		VenueBYesToken: e.VenueBYesToken,
		VenueBNoToken:  e.VenueBNoToken,
	}
}
