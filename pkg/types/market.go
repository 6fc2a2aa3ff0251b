// Package types holds the value aggregates shared across venue clients,
// the normalizer, the evaluator, storage and the paper executor. Every
// type here is a plain struct, immutable after construction.
package types

import "strings"

// Venue tags which of the two supported exchanges a record came from.
type Venue string

const (
	VenueA Venue = "A"
	VenueB Venue = "B"
)

// Market describes a single binary (or attempted-binary) market on one venue.
type Market struct {
	Venue    Venue
	MarketID string
	Question string
	Outcomes [2]string // ordered pair, e.g. {"Yes", "No"}
}

// IsBinary reports whether Outcomes is exactly {yes, no}, case-insensitively.
func (m Market) IsBinary() bool {
	a := strings.ToLower(strings.TrimSpace(m.Outcomes[0]))
	b := strings.ToLower(strings.TrimSpace(m.Outcomes[1]))
	return (a == "yes" && b == "no") || (a == "no" && b == "yes")
}

// NormalizedQuestion returns the question lowercased with whitespace
// collapsed, used for the question-equality pairing fallback (§4.2 mode b).
func NormalizedQuestion(question string) string {
	return strings.Join(strings.Fields(strings.ToLower(question)), " ")
}

// MarketMapping is a curated cross-venue equivalence, loaded from the
// mapping registry file and optionally filled in by a one-shot
// token-resolution call against venue B.
type MarketMapping struct {
	VenueAID       string
	VenueBID       string
	VenueBYesToken string
	VenueBNoToken  string
}

// TokensResolved reports whether both venue-B token ids are known.
func (m MarketMapping) TokensResolved() bool {
	return m.VenueBYesToken != "" && m.VenueBNoToken != ""
}
