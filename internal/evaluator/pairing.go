package evaluator

import "github.com/Nicotcy/arb-scanner/pkg/types"

// Pair is one matched cross-venue snapshot pair ready for evaluation.
type Pair struct {
	A types.MarketSnapshot
	B types.MarketSnapshot
}

// PairByQuestion implements mode-(b) pairing from §4.2: normalized
// question equality plus identical outcome tuple, used as a fallback when
// no mapping-registry entry exists for a venue-A market. Grounded on
// original_source/arb_scanner/models.py's iter_pairs.
func PairByQuestion(aSnaps, bSnaps []types.MarketSnapshot) []Pair {
	var pairs []Pair
	for _, a := range aSnaps {
		for _, b := range bSnaps {
			if !sameQuestion(a.Market, b.Market) {
				continue
			}
			pairs = append(pairs, Pair{A: a, B: b})
			break
		}
	}
	return pairs
}

func sameQuestion(a, b types.Market) bool {
	if types.NormalizedQuestion(a.Question) != types.NormalizedQuestion(b.Question) {
		return false
	}
	return sameOutcomeTuple(a.Outcomes, b.Outcomes)
}

func sameOutcomeTuple(a, b [2]string) bool {
	return lower(a[0]) == lower(b[0]) && lower(a[1]) == lower(b[1])
}

func lower(s string) string {
	return types.NormalizedQuestion(s)
}
