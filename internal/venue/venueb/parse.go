package venueb

import (
	"strconv"

	goccyjson "github.com/goccy/go-json"
)

// splitJSONStringArray decodes the Gamma API's "clobTokenIds" field, which
// is itself a JSON-encoded array of strings rather than a native array.
func splitJSONStringArray(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := goccyjson.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

// yesOutcomePrice decodes the Gamma API's "outcomePrices" field (a
// JSON-encoded two-element string array ["yesPrice","noPrice"], in the same
// outcome order as clobTokenIds) and returns the yes-side price.
func yesOutcomePrice(raw string) (float64, bool) {
	prices := splitJSONStringArray(raw)
	if len(prices) != 2 {
		return 0, false
	}
	p, err := strconv.ParseFloat(prices[0], 64)
	if err != nil {
		return 0, false
	}
	return p, true
}
