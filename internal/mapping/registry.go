// Package mapping loads and serves the curated cross-venue market
// mapping registry. Grounded on original_source/arb_scanner/mappings.py's
// load_manual_mappings(), restructured into the teacher's
// config-holder-with-logger idiom (see pkg/config.Config) and reloaded
// only explicitly, never hot-watched (unlike internal/controlplane).
package mapping

import (
	"context"
	"fmt"
	"os"
	"sync"

	goccyjson "github.com/goccy/go-json"
	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/Nicotcy/arb-scanner/internal/venue"
	"github.com/Nicotcy/arb-scanner/pkg/types"
)

// Registry holds the curated pairings and the venue-B client used to
// resolve slugs to token ids lazily.
type Registry struct {
	mu       sync.RWMutex
	entries  []Entry
	resolved mapset.Set[string] // slugs already resolved, avoids repeat lookups
	path     string
	venueB   venue.Client
	logger   *zap.Logger
}

// New constructs an empty registry bound to a venue-B client for token
// resolution; call Load to populate it from disk.
func New(path string, venueB venue.Client, logger *zap.Logger) *Registry {
	return &Registry{
		path:     path,
		venueB:   venueB,
		resolved: mapset.NewSet[string](),
		logger:   logger,
	}
}

// Load reads the mapping file from disk and replaces the in-memory set.
// A missing file is not an error: it means cross-venue mode runs with an
// empty registry (mode b, question-equality pairing, may still apply).
func (r *Registry) Load() error {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		r.mu.Lock()
		r.entries = nil
		r.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read mapping file %s: %w", r.path, err)
	}

	var entries []Entry
	if err := goccyjson.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse mapping file %s: %w", r.path, err)
	}

	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()

	r.logger.Info("mapping-registry-loaded",
		zap.String("path", r.path),
		zap.Int("entries", len(entries)))
	return nil
}

// Entries returns a snapshot copy of the current mapping entries.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// ResolveAll attempts a one-shot token resolution for every entry missing
// resolved venue-B token ids. Failures are logged and skipped; the daemon
// does not pair through an unresolved entry, so its venue-A market falls
// back to question-equality pairing (or stays unpaired when
// RequireMapping is set) until a later run resolves it.
func (r *Registry) ResolveAll(ctx context.Context) {
	r.mu.Lock()
	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)
	r.mu.Unlock()

	changed := false
	for i := range entries {
		e := &entries[i]
		if e.TokensResolved() || e.VenueBSlug == "" {
			continue
		}
		if r.resolved.Contains(e.VenueBSlug) {
			continue
		}

		yes, no, ok, err := r.venueB.ResolveSlugToTokens(ctx, e.VenueBSlug)
		if err != nil {
			r.logger.Warn("mapping-token-resolution-failed",
				zap.String("slug", e.VenueBSlug), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}

		e.VenueBYesToken = yes
		e.VenueBNoToken = no
		r.resolved.Add(e.VenueBSlug)
		changed = true
	}

	if changed {
		r.mu.Lock()
		r.entries = entries
		r.mu.Unlock()
	}
}

// Lookup finds the mapping entry for a given venue-A market id.
func (r *Registry) Lookup(venueAMarketID string) (types.MarketMapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.VenueAMarketID == venueAMarketID {
			return e.ToMarketMapping(), true
		}
	}
	return types.MarketMapping{}, false
}
