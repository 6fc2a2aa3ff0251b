package daemon

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Nicotcy/arb-scanner/internal/controlplane"
	"github.com/Nicotcy/arb-scanner/internal/evaluator"
	"github.com/Nicotcy/arb-scanner/internal/normalize"
	"github.com/Nicotcy/arb-scanner/internal/storage"
	"github.com/Nicotcy/arb-scanner/internal/venue"
	"github.com/Nicotcy/arb-scanner/pkg/types"
)

// evaluateOne fetches and evaluates a single venue-A market: its intra-venue
// hedge (if enabled) and, when a venue-B counterpart can be resolved, its
// cross-venue hedge. Runs concurrently across a batch from iterate, so it
// must not mutate App state directly.
func (a *App) evaluateOne(ctx context.Context, m venue.RawMarket, universeB []venue.RawMarket, control controlplane.State, ts int64) result {
	policy := a.effectivePolicy(control)

	snapA, ok := a.snapshotVenueA(ctx, m, ts)
	if !ok {
		return result{}
	}

	var out result
	out.rows = append(out.rows, snapshotRowFrom(snapA))

	if a.cfg.UseInternal {
		out.signals = append(out.signals, evaluator.EvaluateIntraVenue(snapA, policy, ts)...)
	}

	if a.cfg.UseCross && a.deps.VenueB != nil {
		bm, yesTok, noTok, ok := a.resolveVenueBPairing(ctx, m, universeB)
		if !ok {
			a.deps.Logger.Debug("venue-b-pairing-unresolved", zap.String("market-id", m.MarketID), zap.String("reason", string(normalize.ReasonMissingTokens)))
		} else {
			snapB, ok := a.snapshotVenueB(ctx, bm, yesTok, noTok, ts)
			if ok {
				out.rows = append(out.rows, snapshotRowFrom(snapB))
				out.signals = append(out.signals, evaluator.EvaluateCrossVenue(snapA, snapB, policy, ts)...)
			}
		}
	}

	return out
}

// effectivePolicy overlays the control plane's live min_buf_edge onto the
// configured policy, leaving every other threshold untouched.
func (a *App) effectivePolicy(control controlplane.State) evaluator.PolicyConfig {
	p := a.cfg.Policy
	if control.MinBufEdge > 0 {
		p.MinEdgeOpportunity = control.MinBufEdge
	}
	return p
}

func snapshotRowFrom(s types.MarketSnapshot) snapshotRow {
	row := snapshotRow{Ts: s.Ts, Venue: s.Market.Venue, MarketID: s.Market.MarketID, Question: s.Market.Question}
	if s.Book.YesAskPriceSet {
		v := s.Book.BestYesAskPrice
		row.YesAsk = &v
		sz := s.Book.BestYesAskSize
		row.YesSz = &sz
	}
	if s.Book.NoAskPriceSet {
		v := s.Book.BestNoAskPrice
		row.NoAsk = &v
		sz := s.Book.BestNoAskSize
		row.NoSz = &sz
	}
	return row
}

// maybeRefreshUniverse re-lists both venues' open markets when the refresh
// interval has elapsed. A failure leaves the cached universe in place
// (§4.3 step 2's cached-fallback rule) unless the cache is empty, in which
// case the caller treats it as fatal for this iteration.
func (a *App) maybeRefreshUniverse(ctx context.Context) error {
	a.mu.RLock()
	due := time.Since(a.state.universeRefreshedAt) >= time.Duration(a.cfg.RefreshMarketsSecs)*time.Second
	a.mu.RUnlock()
	if !due {
		return nil
	}

	aMarkets, err := a.deps.VenueA.ListOpenMarkets(ctx, a.cfg.MaxPagesPerRefresh, a.cfg.MarketsPerPage)
	if err != nil {
		return err
	}

	var bMarkets []venue.RawMarket
	if a.cfg.UseCross && a.deps.VenueB != nil {
		bMarkets, err = a.deps.VenueB.ListOpenMarkets(ctx, a.cfg.MaxPagesPerRefresh, a.cfg.MarketsPerPage)
		if err != nil {
			return err
		}
		if a.deps.Mapping != nil {
			a.deps.Mapping.ResolveAll(ctx)
		}
	}

	a.mu.Lock()
	a.state.universeA = aMarkets
	a.state.universeB = bMarkets
	a.state.universeRefreshedAt = time.Now()
	a.mu.Unlock()

	UniverseSize.Set(float64(len(aMarkets)))
	a.deps.Logger.Info("universe-refreshed", zap.Int("venue-a-markets", len(aMarkets)), zap.Int("venue-b-markets", len(bMarkets)))
	return nil
}

// persistSnapshots converts daemon-local snapshotRow values to the storage
// package's SnapshotRow and writes them idempotently.
func (a *App) persistSnapshots(ctx context.Context, rows []snapshotRow) error {
	if len(rows) == 0 {
		return nil
	}
	converted := make([]storage.SnapshotRow, 0, len(rows))
	for _, r := range rows {
		converted = append(converted, storage.SnapshotRow{
			Ts: r.Ts, Venue: r.Venue, MarketID: r.MarketID, Question: r.Question,
			YesAsk: r.YesAsk, NoAsk: r.NoAsk, YesSz: r.YesSz, NoSz: r.NoSz,
		})
	}
	_, err := a.deps.Store.InsertSnapshots(ctx, converted)
	return err
}
