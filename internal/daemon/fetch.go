package daemon

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Nicotcy/arb-scanner/internal/normalize"
	"github.com/Nicotcy/arb-scanner/internal/venue"
	"github.com/Nicotcy/arb-scanner/pkg/types"
)

// snapshotVenueA fetches and normalizes a single venue-A market's
// top-of-book. Venue A is bid-only; the normalizer derives asks by
// complementarity, per §4.1.
func (a *App) snapshotVenueA(ctx context.Context, m venue.RawMarket, ts int64) (types.MarketSnapshot, bool) {
	top, err := a.deps.VenueA.FetchTopOfBook(ctx, m.MarketID)
	if err != nil {
		a.deps.Logger.Warn("venue-a-fetch-failed", zap.String("market-id", m.MarketID), zap.String("reason", string(normalize.ReasonFetchError)), zap.Error(err))
		return types.MarketSnapshot{}, false
	}
	snap, reason, ok := normalize.Normalize(m, top, ts, normalize.Policy{RequireTwoSided: false})
	if !ok {
		a.deps.Logger.Debug("venue-a-snapshot-dropped", zap.String("market-id", m.MarketID), zap.String("reason", string(reason)))
	}
	return snap, ok
}

// snapshotVenueB fetches the yes and no legs of a venue-B market from its
// two CLOB token books and combines them into one snapshot. Grounded on
// §4.1's venue-B handling: the CLOB book is keyed per outcome token, so a
// binary market's full snapshot requires two independent fetches.
func (a *App) snapshotVenueB(ctx context.Context, m venue.RawMarket, yesToken, noToken string, ts int64) (types.MarketSnapshot, bool) {
	yesTop, err := a.deps.VenueB.FetchTopOfBook(ctx, yesToken)
	if err != nil {
		a.deps.Logger.Warn("venue-b-fetch-failed", zap.String("market-id", m.MarketID), zap.String("leg", "yes"), zap.String("reason", string(normalize.ReasonFetchError)), zap.Error(err))
		return types.MarketSnapshot{}, false
	}
	noTop, err := a.deps.VenueB.FetchTopOfBook(ctx, noToken)
	if err != nil {
		a.deps.Logger.Warn("venue-b-fetch-failed", zap.String("market-id", m.MarketID), zap.String("leg", "no"), zap.String("reason", string(normalize.ReasonFetchError)), zap.Error(err))
		return types.MarketSnapshot{}, false
	}

	combined := venue.RawTopOfBook{
		Executable: yesTop.Executable && noTop.Executable,
		YesBid:     yesTop.YesBid,
		YesAsk:     yesTop.YesAsk,
		YesSize:    yesTop.YesSize,
		YesAskSize: yesTop.YesAskSize,
		NoBid:      noTop.YesBid,
		NoAsk:      noTop.YesAsk,
		NoSize:     noTop.YesSize,
		NoAskSize:  noTop.YesAskSize,
	}

	snap, reason, ok := normalize.Normalize(m, combined, ts, normalize.Policy{RequireTwoSided: false})
	if !ok {
		a.deps.Logger.Debug("venue-b-snapshot-dropped", zap.String("market-id", m.MarketID), zap.String("reason", string(reason)))
	}
	return snap, ok
}

// resolveVenueBPairing finds a venue-B counterpart for a venue-A market.
// It prefers the curated mapping registry (mode a); when no entry exists or
// its tokens are unresolved, it falls back to normalized-question equality
// against the cached venue-B universe and resolves tokens on the fly
// (mode b), per §4.2's two pairing modes. RequireMapping disables mode b
// entirely: only curated mappings ever pair a market.
func (a *App) resolveVenueBPairing(ctx context.Context, aMarket venue.RawMarket, universeB []venue.RawMarket) (venue.RawMarket, string, string, bool) {
	if a.deps.Mapping != nil {
		if mm, ok := a.deps.Mapping.Lookup(aMarket.MarketID); ok && mm.TokensResolved() {
			for _, bm := range universeB {
				if bm.MarketID == mm.VenueBID {
					return bm, mm.VenueBYesToken, mm.VenueBNoToken, true
				}
			}
		}
	}

	if a.cfg.RequireMapping {
		return venue.RawMarket{}, "", "", false
	}

	aM := types.Market{Question: aMarket.Question, Outcomes: aMarket.Outcomes}
	for _, bm := range universeB {
		bM := types.Market{Question: bm.Question, Outcomes: bm.Outcomes}
		if types.NormalizedQuestion(aM.Question) != types.NormalizedQuestion(bM.Question) {
			continue
		}
		if types.NormalizedQuestion(aM.Outcomes[0]) != types.NormalizedQuestion(bM.Outcomes[0]) ||
			types.NormalizedQuestion(aM.Outcomes[1]) != types.NormalizedQuestion(bM.Outcomes[1]) {
			continue
		}
		if bm.ExtraID == "" {
			continue
		}
		yes, no, ok, err := a.deps.VenueB.ResolveSlugToTokens(ctx, bm.ExtraID)
		if err != nil || !ok {
			continue
		}
		return bm, yes, no, true
	}

	return venue.RawMarket{}, "", "", false
}

func nowTs() int64 { return time.Now().Unix() }
