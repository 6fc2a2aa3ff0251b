package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nicotcy/arb-scanner/pkg/types"
)

func snapshot(venue types.Venue, marketID string, yesAsk, noAsk, yesSz, noSz float64) types.MarketSnapshot {
	return types.MarketSnapshot{
		Market: types.Market{Venue: venue, MarketID: marketID, Question: "q", Outcomes: [2]string{"Yes", "No"}},
		Book: types.OrderBookTop{
			BestYesAskPrice: yesAsk, YesAskPriceSet: true, BestYesAskSize: yesSz,
			BestNoAskPrice: noAsk, NoAskPriceSet: true, BestNoAskSize: noSz,
		},
		Executable: true,
	}
}

func TestEvaluateCrossVenue_CleanArbitrage(t *testing.T) {
	sA := snapshot(types.VenueA, "a1", 0.48, 0.55, 50, 50)
	sB := snapshot(types.VenueB, "b1", 0.49, 0.49, 50, 50)

	policy := DefaultLabPolicy()
	policy.MinEdgeOpportunity = 0.02
	policy.FeeBufferBps = 25

	signals := EvaluateCrossVenue(sA, sB, policy, 1000)

	var opps []types.Signal
	for _, s := range signals {
		if s.Class == types.ClassOpportunity {
			opps = append(opps, s)
		}
	}
	require.Len(t, opps, 1)
	assert.InDelta(t, 0.97, opps[0].SumPrice, 1e-6)
	assert.InDelta(t, 0.02758, opps[0].BufEdge, 1e-4)
	assert.Equal(t, 50.0, opps[0].ExecSize)
}

func TestEvaluateIntraVenue_NearMissNormalSum(t *testing.T) {
	snap := snapshot(types.VenueA, "m1", 0.52, 0.50, 10, 10)

	policy := DefaultLabPolicy()
	policy.NearMissEdgeFloor = -0.05
	policy.MinEdgeOpportunity = 0.01
	policy.FeeBufferBps = 25

	signals := EvaluateIntraVenue(snap, policy, 0)
	require.Len(t, signals, 1)
	assert.Equal(t, types.ClassNearMiss, signals[0].Class)
	assert.InDelta(t, -0.0226, signals[0].BufEdge, 1e-3)
}

func TestEvaluateIntraVenue_WeirdSumSuppressed(t *testing.T) {
	snap := snapshot(types.VenueA, "m2", 0.05, 0.10, 100, 100)

	policy := DefaultLabPolicy()
	policy.NearMissEdgeFloor = -1
	policy.MinEdgeOpportunity = 0.01
	policy.NearMissIncludeWeirdSums = false

	signals := EvaluateIntraVenue(snap, policy, 0)
	assert.Empty(t, signals)

	policy.NearMissIncludeWeirdSums = true
	signals = EvaluateIntraVenue(snap, policy, 0)
	require.Len(t, signals, 1)
	assert.Equal(t, types.ClassNearMiss, signals[0].Class)
	assert.Equal(t, weirdSumDetail, signals[0].Details)
}

func TestEvaluateDirection_MissingSideSkipped(t *testing.T) {
	snap := types.MarketSnapshot{
		Market: types.Market{Venue: types.VenueA, MarketID: "m3", Outcomes: [2]string{"Yes", "No"}},
		Book:   types.OrderBookTop{BestYesAskPrice: 0.5, YesAskPriceSet: true, BestYesAskSize: 10},
	}
	signals := EvaluateIntraVenue(snap, DefaultLabPolicy(), 0)
	assert.Empty(t, signals)
}

func TestEvaluateDirection_ZeroSizeSkipped(t *testing.T) {
	snap := snapshot(types.VenueA, "m4", 0.4, 0.4, 0, 10)
	signals := EvaluateIntraVenue(snap, DefaultLabPolicy(), 0)
	assert.Empty(t, signals)
}

func TestEvaluatorLaw_DirectionSymmetry(t *testing.T) {
	sA := snapshot(types.VenueA, "a1", 0.48, 0.55, 50, 50)
	sB := snapshot(types.VenueB, "b1", 0.49, 0.49, 50, 50)
	policy := DefaultLabPolicy()

	forward := EvaluateCrossVenue(sA, sB, policy, 0)
	backward := EvaluateCrossVenue(sB, sA, policy, 0)
	require.Equal(t, len(forward), len(backward))
}

func TestEvaluatorLaw_FeeMonotonicity(t *testing.T) {
	snap := snapshot(types.VenueA, "m5", 0.45, 0.45, 10, 10)
	lowFee := DefaultLabPolicy()
	lowFee.FeeBufferBps = 10
	lowFee.MinEdgeOpportunity = -1 // force classification regardless of threshold
	lowFee.NearMissEdgeFloor = -1

	highFee := lowFee
	highFee.FeeBufferBps = 100

	lowSignals := EvaluateIntraVenue(snap, lowFee, 0)
	highSignals := EvaluateIntraVenue(snap, highFee, 0)
	require.Len(t, lowSignals, 1)
	require.Len(t, highSignals, 1)
	assert.Greater(t, lowSignals[0].BufEdge, highSignals[0].BufEdge)
}

func TestEvaluatorLaw_ModeContractSafeIsSubsetOfLab(t *testing.T) {
	lab := DefaultLabPolicy()
	safe := DefaultSafePolicy()
	assert.Greater(t, safe.MinEdgeOpportunity, lab.MinEdgeOpportunity)
	assert.Greater(t, safe.NearMissEdgeFloor, lab.NearMissEdgeFloor)
}

func TestAlertOnlyOverridesMinEdge(t *testing.T) {
	p := DefaultLabPolicy()
	p.AlertOnly = true
	p.AlertThreshold = 0.5
	assert.Equal(t, 0.5, p.EffectiveMinEdge())
}

func TestNearMissCeilingDefaultsToInfinity(t *testing.T) {
	p := DefaultLabPolicy()
	assert.True(t, p.EffectiveNearMissCeiling() > 1e300)
}
