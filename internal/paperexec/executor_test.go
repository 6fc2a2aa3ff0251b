package paperexec

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Nicotcy/arb-scanner/internal/storage"
	"github.com/Nicotcy/arb-scanner/pkg/types"
)

func newTestExecutor(t *testing.T, cfgOverrides func(*Config)) (*Executor, storage.PaperStorage) {
	t.Helper()
	st := storage.NewConsoleStorage(zap.NewNop())
	cfg := Config{
		Store:           st,
		SettleAfterSecs: 3600,
		InitialBankroll: 1000,
		Logger:          zap.NewNop(),
	}
	if cfgOverrides != nil {
		cfgOverrides(&cfg)
	}
	e, err := New(context.Background(), cfg)
	require.NoError(t, err)
	return e, st
}

func testPlan() types.TradePlan {
	return types.TradePlan{
		Kind:     types.SignalCrossVenue,
		BufEdge:  0.05,
		SumPrice: 0.92,
		Size:     10,
		Legs: [2]types.Leg{
			{Venue: "venue_a", MarketID: "m1", Side: types.SideYes, Action: "BUY", Price: 0.45, SizeAvail: 20},
			{Venue: "venue_b", MarketID: "m2", Side: types.SideNo, Action: "BUY", Price: 0.47, SizeAvail: 20},
		},
	}
}

func TestNew_SeedsInitialBalances(t *testing.T) {
	e, _ := newTestExecutor(t, nil)
	bal, err := e.Balances(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1000.0, bal.Free)
	assert.Equal(t, 0.0, bal.Locked)
}

func TestNew_DoesNotResetExistingBalances(t *testing.T) {
	ctx := context.Background()
	st := storage.NewConsoleStorage(zap.NewNop())
	require.NoError(t, st.PaperSetBalances(ctx, types.PaperBalances{Free: 500, Locked: 50, RealizedPnL: 3}))

	e, err := New(ctx, Config{Store: st, InitialBankroll: 1000, Logger: zap.NewNop()})
	require.NoError(t, err)

	bal, err := e.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 500.0, bal.Free)
	assert.Equal(t, 50.0, bal.Locked)
}

func TestTryExecute_RejectsInsufficientLiquidity(t *testing.T) {
	e, _ := newTestExecutor(t, nil)
	plan := testPlan()
	plan.Legs[0].SizeAvail = 1 // less than plan.Size

	ok, reason, err := e.TryExecute(context.Background(), plan)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, reason, "insufficient_liquidity")
}

func TestTryExecute_RejectsInsufficientBalance(t *testing.T) {
	e, _ := newTestExecutor(t, func(c *Config) { c.InitialBankroll = 1 })
	plan := testPlan()

	ok, reason, err := e.TryExecute(context.Background(), plan)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, reason, "insufficient_balance")
}

func TestTryExecute_EnforcesMinFreeBalanceFloor(t *testing.T) {
	e, _ := newTestExecutor(t, func(c *Config) {
		c.InitialBankroll = 100
		c.MinFreeBalance = 95
	})
	plan := testPlan() // cost = 0.92 * 10 = 9.2, leaves free=90.8 < floor 95

	ok, _, err := e.TryExecute(context.Background(), plan)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTryExecute_OpensTradeAndLocksCapital(t *testing.T) {
	e, st := newTestExecutor(t, nil)
	plan := testPlan()

	ok, reason, err := e.TryExecute(context.Background(), plan)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, reason, "executed")

	bal, err := e.Balances(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1000-9.2, bal.Free, 1e-9)
	assert.InDelta(t, 9.2, bal.Locked, 1e-9)

	open, err := st.PaperListOpenTrades(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, 10.0, open[0].Size)
	assert.InDelta(t, 0.8, open[0].ExpectedProfit, 1e-9) // (1 - 0.92) * 10
}

func TestMaybeSettle_NoOpenTradesReturnsZero(t *testing.T) {
	e, _ := newTestExecutor(t, nil)
	n, err := e.MaybeSettle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMaybeSettle_SkipsTradesBeforeSettlementWindow(t *testing.T) {
	e, _ := newTestExecutor(t, func(c *Config) { c.SettleAfterSecs = 3600 })
	plan := testPlan()
	_, _, err := e.TryExecute(context.Background(), plan)
	require.NoError(t, err)

	n, err := e.MaybeSettle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n, "a trade opened just now is not yet past the settlement window")
}

func TestMaybeSettle_ClosesAgedTradesAndRealizesProfit(t *testing.T) {
	e, st := newTestExecutor(t, func(c *Config) { c.SettleAfterSecs = 1 })
	plan := testPlan()
	_, _, err := e.TryExecute(context.Background(), plan)
	require.NoError(t, err)

	// Age the trade past the one-second settlement window.
	time.Sleep(1100 * time.Millisecond)

	n, err := e.MaybeSettle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	bal, err := e.Balances(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0, bal.Locked, 1e-9)
	assert.InDelta(t, 0.8, bal.RealizedPnL, 1e-9)
	assert.InDelta(t, 1000.8, bal.Free, 1e-9)

	open, err := st.PaperListOpenTrades(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, open, 0)
}
