// Package paperexec is the paper-trading executor: it never places a real
// order, only validates liquidity and bankroll, books a simulated fill, and
// settles trades after a holding window. Grounded line-for-line on
// original_source/arb_scanner/paper_executor.py's PaperExecutor class,
// restructured into the teacher's execution.Executor idiom (struct + zap
// fields + prometheus counters, Config+New constructor injection).
package paperexec

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Nicotcy/arb-scanner/internal/storage"
	"github.com/Nicotcy/arb-scanner/pkg/types"
)

// Config holds paper-executor configuration, mirroring PaperConfig from
// original_source/arb_scanner/paper_executor.py.
type Config struct {
	Store           storage.PaperStorage
	SettleAfterSecs int64
	MinFreeBalance  float64
	InitialBankroll float64
	Logger          *zap.Logger
}

// Executor is a minimal paper-trading executor. It checks that both legs
// have enough top-of-book size, checks bankroll/free-balance constraints,
// logs a paper trade plus paper orders, tracks free/locked balances, and
// auto-settles open trades after a holding window. Cooldown keyed by
// (direction, venue_a_id, venue_b_id) is the daemon's responsibility, not
// this package's.
type Executor struct {
	store           storage.PaperStorage
	settleAfterSecs int64
	minFreeBalance  float64
	initialBankroll float64
	logger          *zap.Logger
}

// New creates a paper executor and seeds balances on first run.
func New(ctx context.Context, cfg Config) (*Executor, error) {
	if cfg.SettleAfterSecs <= 0 {
		cfg.SettleAfterSecs = 3600
	}
	if cfg.InitialBankroll <= 0 {
		cfg.InitialBankroll = 1000
	}

	e := &Executor{
		store:           cfg.Store,
		settleAfterSecs: cfg.SettleAfterSecs,
		minFreeBalance:  cfg.MinFreeBalance,
		initialBankroll: cfg.InitialBankroll,
		logger:          cfg.Logger,
	}

	_, hasBal, err := e.store.PaperGetBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("read initial paper balances: %w", err)
	}
	if !hasBal {
		init := types.PaperBalances{Free: e.initialBankroll, Locked: 0, RealizedPnL: 0}
		if err := e.store.PaperSetBalances(ctx, init); err != nil {
			return nil, fmt.Errorf("seed initial paper balances: %w", err)
		}
		e.logger.Info("paper-balances-seeded", zap.Float64("bankroll", e.initialBankroll))
	}

	return e, nil
}

// Balances returns the current free, locked, and cumulative realized PnL.
func (e *Executor) Balances(ctx context.Context) (types.PaperBalances, error) {
	b, _, err := e.store.PaperGetBalances(ctx)
	if err != nil {
		return types.PaperBalances{}, fmt.Errorf("read paper balances: %w", err)
	}
	return b, nil
}

// TryExecute attempts a paper execution of plan. Returns (ok, reason); a
// false ok with a nil error means the plan was rejected (insufficient
// liquidity or balance), not a system failure.
func (e *Executor) TryExecute(ctx context.Context, plan types.TradePlan) (bool, string, error) {
	now := time.Now().Unix()

	bal, _, err := e.store.PaperGetBalances(ctx)
	if err != nil {
		return false, "", fmt.Errorf("read paper balances: %w", err)
	}

	for _, leg := range plan.Legs {
		if leg.SizeAvail < plan.Size {
			reason := fmt.Sprintf("insufficient_liquidity %s:%s %s avail=%.4f need=%.4f",
				leg.Venue, leg.MarketID, leg.Side, leg.SizeAvail, plan.Size)
			ExecutionsTotal.WithLabelValues("rejected_liquidity").Inc()
			return false, reason, nil
		}
	}

	cost := plan.SumPrice * plan.Size
	if bal.Free-cost < e.minFreeBalance {
		reason := fmt.Sprintf("insufficient_balance free=%.2f cost=%.2f floor=%.2f", bal.Free, cost, e.minFreeBalance)
		ExecutionsTotal.WithLabelValues("rejected_balance").Inc()
		return false, reason, nil
	}

	tradeID := uuid.New().String()
	orders := [2]types.PaperOrder{}
	for i, leg := range plan.Legs {
		orders[i] = types.PaperOrder{
			OrderID:    uuid.New().String(),
			TradeID:    tradeID,
			Ts:         now,
			Venue:      leg.Venue,
			MarketID:   leg.MarketID,
			Side:       leg.Side,
			Action:     leg.Action,
			Price:      leg.Price,
			Size:       plan.Size,
			Status:     "filled",
			FilledSize: plan.Size,
			Details:    "paper fill at top-of-book",
		}
	}

	expectedProfit := (1.0 - plan.SumPrice) * plan.Size
	trade := types.PaperTrade{
		TradeID:        tradeID,
		TsOpen:         now,
		Status:         types.TradeOpen,
		Kind:           plan.Kind,
		Size:           plan.Size,
		SumPrice:       plan.SumPrice,
		BufEdge:        plan.BufEdge,
		ExpectedProfit: expectedProfit,
		Legs:           plan.Legs,
		Details:        plan.Details,
	}

	newBal := types.PaperBalances{
		Free:        bal.Free - cost,
		Locked:      bal.Locked + cost,
		RealizedPnL: bal.RealizedPnL,
	}

	if err := e.store.PaperOpenTrade(ctx, trade, orders, newBal); err != nil {
		return false, "", fmt.Errorf("open paper trade: %w", err)
	}

	ExecutionsTotal.WithLabelValues("executed").Inc()
	NotionalOpenedUSD.Add(cost)

	reason := fmt.Sprintf("executed trade_id=%s cost=%.2f expected_profit=%.2f", tradeID, cost, expectedProfit)
	e.logger.Info("paper-trade-executed",
		zap.String("trade-id", tradeID),
		zap.Float64("cost", cost),
		zap.Float64("expected-profit", expectedProfit))

	return true, reason, nil
}

// MaybeSettle auto-closes open trades that have aged past the settlement
// window, realizing their expected profit. Returns the number closed.
func (e *Executor) MaybeSettle(ctx context.Context) (int, error) {
	now := time.Now().Unix()

	open, err := e.store.PaperListOpenTrades(ctx, 10000)
	if err != nil {
		return 0, fmt.Errorf("list open paper trades: %w", err)
	}
	if len(open) == 0 {
		return 0, nil
	}

	bal, _, err := e.store.PaperGetBalances(ctx)
	if err != nil {
		return 0, fmt.Errorf("read paper balances before settle: %w", err)
	}

	closed := 0
	for _, t := range open {
		if now-t.TsOpen < e.settleAfterSecs {
			continue
		}

		cost := t.SumPrice * t.Size
		bal.Locked -= cost
		if bal.Locked < 0 {
			bal.Locked = 0
		}
		bal.Free += cost
		bal.Free += t.ExpectedProfit
		bal.RealizedPnL += t.ExpectedProfit

		if err := e.store.PaperCloseTrade(ctx, t.TradeID, now, bal); err != nil {
			return closed, fmt.Errorf("close paper trade %s: %w", t.TradeID, err)
		}
		closed++

		SettledTotal.Inc()
		ProfitRealizedUSD.Add(t.ExpectedProfit)
		e.logger.Info("paper-trade-settled",
			zap.String("trade-id", t.TradeID),
			zap.Float64("expected-profit", t.ExpectedProfit))
	}

	return closed, nil
}
