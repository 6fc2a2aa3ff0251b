package storage

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/Nicotcy/arb-scanner/pkg/types"
)

// ConsoleStorage is a non-durable Storage backend that logs every write
// and keeps just enough in-memory state (balances, open trades) for the
// paper executor to function in a dependency-free local run. Grounded on
// the teacher's zap event-name logging idiom; there is no teacher console
// storage to adapt directly, since the teacher always required a real
// Postgres connection.
type ConsoleStorage struct {
	logger *zap.Logger

	mu        sync.Mutex
	balances  types.PaperBalances
	hasBal    bool
	openTrade map[string]types.PaperTrade
}

// NewConsoleStorage creates a new console storage backend.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{logger: logger, openTrade: make(map[string]types.PaperTrade)}
}

func (c *ConsoleStorage) StartRun(_ context.Context, runID, mode, notes string) error {
	c.logger.Info("run-started", zap.String("run-id", runID), zap.String("mode", mode), zap.String("notes", notes))
	return nil
}

func (c *ConsoleStorage) InsertSnapshots(_ context.Context, rows []SnapshotRow) (int, error) {
	for _, r := range rows {
		c.logger.Debug("snapshot", zap.Int64("ts", r.Ts), zap.String("venue", string(r.Venue)), zap.String("market-id", r.MarketID))
	}
	return len(rows), nil
}

func (c *ConsoleStorage) InsertSignal(_ context.Context, sig types.Signal) error {
	c.logger.Info("signal",
		zap.String("class", string(sig.Class)),
		zap.String("a-market-id", sig.AMarketID),
		zap.Float64("buf-edge", sig.BufEdge),
		zap.Float64("exec-size", sig.ExecSize),
		zap.String("details", sig.Details))
	return nil
}

func (c *ConsoleStorage) PruneSnapshots(_ context.Context, _ int) (int, error) { return 0, nil }

func (c *ConsoleStorage) WALCheckpoint(_ context.Context) error { return nil }

func (c *ConsoleStorage) PaperGetBalances(_ context.Context) (types.PaperBalances, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances, c.hasBal, nil
}

func (c *ConsoleStorage) PaperSetBalances(_ context.Context, b types.PaperBalances) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances = b
	c.hasBal = true
	return nil
}

func (c *ConsoleStorage) PaperOpenTrade(_ context.Context, trade types.PaperTrade, orders [2]types.PaperOrder, balances types.PaperBalances) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openTrade[trade.TradeID] = trade
	c.balances = balances
	c.hasBal = true
	c.logger.Info("paper-trade-opened",
		zap.String("trade-id", trade.TradeID),
		zap.Float64("size", trade.Size),
		zap.Float64("expected-profit", trade.ExpectedProfit))
	for _, o := range orders {
		c.logger.Info("paper-order-filled", zap.String("order-id", o.OrderID), zap.String("venue", string(o.Venue)), zap.String("side", string(o.Side)))
	}
	return nil
}

func (c *ConsoleStorage) PaperCloseTrade(_ context.Context, tradeID string, tsClose int64, balances types.PaperBalances) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.openTrade[tradeID]; ok {
		t.Status = types.TradeClosed
		t.TsClose = tsClose
		c.openTrade[tradeID] = t
	}
	c.balances = balances
	c.hasBal = true
	c.logger.Info("paper-trade-closed", zap.String("trade-id", tradeID))
	return nil
}

func (c *ConsoleStorage) PaperListOpenTrades(_ context.Context, limit int) ([]types.PaperTrade, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.PaperTrade, 0, len(c.openTrade))
	for _, t := range c.openTrade {
		if t.Status == types.TradeOpen {
			out = append(out, t)
		}
	}
	for i := 1; i < len(out); i++ {
		j := i
		for j > 0 && out[j].TsOpen < out[j-1].TsOpen {
			out[j], out[j-1] = out[j-1], out[j]
			j--
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
