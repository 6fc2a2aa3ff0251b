// Package storage is the single-writer durable store for runs, snapshots,
// signals, and the paper-trading ledger. Grounded on the teacher's
// storage.Storage interface (internal/storage/storage.go) generalized
// from a single StoreOpportunity method to the full entity set required
// by §4.5, and on original_source/arb_scanner/storage.py for the literal
// schema and operation set (start_run, insert_snapshots, insert_signal,
// paper_* helpers, prune_snapshots, wal_checkpoint).
package storage

import (
	"context"

	"github.com/Nicotcy/arb-scanner/pkg/types"
)

// SnapshotRow is the storage-facing projection of a MarketSnapshot, keyed
// by (ts, venue, market_id).
type SnapshotRow struct {
	Ts       int64
	Venue    types.Venue
	MarketID string
	Question string
	YesAsk   *float64
	NoAsk    *float64
	YesSz    *float64
	NoSz     *float64
	Raw      string // opaque JSON payload, optional
}

// Storage is the durable store every daemon component writes through.
// Exactly one instance is owned by the daemon; no external writer.
type Storage interface {
	// StartRun records one row per daemon start.
	StartRun(ctx context.Context, runID string, mode string, notes string) error

	// InsertSnapshots inserts a batch idempotently by (ts, venue,
	// market_id); returns the count of rows actually inserted (duplicates
	// are silently ignored, not counted).
	InsertSnapshots(ctx context.Context, rows []SnapshotRow) (int, error)

	// InsertSignal appends one signal row.
	InsertSignal(ctx context.Context, sig types.Signal) error

	// PruneSnapshots deletes snapshots older than keepDays; returns the
	// number of rows deleted. A non-positive keepDays is a no-op.
	PruneSnapshots(ctx context.Context, keepDays int) (int, error)

	// WALCheckpoint opportunistically checkpoints the storage log. A
	// no-op for backends without a WAL concept (e.g. Postgres, console).
	WALCheckpoint(ctx context.Context) error

	PaperStorage

	// Close flushes and closes the underlying connection.
	Close() error
}

// PaperStorage is the transactional paper-trading subset of Storage,
// split out so internal/paperexec can depend on the narrower interface.
type PaperStorage interface {
	PaperGetBalances(ctx context.Context) (types.PaperBalances, bool, error)
	PaperSetBalances(ctx context.Context, b types.PaperBalances) error

	// PaperOpenTrade performs the insert-trade + insert-two-orders +
	// balance-mutation as one logical transaction.
	PaperOpenTrade(ctx context.Context, trade types.PaperTrade, orders [2]types.PaperOrder, balances types.PaperBalances) error

	// PaperCloseTrade marks a trade closed and commits the settled
	// balances as one logical transaction.
	PaperCloseTrade(ctx context.Context, tradeID string, tsClose int64, balances types.PaperBalances) error

	// PaperListOpenTrades returns open trades ordered by ts_open
	// ascending (oldest first), per §4.4's deterministic settle order.
	PaperListOpenTrades(ctx context.Context, limit int) ([]types.PaperTrade, error)
}
