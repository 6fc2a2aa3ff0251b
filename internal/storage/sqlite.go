package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	goccyjson "github.com/goccy/go-json"
	_ "modernc.org/sqlite"
	"go.uber.org/zap"

	"github.com/Nicotcy/arb-scanner/pkg/types"
)

const sqliteSchema = `
PRAGMA journal_mode=WAL;
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS runs (
  run_id TEXT PRIMARY KEY,
  started_at INTEGER NOT NULL,
  mode TEXT NOT NULL,
  notes TEXT
);

CREATE TABLE IF NOT EXISTS snapshots (
  ts INTEGER NOT NULL,
  venue TEXT NOT NULL,
  market_id TEXT NOT NULL,
  question TEXT,
  yes_ask REAL,
  no_ask REAL,
  yes_sz REAL,
  no_sz REAL,
  raw TEXT,
  PRIMARY KEY (ts, venue, market_id)
);
CREATE INDEX IF NOT EXISTS idx_snapshots_market ON snapshots(venue, market_id, ts);
CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts);

CREATE TABLE IF NOT EXISTS signals (
  ts INTEGER NOT NULL,
  kind TEXT NOT NULL,
  a_venue TEXT,
  a_market_id TEXT,
  b_venue TEXT,
  b_market_id TEXT,
  sum_price REAL,
  raw_edge REAL,
  buf_edge REAL,
  exec_size REAL,
  details TEXT
);
CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(ts);

CREATE TABLE IF NOT EXISTS paper_state (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS paper_trades (
  trade_id TEXT PRIMARY KEY,
  ts_open INTEGER NOT NULL,
  ts_close INTEGER,
  status TEXT NOT NULL,
  kind TEXT NOT NULL,
  size REAL NOT NULL,
  sum_price REAL NOT NULL,
  buf_edge REAL NOT NULL,
  expected_profit REAL NOT NULL,
  legs_json TEXT NOT NULL,
  details TEXT
);
CREATE INDEX IF NOT EXISTS idx_paper_trades_open ON paper_trades(status, ts_open);

CREATE TABLE IF NOT EXISTS paper_orders (
  order_id TEXT PRIMARY KEY,
  trade_id TEXT,
  ts INTEGER NOT NULL,
  venue TEXT NOT NULL,
  market_id TEXT NOT NULL,
  side TEXT NOT NULL,
  action TEXT NOT NULL,
  price REAL NOT NULL,
  size REAL NOT NULL,
  status TEXT NOT NULL,
  filled_size REAL NOT NULL,
  details TEXT
);
CREATE INDEX IF NOT EXISTS idx_paper_orders_ts ON paper_orders(ts);
`

// SQLiteStorage implements Storage on an embedded modernc.org/sqlite
// database, tuned for a long-running single-writer daemon per
// original_source/arb_scanner/storage.py: WAL mode, busy timeout,
// insert-or-ignore snapshots, TTL pruning, occasional checkpoint.
type SQLiteStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// SQLiteConfig holds embedded-storage configuration.
type SQLiteConfig struct {
	Path            string
	BusyTimeoutMS   int
	Logger          *zap.Logger
}

// NewSQLiteStorage opens (creating parent directories and the schema if
// needed) an embedded database at cfg.Path.
func NewSQLiteStorage(cfg SQLiteConfig) (*SQLiteStorage, error) {
	if cfg.BusyTimeoutMS <= 0 {
		cfg.BusyTimeoutMS = 5000
	}
	dir := filepath.Dir(cfg.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer, avoid SQLITE_BUSY under modernc's driver

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d;", cfg.BusyTimeoutMS)); err != nil {
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	cfg.Logger.Info("sqlite-storage-opened", zap.String("path", cfg.Path))

	return &SQLiteStorage{db: db, logger: cfg.Logger}, nil
}

func (s *SQLiteStorage) StartRun(ctx context.Context, runID, mode, notes string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs(run_id, started_at, mode, notes) VALUES(?,?,?,?)`,
		runID, time.Now().Unix(), mode, notes)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) InsertSnapshots(ctx context.Context, rows []SnapshotRow) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert snapshots: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO snapshots(ts, venue, market_id, question, yes_ask, no_ask, yes_sz, no_sz, raw)
		 VALUES(?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert snapshots: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range rows {
		res, err := stmt.ExecContext(ctx, r.Ts, string(r.Venue), r.MarketID, r.Question, r.YesAsk, r.NoAsk, r.YesSz, r.NoSz, r.Raw)
		if err != nil {
			return inserted, fmt.Errorf("insert snapshot %s/%s: %w", r.Venue, r.MarketID, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("commit insert snapshots: %w", err)
	}
	return inserted, nil
}

func (s *SQLiteStorage) InsertSignal(ctx context.Context, sig types.Signal) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO signals(ts, kind, a_venue, a_market_id, b_venue, b_market_id, sum_price, raw_edge, buf_edge, exec_size, details)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		sig.Ts, string(sig.Kind), string(sig.AVenue), sig.AMarketID, nullableVenue(sig.HasB, sig.BVenue), nullableString(sig.HasB, sig.BMarketID),
		sig.SumPrice, sig.RawEdge, sig.BufEdge, sig.ExecSize, sig.Details)
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

func nullableVenue(has bool, v types.Venue) interface{} {
	if !has {
		return nil
	}
	return string(v)
}

func nullableString(has bool, v string) interface{} {
	if !has {
		return nil
	}
	return v
}

func (s *SQLiteStorage) PruneSnapshots(ctx context.Context, keepDays int) (int, error) {
	if keepDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Unix() - int64(keepDays)*86400
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE ts < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStorage) WALCheckpoint(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE);`)
	if err != nil {
		s.logger.Warn("wal-checkpoint-failed", zap.Error(err))
		return nil // non-fatal, per the original's best-effort checkpoint
	}
	return nil
}

const paperBalancesKey = "balances"

func (s *SQLiteStorage) PaperGetBalances(ctx context.Context) (types.PaperBalances, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM paper_state WHERE key = ?`, paperBalancesKey)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return types.PaperBalances{}, false, nil
		}
		return types.PaperBalances{}, false, fmt.Errorf("get paper balances: %w", err)
	}
	var b types.PaperBalances
	if err := goccyjson.Unmarshal([]byte(raw), &b); err != nil {
		return types.PaperBalances{}, false, fmt.Errorf("decode paper balances: %w", err)
	}
	return b, true, nil
}

func (s *SQLiteStorage) PaperSetBalances(ctx context.Context, b types.PaperBalances) error {
	payload, err := goccyjson.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode paper balances: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO paper_state(key, value) VALUES(?, ?)`, paperBalancesKey, string(payload))
	if err != nil {
		return fmt.Errorf("set paper balances: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) PaperOpenTrade(ctx context.Context, trade types.PaperTrade, orders [2]types.PaperOrder, balances types.PaperBalances) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin open trade: %w", err)
	}
	defer tx.Rollback()

	legsJSON, err := goccyjson.Marshal(trade.Legs)
	if err != nil {
		return fmt.Errorf("encode legs: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO paper_trades(trade_id, ts_open, ts_close, status, kind, size, sum_price, buf_edge, expected_profit, legs_json, details)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		trade.TradeID, trade.TsOpen, nil, string(trade.Status), string(trade.Kind), trade.Size, trade.SumPrice, trade.BufEdge, trade.ExpectedProfit, string(legsJSON), trade.Details,
	); err != nil {
		return fmt.Errorf("insert paper trade: %w", err)
	}

	for _, o := range orders {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO paper_orders(order_id, trade_id, ts, venue, market_id, side, action, price, size, status, filled_size, details)
			 VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
			o.OrderID, o.TradeID, o.Ts, string(o.Venue), o.MarketID, string(o.Side), o.Action, o.Price, o.Size, o.Status, o.FilledSize, o.Details,
		); err != nil {
			return fmt.Errorf("insert paper order %s: %w", o.OrderID, err)
		}
	}

	payload, err := goccyjson.Marshal(balances)
	if err != nil {
		return fmt.Errorf("encode balances: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO paper_state(key, value) VALUES(?, ?)`, paperBalancesKey, string(payload)); err != nil {
		return fmt.Errorf("commit balances: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStorage) PaperCloseTrade(ctx context.Context, tradeID string, tsClose int64, balances types.PaperBalances) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin close trade: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE paper_trades SET ts_close = ?, status = ? WHERE trade_id = ?`,
		tsClose, string(types.TradeClosed), tradeID,
	); err != nil {
		return fmt.Errorf("close paper trade %s: %w", tradeID, err)
	}

	payload, err := goccyjson.Marshal(balances)
	if err != nil {
		return fmt.Errorf("encode balances: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO paper_state(key, value) VALUES(?, ?)`, paperBalancesKey, string(payload)); err != nil {
		return fmt.Errorf("commit settled balances: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStorage) PaperListOpenTrades(ctx context.Context, limit int) ([]types.PaperTrade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT trade_id, ts_open, status, kind, size, sum_price, buf_edge, expected_profit, legs_json, details
		 FROM paper_trades WHERE status = ? ORDER BY ts_open ASC LIMIT ?`,
		string(types.TradeOpen), limit)
	if err != nil {
		return nil, fmt.Errorf("list open paper trades: %w", err)
	}
	defer rows.Close()

	var out []types.PaperTrade
	for rows.Next() {
		var t types.PaperTrade
		var legsJSON string
		var status, kind string
		if err := rows.Scan(&t.TradeID, &t.TsOpen, &status, &kind, &t.Size, &t.SumPrice, &t.BufEdge, &t.ExpectedProfit, &legsJSON, &t.Details); err != nil {
			return nil, fmt.Errorf("scan open paper trade: %w", err)
		}
		t.Status = types.TradeStatus(status)
		t.Kind = types.SignalKind(kind)
		if err := goccyjson.Unmarshal([]byte(legsJSON), &t.Legs); err != nil {
			return nil, fmt.Errorf("decode legs for %s: %w", t.TradeID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) Close() error {
	s.logger.Info("closing-sqlite-storage")
	return s.db.Close()
}
