package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	goccyjson "github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/Nicotcy/arb-scanner/pkg/types"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS runs (
  run_id TEXT PRIMARY KEY,
  started_at BIGINT NOT NULL,
  mode TEXT NOT NULL,
  notes TEXT
);

CREATE TABLE IF NOT EXISTS snapshots (
  ts BIGINT NOT NULL,
  venue TEXT NOT NULL,
  market_id TEXT NOT NULL,
  question TEXT,
  yes_ask DOUBLE PRECISION,
  no_ask DOUBLE PRECISION,
  yes_sz DOUBLE PRECISION,
  no_sz DOUBLE PRECISION,
  raw TEXT,
  PRIMARY KEY (ts, venue, market_id)
);
CREATE INDEX IF NOT EXISTS idx_snapshots_market ON snapshots(venue, market_id, ts);
CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts);

CREATE TABLE IF NOT EXISTS signals (
  id BIGSERIAL PRIMARY KEY,
  ts BIGINT NOT NULL,
  kind TEXT NOT NULL,
  a_venue TEXT,
  a_market_id TEXT,
  b_venue TEXT,
  b_market_id TEXT,
  sum_price DOUBLE PRECISION,
  raw_edge DOUBLE PRECISION,
  buf_edge DOUBLE PRECISION,
  exec_size DOUBLE PRECISION,
  details TEXT
);
CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(ts);

CREATE TABLE IF NOT EXISTS paper_state (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS paper_trades (
  trade_id TEXT PRIMARY KEY,
  ts_open BIGINT NOT NULL,
  ts_close BIGINT,
  status TEXT NOT NULL,
  kind TEXT NOT NULL,
  size DOUBLE PRECISION NOT NULL,
  sum_price DOUBLE PRECISION NOT NULL,
  buf_edge DOUBLE PRECISION NOT NULL,
  expected_profit DOUBLE PRECISION NOT NULL,
  legs_json TEXT NOT NULL,
  details TEXT
);
CREATE INDEX IF NOT EXISTS idx_paper_trades_open ON paper_trades(status, ts_open);

CREATE TABLE IF NOT EXISTS paper_orders (
  order_id TEXT PRIMARY KEY,
  trade_id TEXT,
  ts BIGINT NOT NULL,
  venue TEXT NOT NULL,
  market_id TEXT NOT NULL,
  side TEXT NOT NULL,
  action TEXT NOT NULL,
  price DOUBLE PRECISION NOT NULL,
  size DOUBLE PRECISION NOT NULL,
  status TEXT NOT NULL,
  filled_size DOUBLE PRECISION NOT NULL,
  details TEXT
);
CREATE INDEX IF NOT EXISTS idx_paper_orders_ts ON paper_orders(ts);
`

// PostgresStorage implements Storage on PostgreSQL, adapted from the
// teacher's PostgresStorage (internal/storage/postgres.go), generalized
// from a single StoreOpportunity method to the full §4.5 entity set and
// schema carried over from original_source/arb_scanner/storage.py.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage opens a connection and applies the schema.
func NewPostgresStorage(cfg PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{db: db, logger: cfg.Logger}, nil
}

func (p *PostgresStorage) StartRun(ctx context.Context, runID, mode, notes string) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO runs(run_id, started_at, mode, notes) VALUES($1,$2,$3,$4)
		 ON CONFLICT (run_id) DO UPDATE SET started_at = EXCLUDED.started_at, mode = EXCLUDED.mode, notes = EXCLUDED.notes`,
		runID, time.Now().Unix(), mode, notes)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

func (p *PostgresStorage) InsertSnapshots(ctx context.Context, rows []SnapshotRow) (int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert snapshots: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, r := range rows {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO snapshots(ts, venue, market_id, question, yes_ask, no_ask, yes_sz, no_sz, raw)
			 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9) ON CONFLICT (ts, venue, market_id) DO NOTHING`,
			r.Ts, string(r.Venue), r.MarketID, r.Question, r.YesAsk, r.NoAsk, r.YesSz, r.NoSz, r.Raw)
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

func (p *PostgresStorage) InsertSignal(ctx context.Context, sig types.Signal) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO signals(ts, kind, a_venue, a_market_id, b_venue, b_market_id, sum_price, raw_edge, buf_edge, exec_size, details)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		sig.Ts, string(sig.Kind), string(sig.AVenue), sig.AMarketID, nullableVenue(sig.HasB, sig.BVenue), nullableString(sig.HasB, sig.BMarketID),
		sig.SumPrice, sig.RawEdge, sig.BufEdge, sig.ExecSize, sig.Details)
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

func (p *PostgresStorage) PruneSnapshots(ctx context.Context, keepDays int) (int, error) {
	if keepDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Unix() - int64(keepDays)*86400
	res, err := p.db.ExecContext(ctx, `DELETE FROM snapshots WHERE ts < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// WALCheckpoint is a no-op for Postgres, which has no WAL file to truncate
// from the client's perspective.
func (p *PostgresStorage) WALCheckpoint(ctx context.Context) error {
	return nil
}

func (p *PostgresStorage) PaperGetBalances(ctx context.Context) (types.PaperBalances, bool, error) {
	row := p.db.QueryRowContext(ctx, `SELECT value FROM paper_state WHERE key = $1`, paperBalancesKey)
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

func (p *PostgresStorage) PaperSetBalances(ctx context.Context, b types.PaperBalances) error {
	payload, err := goccyjson.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode paper balances: %w", err)
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO paper_state(key, value) VALUES($1,$2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		paperBalancesKey, string(payload))
	if err != nil {
		return fmt.Errorf("set paper balances: %w", err)
	}
	return nil
}

func (p *PostgresStorage) PaperOpenTrade(ctx context.Context, trade types.PaperTrade, orders [2]types.PaperOrder, balances types.PaperBalances) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin open trade: %w", err)
	}
	defer tx.Rollback()

	legsJSON, err := goccyjson.Marshal(trade.Legs)
	if err != nil {
		return fmt.Errorf("encode legs: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO paper_trades(trade_id, ts_open, ts_close, status, kind, size, sum_price, buf_edge, expected_profit, legs_json, details)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 ON CONFLICT (trade_id) DO UPDATE SET status = EXCLUDED.status, ts_close = EXCLUDED.ts_close`,
		trade.TradeID, trade.TsOpen, nil, string(trade.Status), string(trade.Kind), trade.Size, trade.SumPrice, trade.BufEdge, trade.ExpectedProfit, string(legsJSON), trade.Details,
	); err != nil {
		return fmt.Errorf("insert paper trade: %w", err)
	}

	for _, o := range orders {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO paper_orders(order_id, trade_id, ts, venue, market_id, side, action, price, size, status, filled_size, details)
			 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			 ON CONFLICT (order_id) DO NOTHING`,
			o.OrderID, o.TradeID, o.Ts, string(o.Venue), o.MarketID, string(o.Side), o.Action, o.Price, o.Size, o.Status, o.FilledSize, o.Details,
		); err != nil {
			return fmt.Errorf("insert paper order %s: %w", o.OrderID, err)
		}
	}

	payload, err := goccyjson.Marshal(balances)
	if err != nil {
		return fmt.Errorf("encode balances: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO paper_state(key, value) VALUES($1,$2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		paperBalancesKey, string(payload)); err != nil {
		return fmt.Errorf("commit balances: %w", err)
	}

	return tx.Commit()
}

func (p *PostgresStorage) PaperCloseTrade(ctx context.Context, tradeID string, tsClose int64, balances types.PaperBalances) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin close trade: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE paper_trades SET ts_close = $1, status = $2 WHERE trade_id = $3`,
		tsClose, string(types.TradeClosed), tradeID,
	); err != nil {
		return fmt.Errorf("close paper trade %s: %w", tradeID, err)
	}

	payload, err := goccyjson.Marshal(balances)
	if err != nil {
		return fmt.Errorf("encode balances: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO paper_state(key, value) VALUES($1,$2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		paperBalancesKey, string(payload)); err != nil {
		return fmt.Errorf("commit settled balances: %w", err)
	}

	return tx.Commit()
}

func (p *PostgresStorage) PaperListOpenTrades(ctx context.Context, limit int) ([]types.PaperTrade, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT trade_id, ts_open, status, kind, size, sum_price, buf_edge, expected_profit, legs_json, details
		 FROM paper_trades WHERE status = $1 ORDER BY ts_open ASC LIMIT $2`,
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

func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
