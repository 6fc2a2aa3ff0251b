package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Nicotcy/arb-scanner/pkg/types"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func testSignal() types.Signal {
	return types.Signal{
		Ts:        1000,
		Kind:      types.SignalCrossVenue,
		AVenue:    types.Venue("venue_a"),
		AMarketID: "mkt-a-1",
		HasB:      true,
		BVenue:    types.Venue("venue_b"),
		BMarketID: "mkt-b-1",
		SumPrice:  0.92,
		RawEdge:   0.08,
		BufEdge:   0.075,
		ExecSize:  25,
		Class:     types.ClassOpportunity,
	}
}

func testTrade(id string) (types.PaperTrade, [2]types.PaperOrder) {
	trade := types.PaperTrade{
		TradeID:        id,
		TsOpen:         1000,
		Status:         types.TradeOpen,
		Kind:           types.SignalCrossVenue,
		Size:           10,
		SumPrice:       0.92,
		BufEdge:        0.075,
		ExpectedProfit: 0.75,
		Legs: [2]types.Leg{
			{Venue: "venue_a", MarketID: "mkt-a-1", Side: types.SideYes, Action: "BUY", Price: 0.45, SizeAvail: 10},
			{Venue: "venue_b", MarketID: "mkt-b-1", Side: types.SideNo, Action: "BUY", Price: 0.47, SizeAvail: 10},
		},
	}
	orders := [2]types.PaperOrder{
		{OrderID: id + "-a", TradeID: id, Ts: 1000, Venue: "venue_a", MarketID: "mkt-a-1", Side: types.SideYes, Action: "BUY", Price: 0.45, Size: 10, Status: "filled", FilledSize: 10},
		{OrderID: id + "-b", TradeID: id, Ts: 1000, Venue: "venue_b", MarketID: "mkt-b-1", Side: types.SideNo, Action: "BUY", Price: 0.47, Size: 10, Status: "filled", FilledSize: 10},
	}
	return trade, orders
}

// --- ConsoleStorage ---

func TestConsoleStorage_New(t *testing.T) {
	s := NewConsoleStorage(testLogger())
	require.NotNil(t, s)
}

func TestConsoleStorage_PaperLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewConsoleStorage(testLogger())

	_, hasBal, err := s.PaperGetBalances(ctx)
	require.NoError(t, err)
	assert.False(t, hasBal)

	bal := types.PaperBalances{Free: 1000, Locked: 0, RealizedPnL: 0}
	require.NoError(t, s.PaperSetBalances(ctx, bal))

	got, hasBal, err := s.PaperGetBalances(ctx)
	require.NoError(t, err)
	assert.True(t, hasBal)
	assert.Equal(t, bal, got)

	trade, orders := testTrade("t1")
	locked := types.PaperBalances{Free: 990.8, Locked: 9.2, RealizedPnL: 0}
	require.NoError(t, s.PaperOpenTrade(ctx, trade, orders, locked))

	open, err := s.PaperListOpenTrades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "t1", open[0].TradeID)

	settled := types.PaperBalances{Free: 1000.75, Locked: 0, RealizedPnL: 0.75}
	require.NoError(t, s.PaperCloseTrade(ctx, "t1", 2000, settled))

	open, err = s.PaperListOpenTrades(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, open, 0)

	got, _, err = s.PaperGetBalances(ctx)
	require.NoError(t, err)
	assert.Equal(t, settled, got)
}

func TestConsoleStorage_InsertSnapshotsAndSignal(t *testing.T) {
	ctx := context.Background()
	s := NewConsoleStorage(testLogger())

	n, err := s.InsertSnapshots(ctx, []SnapshotRow{{Ts: 1, Venue: "venue_a", MarketID: "m1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.InsertSignal(ctx, testSignal()))
	require.NoError(t, s.StartRun(ctx, "run-1", "lab", "notes"))
	require.NoError(t, s.WALCheckpoint(ctx))
	_, err = s.PruneSnapshots(ctx, 7)
	require.NoError(t, err)
}

func TestConsoleStorage_Close(t *testing.T) {
	s := NewConsoleStorage(testLogger())
	assert.NoError(t, s.Close())
}

// --- SQLiteStorage ---

func newTestSQLiteStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStorage(SQLiteConfig{
		Path:   filepath.Join(dir, "arb.db"),
		Logger: testLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStorage_OpenCreatesSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "arb.db")
	s, err := NewSQLiteStorage(SQLiteConfig{Path: path, Logger: testLogger()})
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestSQLiteStorage_InsertSnapshotsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStorage(t)

	row := SnapshotRow{Ts: 100, Venue: "venue_a", MarketID: "m1", Question: "will it rain"}
	n, err := s.InsertSnapshots(ctx, []SnapshotRow{row})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.InsertSnapshots(ctx, []SnapshotRow{row})
	require.NoError(t, err)
	assert.Equal(t, 0, n, "duplicate (ts, venue, market_id) must be silently ignored")
}

func TestSQLiteStorage_InsertSignal(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStorage(t)
	require.NoError(t, s.InsertSignal(ctx, testSignal()))
}

func TestSQLiteStorage_StartRun(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStorage(t)
	require.NoError(t, s.StartRun(ctx, "run-1", "lab", "first run"))
	require.NoError(t, s.StartRun(ctx, "run-1", "safe", "restarted"))
}

func TestSQLiteStorage_PruneSnapshots(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStorage(t)

	_, err := s.InsertSnapshots(ctx, []SnapshotRow{{Ts: 1, Venue: "venue_a", MarketID: "old"}})
	require.NoError(t, err)

	n, err := s.PruneSnapshots(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "non-positive keepDays is a no-op")
}

func TestSQLiteStorage_WALCheckpoint(t *testing.T) {
	s := newTestSQLiteStorage(t)
	assert.NoError(t, s.WALCheckpoint(context.Background()))
}

func TestSQLiteStorage_PaperBalancesRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStorage(t)

	_, hasBal, err := s.PaperGetBalances(ctx)
	require.NoError(t, err)
	assert.False(t, hasBal)

	bal := types.PaperBalances{Free: 500, Locked: 25, RealizedPnL: 1.5}
	require.NoError(t, s.PaperSetBalances(ctx, bal))

	got, hasBal, err := s.PaperGetBalances(ctx)
	require.NoError(t, err)
	assert.True(t, hasBal)
	assert.Equal(t, bal, got)
}

func TestSQLiteStorage_PaperOpenAndCloseTrade(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStorage(t)

	trade, orders := testTrade("sqlite-t1")
	locked := types.PaperBalances{Free: 900, Locked: 9.2, RealizedPnL: 0}
	require.NoError(t, s.PaperOpenTrade(ctx, trade, orders, locked))

	open, err := s.PaperListOpenTrades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, trade.Size, open[0].Size)
	assert.Equal(t, trade.Legs, open[0].Legs)

	settled := types.PaperBalances{Free: 910, Locked: 0, RealizedPnL: 1}
	require.NoError(t, s.PaperCloseTrade(ctx, "sqlite-t1", 5000, settled))

	open, err = s.PaperListOpenTrades(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, open, 0)
}

func TestSQLiteStorage_PaperListOpenTradesOrdersByTsOpenAscending(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStorage(t)

	t2, o2 := testTrade("later")
	t2.TsOpen = 2000
	t1, o1 := testTrade("earlier")
	t1.TsOpen = 1000

	require.NoError(t, s.PaperOpenTrade(ctx, t2, o2, types.PaperBalances{}))
	require.NoError(t, s.PaperOpenTrade(ctx, t1, o1, types.PaperBalances{}))

	open, err := s.PaperListOpenTrades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "earlier", open[0].TradeID)
	assert.Equal(t, "later", open[1].TradeID)
}

// --- PostgresStorage (sqlmock) ---

func TestPostgresStorage_StartRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO runs").
		WithArgs("run-1", sqlmock.AnyArg(), "lab", "notes").
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := &PostgresStorage{db: db, logger: testLogger()}
	require.NoError(t, p.StartRun(context.Background(), "run-1", "lab", "notes"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_InsertSnapshots(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO snapshots").
		WithArgs(int64(1), "venue_a", "m1", "", nil, nil, nil, nil, "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p := &PostgresStorage{db: db, logger: testLogger()}
	n, err := p.InsertSnapshots(context.Background(), []SnapshotRow{{Ts: 1, Venue: "venue_a", MarketID: "m1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_InsertSnapshots_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO snapshots").WillReturnError(sqlmock.ErrCancelled)
	mock.ExpectRollback()

	p := &PostgresStorage{db: db, logger: testLogger()}
	_, err = p.InsertSnapshots(context.Background(), []SnapshotRow{{Ts: 1, Venue: "venue_a", MarketID: "m1"}})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_InsertSignal(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO signals").WillReturnResult(sqlmock.NewResult(1, 1))

	p := &PostgresStorage{db: db, logger: testLogger()}
	require.NoError(t, p.InsertSignal(context.Background(), testSignal()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_PruneSnapshots_NoOpWhenKeepDaysNonPositive(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	p := &PostgresStorage{db: db, logger: testLogger()}
	n, err := p.PruneSnapshots(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPostgresStorage_WALCheckpointIsNoOp(t *testing.T) {
	p := &PostgresStorage{logger: testLogger()}
	assert.NoError(t, p.WALCheckpoint(context.Background()))
}

func TestPostgresStorage_PaperOpenTrade(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO paper_trades").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO paper_orders").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO paper_orders").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO paper_state").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p := &PostgresStorage{db: db, logger: testLogger()}
	trade, orders := testTrade("pg-t1")
	err = p.PaperOpenTrade(context.Background(), trade, orders, types.PaperBalances{Free: 100})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_PaperCloseTrade(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE paper_trades").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO paper_state").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p := &PostgresStorage{db: db, logger: testLogger()}
	err = p.PaperCloseTrade(context.Background(), "pg-t1", 2000, types.PaperBalances{Free: 101})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_Close(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	p := &PostgresStorage{db: db, logger: testLogger()}
	require.NoError(t, p.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

// --- Interface conformance ---

func TestStorage_Interface(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	var _ Storage = &PostgresStorage{db: db, logger: testLogger()}
	var _ Storage = newTestSQLiteStorage(t)
	var _ Storage = NewConsoleStorage(testLogger())
}
