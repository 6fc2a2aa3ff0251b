package daemon

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Nicotcy/arb-scanner/internal/controlplane"
	"github.com/Nicotcy/arb-scanner/internal/venue"
	"github.com/Nicotcy/arb-scanner/pkg/httpserver"
	"github.com/Nicotcy/arb-scanner/pkg/types"
)

// App is the daemon's orchestrator: one instance owns the storage
// connection, the venue clients, the paper executor, and the control-plane
// watcher, and runs the single-goroutine iteration loop. Concurrency is
// bounded: only per-batch fetches inside one iteration run concurrently
// (§5), the loop itself is never reentrant.
type App struct {
	cfg  Config
	deps Deps

	mu    sync.RWMutex
	state loopState

	httpServer *httpserver.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// newApp wires an App from config and dependencies but starts nothing.
func newApp(cfg Config, deps Deps) *App {
	return &App{
		cfg:  cfg,
		deps: deps,
		state: loopState{
			cursor:    loadCursor(cfg.StatePath),
			backoff:   NewBackoff(cfg.BackoffBase, cfg.BackoffFactor, cfg.BackoffCap, cfg.BackoffJitter),
			cooldowns: make(map[string]int64),
		},
	}
}

// Run starts the control-plane watcher and blocks running the iteration
// loop until ctx is canceled or a signal is delivered by the caller.
func (a *App) Run(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.deps.Control.Run(a.ctx)
	}()

	if a.httpServer != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.httpServer.Start(); err != nil {
				a.deps.Logger.Error("http-server-failed", zap.Error(err))
			}
		}()
	}

	a.deps.Logger.Info("daemon-started", zap.String("mode", string(a.cfg.Mode)))

	for {
		select {
		case <-a.ctx.Done():
			return a.Shutdown()
		default:
		}

		sleep := a.runIteration(a.ctx)

		select {
		case <-a.ctx.Done():
			return a.Shutdown()
		case <-time.After(sleep):
		}
	}
}

// WithHTTPServer attaches an HTTP server to be started alongside the loop;
// the daemon also serves as that server's StatusProvider.
func (a *App) WithHTTPServer(s *httpserver.Server) *App {
	a.httpServer = s
	return a
}

// runIteration executes one pass of the 9-step state machine (§4.3) and
// returns how long to sleep before the next one.
func (a *App) runIteration(ctx context.Context) time.Duration {
	start := time.Now()
	err := a.iterate(ctx)
	IterationDurationSeconds.Observe(time.Since(start).Seconds())

	a.mu.Lock()
	a.state.lastIterationTs = nowTs()
	if err != nil {
		a.state.consecutiveFails++
		ConsecutiveFailures.Set(float64(a.state.consecutiveFails))
		sleep := a.state.backoff.NextSleep()
		a.mu.Unlock()

		IterationsTotal.WithLabelValues("failed").Inc()
		a.deps.Logger.Warn("iteration-failed", zap.Error(err), zap.Duration("backoff", sleep))
		return sleep
	}
	a.state.consecutiveFails = 0
	a.state.backoff.Reset()
	ConsecutiveFailures.Set(0)
	a.mu.Unlock()

	IterationsTotal.WithLabelValues("ok").Inc()
	return time.Duration(a.cfg.SleepSecs * float64(time.Second))
}

// iterate runs steps 1-8 of §4.3: poll control plane (via the already
// running watcher), refresh the universe on schedule, select a batch by
// cursor, fetch and evaluate it, trigger paper execution, then perform
// periodic maintenance.
func (a *App) iterate(ctx context.Context) error {
	control := a.deps.Control.Current()

	if err := a.maybeRefreshUniverse(ctx); err != nil {
		a.mu.RLock()
		empty := len(a.state.universeA) == 0
		a.mu.RUnlock()
		if empty {
			return fmt.Errorf("refresh universe: %w", err)
		}
		a.deps.Logger.Warn("universe-refresh-failed-using-cached", zap.Error(err))
	}

	a.mu.Lock()
	batch, next := nextBatch(a.state.universeA, a.state.cursor, a.cfg.BatchSize)
	universeB := append([]venue.RawMarket(nil), a.state.universeB...)
	a.mu.Unlock()

	if err := saveCursor(a.cfg.StatePath, next); err != nil {
		return fmt.Errorf("persist cursor: %w", err)
	}
	a.mu.Lock()
	a.state.cursor = next
	a.mu.Unlock()

	ts := nowTs()
	var signals []types.Signal
	var snapshotRows []snapshotRow

	resultsCh := make(chan result, len(batch))
	var fetchWG sync.WaitGroup

	const maxConcurrentFetches = 8
	sem := make(chan struct{}, maxConcurrentFetches)

	for _, m := range batch {
		m := m
		fetchWG.Add(1)
		sem <- struct{}{}
		go func() {
			defer fetchWG.Done()
			defer func() { <-sem }()
			resultsCh <- a.evaluateOne(ctx, m, universeB, control, ts)
		}()
	}
	fetchWG.Wait()
	close(resultsCh)

	for r := range resultsCh {
		signals = append(signals, r.signals...)
		snapshotRows = append(snapshotRows, r.rows...)
	}

	// Results arrive in fetch-completion order; put them in a fixed order
	// so persistence and execution do not depend on goroutine scheduling.
	sort.SliceStable(snapshotRows, func(i, j int) bool {
		if snapshotRows[i].Venue != snapshotRows[j].Venue {
			return snapshotRows[i].Venue < snapshotRows[j].Venue
		}
		return snapshotRows[i].MarketID < snapshotRows[j].MarketID
	})
	sort.SliceStable(signals, func(i, j int) bool {
		si, sj := signals[i], signals[j]
		if si.AVenue != sj.AVenue {
			return si.AVenue < sj.AVenue
		}
		if si.AMarketID != sj.AMarketID {
			return si.AMarketID < sj.AMarketID
		}
		if si.BVenue != sj.BVenue {
			return si.BVenue < sj.BVenue
		}
		return si.BMarketID < sj.BMarketID
	})

	// A persisted signal is tied to the snapshot rows it was computed from
	// by its ts and market ids; persisting a signal whose snapshots never
	// made it to storage leaves it without that evidence (§8's
	// signal-completeness property), so a
	// failed snapshot write skips persistence for the whole batch's
	// signals rather than writing them decoupled from their evidence.
	// Paper execution still runs off the in-memory signals below: the
	// storage failure is an audit-trail gap, not a reason to also refuse a
	// trade the evaluator already classified as an opportunity.
	snapshotsOK := true
	if err := a.persistSnapshots(ctx, snapshotRows); err != nil {
		a.deps.Logger.Warn("persist-snapshots-failed-skipping-batch-signals", zap.Error(err), zap.Int("signals-skipped", len(signals)))
		snapshotsOK = false
	}
	for _, sig := range signals {
		if snapshotsOK {
			if err := a.deps.Store.InsertSignal(ctx, sig); err != nil {
				a.deps.Logger.Warn("persist-signal-failed", zap.Error(err))
			}
		}
		if sig.Class == types.ClassOpportunity {
			a.mu.Lock()
			a.state.lastOpportunityTs = ts
			a.mu.Unlock()
		}
	}

	a.maybeExecute(ctx, signals, control)
	a.maybeMaintain(ctx, ts)

	return nil
}

// maybeExecute gates paper execution on control-plane enabled+mode=paper,
// skips signals whose (direction, a, b) key is within its cooldown window,
// and caps size to max_per_trade / sum_price, per §4.3 step 6 and §4.4.
func (a *App) maybeExecute(ctx context.Context, signals []types.Signal, control controlplane.State) {
	if a.deps.PaperExec == nil {
		return
	}
	if !control.Enabled || control.Mode != controlplane.ModePaper {
		return
	}

	now := nowTs()
	for _, sig := range signals {
		if sig.Class != types.ClassOpportunity {
			continue
		}

		key := cooldownKey{direction: string(sig.Kind), aMarket: sig.AMarketID, bMarket: sig.BMarketID}.String()

		a.mu.Lock()
		last, onCooldown := a.state.cooldowns[key]
		if onCooldown && now-last < a.cfg.TradeCooldownSecs {
			a.mu.Unlock()
			CooldownSkipsTotal.Inc()
			continue
		}
		a.state.cooldowns[key] = now
		a.mu.Unlock()

		size := clamp(a.cfg.MinExecutableSize, sig.ExecSize, control.MaxPerTrade/sig.SumPrice)
		plan := planFromSignal(sig, size)

		ok, reason, err := a.deps.PaperExec.TryExecute(ctx, plan)
		if err != nil {
			a.deps.Logger.Error("paper-execute-error", zap.Error(err))
			continue
		}
		a.deps.Logger.Info("paper-execute-attempted",
			zap.Bool("ok", ok), zap.String("reason", reason),
			zap.String("a-market-id", sig.AMarketID))
	}
}

func clamp(min, preferred, max float64) float64 {
	v := preferred
	if v > max {
		v = max
	}
	if v < min {
		v = min
	}
	return v
}

func planFromSignal(sig types.Signal, size float64) types.TradePlan {
	return types.TradePlan{
		Kind:     sig.Kind,
		BufEdge:  sig.BufEdge,
		SumPrice: sig.SumPrice,
		Size:     size,
		Legs: [2]types.Leg{
			{Venue: sig.AVenue, MarketID: sig.AMarketID, Side: types.SideYes, Action: "BUY", Price: sig.SumPrice / 2, SizeAvail: sig.ExecSize},
			{Venue: sig.BVenue, MarketID: sig.BMarketID, Side: types.SideNo, Action: "BUY", Price: sig.SumPrice / 2, SizeAvail: sig.ExecSize},
		},
		Details: sig.Details,
	}
}

// maybeMaintain runs prune/settle/WAL-checkpoint on their own configured
// cadences, each independent of the others and of the sample cadence.
func (a *App) maybeMaintain(ctx context.Context, now int64) {
	a.mu.Lock()
	runPrune := now-a.state.lastPruneAt >= a.cfg.PruneEverySecs
	runSettle := now-a.state.lastSettleAt >= a.cfg.SettleEverySecs
	runWAL := now-a.state.lastWALAt >= a.cfg.WALCheckpointSecs
	if runPrune {
		a.state.lastPruneAt = now
	}
	if runSettle {
		a.state.lastSettleAt = now
	}
	if runWAL {
		a.state.lastWALAt = now
	}
	a.mu.Unlock()

	if runPrune {
		if n, err := a.deps.Store.PruneSnapshots(ctx, a.cfg.SnapshotKeepDays); err != nil {
			a.deps.Logger.Warn("prune-snapshots-failed", zap.Error(err))
		} else if n > 0 {
			a.deps.Logger.Info("snapshots-pruned", zap.Int("count", n))
		}
	}
	if runSettle && a.deps.PaperExec != nil {
		if n, err := a.deps.PaperExec.MaybeSettle(ctx); err != nil {
			a.deps.Logger.Warn("settle-paper-trades-failed", zap.Error(err))
		} else if n > 0 {
			a.deps.Logger.Info("paper-trades-settled", zap.Int("count", n))
		}
	}
	if runWAL {
		if err := a.deps.Store.WALCheckpoint(ctx); err != nil {
			a.deps.Logger.Warn("wal-checkpoint-failed", zap.Error(err))
		}
	}
}

// Status implements httpserver.StatusProvider.
func (a *App) Status() httpserver.StatusSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	control := a.deps.Control.Current()
	return httpserver.StatusSnapshot{
		Mode:             string(a.cfg.Mode),
		UniverseSize:     len(a.state.universeA),
		Cursor:           a.state.cursor,
		LastIterationTs:  a.state.lastIterationTs,
		LastOpportunity:  a.state.lastOpportunityTs,
		ConsecutiveFails: a.state.consecutiveFails,
		ControlEnabled:   control.Enabled,
		ControlMode:      string(control.Mode),
	}
}
