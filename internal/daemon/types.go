// Package daemon implements the long-running scan loop: refresh the market
// universe, sample top-of-book per batch, evaluate hedges, paper-execute
// opportunities, and perform periodic maintenance. Grounded simultaneously
// on the teacher's internal/app package (New/setup*/Run/Shutdown shape,
// zap field conventions, reverse-dependency-order teardown) and on
// original_source/daemon.py's literal iteration body (the 9-step loop,
// Backoff class, cursor persistence, batch selection).
package daemon

import (
	"time"

	"go.uber.org/zap"

	"github.com/Nicotcy/arb-scanner/internal/controlplane"
	"github.com/Nicotcy/arb-scanner/internal/evaluator"
	"github.com/Nicotcy/arb-scanner/internal/mapping"
	"github.com/Nicotcy/arb-scanner/internal/paperexec"
	"github.com/Nicotcy/arb-scanner/internal/storage"
	"github.com/Nicotcy/arb-scanner/internal/venue"
	"github.com/Nicotcy/arb-scanner/pkg/types"
)

// Config holds every tunable the daemon loop needs. Populated by cmd/ from
// pkg/config.Config plus CLI flag overrides.
type Config struct {
	Mode           evaluator.Mode
	UseCross       bool
	UseInternal    bool
	RequireMapping bool

	RefreshMarketsSecs int
	MaxPagesPerRefresh int
	MarketsPerPage     int
	BatchSize          int
	SleepSecs          float64
	StatePath          string

	BackoffBase   float64
	BackoffFactor float64
	BackoffCap    float64
	BackoffJitter float64

	Policy evaluator.PolicyConfig

	TradeCooldownSecs int64
	MaxPerTrade       float64
	MinExecutableSize float64

	SnapshotKeepDays  int
	PruneEverySecs    int64
	SettleEverySecs   int64
	WALCheckpointSecs int64

	HTTPPort string
}

// Deps holds every wired dependency the daemon orchestrates, injected by
// setup.New rather than constructed inline, per the teacher's idiom.
type Deps struct {
	VenueA    venue.Client
	VenueB    venue.Client // nil when UseCross is false
	Mapping   *mapping.Registry
	Store     storage.Storage
	PaperExec *paperexec.Executor
	Control   *controlplane.Watcher
	Logger    *zap.Logger
}

// snapshotRow is the daemon-local projection of a MarketSnapshot, converted
// to storage.SnapshotRow just before persisting.
type snapshotRow struct {
	Ts       int64
	Venue    types.Venue
	MarketID string
	Question string
	YesAsk   *float64
	NoAsk    *float64
	YesSz    *float64
	NoSz     *float64
}

// result is what evaluateOne returns for one batch item: the snapshot rows
// to persist and any signals it produced.
type result struct {
	signals []types.Signal
	rows    []snapshotRow
}

// cooldownKey identifies one (direction, venue_a_id, venue_b_id) trigger
// slot, per §4.4's cooldown design decision (owned by this package, not
// paperexec).
type cooldownKey struct {
	direction string
	aMarket   string
	bMarket   string
}

func (k cooldownKey) String() string {
	return k.direction + "|" + k.aMarket + "|" + k.bMarket
}

// loopState is the daemon's mutable iteration state, guarded by App.mu.
type loopState struct {
	universeA           []venue.RawMarket
	universeB           []venue.RawMarket
	cursor              int
	universeRefreshedAt time.Time

	backoff          *Backoff
	consecutiveFails int

	lastIterationTs   int64
	lastOpportunityTs int64
	lastPruneAt       int64
	lastSettleAt      int64
	lastWALAt         int64

	cooldowns map[string]int64
}
