package daemon

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Nicotcy/arb-scanner/internal/controlplane"
	"github.com/Nicotcy/arb-scanner/internal/evaluator"
	"github.com/Nicotcy/arb-scanner/internal/mapping"
	"github.com/Nicotcy/arb-scanner/internal/paperexec"
	"github.com/Nicotcy/arb-scanner/internal/storage"
	"github.com/Nicotcy/arb-scanner/internal/venue"
	"github.com/Nicotcy/arb-scanner/internal/venue/venuea"
	"github.com/Nicotcy/arb-scanner/internal/venue/venueb"
	"github.com/Nicotcy/arb-scanner/pkg/cache"
	"github.com/Nicotcy/arb-scanner/pkg/config"
	"github.com/Nicotcy/arb-scanner/pkg/healthprobe"
	"github.com/Nicotcy/arb-scanner/pkg/httpserver"
	"github.com/Nicotcy/arb-scanner/pkg/types"
)

// New builds an App and every component it depends on from the loaded
// config, mirroring the teacher's internal/app/setup.go idiom: one
// top-level New plus a setupX helper per component, wired in dependency
// order rather than constructed inline.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	venueAClient := setupVenueA(cfg, logger)

	var venueBClient venue.Client
	var mappingRegistry *mapping.Registry
	if cfg.UseCross {
		venueBClient = setupVenueB(cfg, logger)
		mappingRegistry = mapping.New(cfg.MappingFilePath, venueBClient, logger)
		if err := mappingRegistry.Load(); err != nil {
			logger.Warn("mapping-load-failed", zap.Error(err))
		}
		mappingRegistry.ResolveAll(ctx)

		if cfg.RequireMapping {
			usable := 0
			for _, e := range mappingRegistry.Entries() {
				if e.TokensResolved() {
					usable++
				}
			}
			if usable == 0 {
				return nil, fmt.Errorf("cross-venue mode with REQUIRE_MAPPING: %w", types.ErrNoMapping)
			}
		}
	}

	store, err := setupStorage(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	var paperExec *paperexec.Executor
	if cfg.Mode == "lab" || cfg.Mode == "safe" {
		paperExec, err = setupPaperExec(ctx, cfg, store, logger)
		if err != nil {
			return nil, fmt.Errorf("setup paper executor: %w", err)
		}
	}

	control, err := controlplane.New(cfg.ControlPlaneFilePath, time.Duration(cfg.ControlPlanePollSecs)*time.Second, logger)
	if err != nil {
		return nil, fmt.Errorf("setup control plane: %w", err)
	}

	mode := evaluator.ModeLab
	policy := evaluator.DefaultLabPolicy()
	if cfg.Mode == "safe" {
		mode = evaluator.ModeSafe
		policy = evaluator.DefaultSafePolicy()
	}
	policy.MinEdgeOpportunity = cfg.MinEdgeOpportunity
	policy.MinExecutableSize = cfg.MinExecutableSize
	policy.NearMissEdgeFloor = cfg.NearMissEdgeFloor
	if cfg.NearMissEdgeCeilingSet {
		ceiling := cfg.NearMissEdgeCeiling
		policy.NearMissEdgeCeiling = &ceiling
	}
	policy.NearMissIncludeWeirdSums = cfg.NearMissIncludeWeirdSums
	policy.FeeBufferBps = cfg.FeeBufferBps
	policy.AlertOnly = cfg.AlertOnly
	policy.AlertThreshold = cfg.AlertThreshold
	policy.DryRun = cfg.DryRun

	daemonCfg := Config{
		Mode:           mode,
		UseCross:       cfg.UseCross,
		UseInternal:    cfg.UseInternal,
		RequireMapping: cfg.RequireMapping,

		RefreshMarketsSecs: cfg.RefreshMarketsSecs,
		MaxPagesPerRefresh: cfg.MaxPagesPerRefresh,
		MarketsPerPage:     cfg.MarketsPerPage,
		BatchSize:          cfg.BatchSize,
		SleepSecs:          cfg.SleepSecs,
		StatePath:          cfg.StatePath,

		BackoffBase:   cfg.BackoffBaseSecs,
		BackoffFactor: cfg.BackoffFactor,
		BackoffCap:    cfg.BackoffCapSecs,
		BackoffJitter: cfg.BackoffJitterFrac,

		Policy: policy,

		TradeCooldownSecs: cfg.TradeCooldownSecs,
		MaxPerTrade:       cfg.MaxPerTrade,
		MinExecutableSize: cfg.MinExecutableSize,

		SnapshotKeepDays:  cfg.SnapshotKeepDays,
		PruneEverySecs:    cfg.PruneEverySecs,
		SettleEverySecs:   cfg.SettleEverySecs,
		WALCheckpointSecs: cfg.WALCheckpointSecs,

		HTTPPort: cfg.HTTPPort,
	}

	a := newApp(daemonCfg, Deps{
		VenueA:    venueAClient,
		VenueB:    venueBClient,
		Mapping:   mappingRegistry,
		Store:     store,
		PaperExec: paperExec,
		Control:   control,
		Logger:    logger,
	})

	healthChecker := healthprobe.New()
	healthChecker.SetReady(true)
	httpSrv := httpserver.New(&httpserver.Config{
		Port:           cfg.HTTPPort,
		Logger:         logger,
		HealthChecker:  healthChecker,
		StatusProvider: a,
	})
	a.WithHTTPServer(httpSrv)

	return a, nil
}

func setupVenueA(cfg *config.Config, logger *zap.Logger) *venuea.Client {
	return venuea.New(venuea.Config{
		BaseURL:        cfg.VenueABaseURL,
		ConnectTimeout: cfg.VenueAConnectTimeout,
		ReadTimeout:    cfg.VenueAReadTimeout,
		RetryBudget:    cfg.VenueARetryBudget,
		Logger:         logger,
	})
}

func setupVenueB(cfg *config.Config, logger *zap.Logger) *venueb.Client {
	metaCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		logger.Warn("venue-b-meta-cache-disabled", zap.Error(err))
	}
	return venueb.New(venueb.Config{
		GammaBaseURL:   cfg.VenueBGammaURL,
		CLOBBaseURL:    cfg.VenueBCLOBURL,
		ConnectTimeout: cfg.VenueBConnectTimeout,
		ReadTimeout:    cfg.VenueBReadTimeout,
		RetryBudget:    cfg.VenueBRetryBudget,
		MetaCache:      metaCache,
		MetaCacheTTL:   cfg.VenueBMetaCacheTTL,
		Logger:         logger,
	})
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	switch cfg.StorageMode {
	case "postgres":
		return storage.NewPostgresStorage(storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
	case "sqlite":
		return storage.NewSQLiteStorage(storage.SQLiteConfig{
			Path:          cfg.DBPath,
			BusyTimeoutMS: cfg.SQLiteBusyTimeoutMS,
			Logger:        logger,
		})
	default:
		return storage.NewConsoleStorage(logger), nil
	}
}

func setupPaperExec(ctx context.Context, cfg *config.Config, store storage.Storage, logger *zap.Logger) (*paperexec.Executor, error) {
	return paperexec.New(ctx, paperexec.Config{
		Store:           store,
		SettleAfterSecs: cfg.PaperSettleAfterSecs,
		MinFreeBalance:  cfg.PaperMinFreeBalance,
		InitialBankroll: cfg.PaperBankroll,
		Logger:          logger,
	})
}
