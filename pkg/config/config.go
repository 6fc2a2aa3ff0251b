package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/Nicotcy/arb-scanner/pkg/types"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Venue A (bid-only, cents-priced) API
	VenueABaseURL        string
	VenueAConnectTimeout time.Duration
	VenueAReadTimeout    time.Duration
	VenueARetryBudget    int

	// Venue B (CLOB + metadata) API
	VenueBGammaURL       string
	VenueBCLOBURL        string
	VenueBConnectTimeout time.Duration
	VenueBReadTimeout    time.Duration
	VenueBRetryBudget    int
	VenueBMetaCacheTTL   time.Duration

	// Market universe
	RefreshMarketsSecs int
	MaxPagesPerRefresh int
	MarketsPerPage     int

	// Daemon loop
	Mode            string // "lab" or "safe"
	UseCross        bool
	UseInternal     bool
	BatchSize       int
	SleepSecs       float64
	StatePath       string
	MappingFilePath string

	// DryRun must stay true: this system never places real orders. Pinned
	// per §6/§7, checked in Validate rather than trusted from the caller.
	DryRun bool
	// RequireMapping, when true, disables the normalized-question-equality
	// fallback: cross-venue pairing must come from the curated mapping
	// registry alone, and a registry that resolves to zero usable entries
	// is a fatal startup condition rather than a silent degrade.
	RequireMapping bool

	// Backoff (daemon iteration failure handling)
	BackoffBaseSecs   float64
	BackoffFactor     float64
	BackoffCapSecs    float64
	BackoffJitterFrac float64

	// Evaluator policy
	MinEdgeOpportunity       float64
	MinExecutableSize        float64
	NearMissEdgeFloor        float64
	NearMissEdgeCeilingSet   bool
	NearMissEdgeCeiling      float64
	NearMissIncludeWeirdSums bool
	FeeBufferBps             float64
	AlertOnly                bool
	AlertThreshold           float64

	// Paper executor
	PaperBankroll       float64
	PaperSettleAfterSecs int64
	PaperMinFreeBalance float64
	TradeCooldownSecs   int64
	MaxPerTrade         float64

	// Storage / maintenance
	StorageMode        string // "postgres", "sqlite", or "console"
	DBPath             string // sqlite file path
	SQLiteBusyTimeoutMS int
	SnapshotKeepDays   int
	PruneEverySecs     int64
	SettleEverySecs    int64
	WALCheckpointSecs  int64

	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string

	// Control plane
	ControlPlaneFilePath string
	ControlPlanePollSecs int
}

// LoadFromEnv loads a .env file if present (missing file is not an error),
// then reads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	ceiling, ceilingSet := os.LookupEnv("NEAR_MISS_EDGE_CEILING")
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Venue A defaults
		VenueABaseURL:        getEnvOrDefault("VENUE_A_BASE_URL", "https://trading-api.venue-a.example/v2"),
		VenueAConnectTimeout: getDurationOrDefault("VENUE_A_CONNECT_TIMEOUT", 3*time.Second),
		VenueAReadTimeout:    getDurationOrDefault("VENUE_A_READ_TIMEOUT", 12*time.Second),
		VenueARetryBudget:    getIntOrDefault("VENUE_A_RETRY_BUDGET", 2),

		// Venue B defaults
		VenueBGammaURL:       getEnvOrDefault("VENUE_B_GAMMA_URL", "https://gamma-api.venue-b.example"),
		VenueBCLOBURL:        getEnvOrDefault("VENUE_B_CLOB_URL", "https://clob.venue-b.example"),
		VenueBConnectTimeout: getDurationOrDefault("VENUE_B_CONNECT_TIMEOUT", 3*time.Second),
		VenueBReadTimeout:    getDurationOrDefault("VENUE_B_READ_TIMEOUT", 12*time.Second),
		VenueBRetryBudget:    getIntOrDefault("VENUE_B_RETRY_BUDGET", 2),
		VenueBMetaCacheTTL:   getDurationOrDefault("VENUE_B_META_CACHE_TTL", 5*time.Minute),

		// Market universe defaults
		RefreshMarketsSecs: getIntOrDefault("REFRESH_MARKETS_SECS", 300),
		MaxPagesPerRefresh: getIntOrDefault("MAX_PAGES_PER_REFRESH", 20),
		MarketsPerPage:     getIntOrDefault("MARKETS_PER_PAGE", 200),

		// Daemon loop defaults
		Mode:            getEnvOrDefault("MODE", "lab"),
		UseCross:        getBoolOrDefault("USE_CROSS", true),
		UseInternal:     getBoolOrDefault("USE_INTERNAL", true),
		BatchSize:       getIntOrDefault("BATCH_SIZE", 50),
		SleepSecs:       getFloat64OrDefault("SLEEP_SECS", 5.0),
		StatePath:       getEnvOrDefault("STATE_PATH", ".state/cursor.json"),
		MappingFilePath: getEnvOrDefault("MAPPING_FILE_PATH", ".state/mappings.json"),
		DryRun:          getBoolOrDefault("DRY_RUN", true),
		RequireMapping:  getBoolOrDefault("REQUIRE_MAPPING", false),

		// Backoff defaults, mirroring original_source/daemon.py's Backoff class
		BackoffBaseSecs:   getFloat64OrDefault("BACKOFF_BASE_SECS", 30.0),
		BackoffFactor:     getFloat64OrDefault("BACKOFF_FACTOR", 2.0),
		BackoffCapSecs:    getFloat64OrDefault("BACKOFF_CAP_SECS", 600.0),
		BackoffJitterFrac: getFloat64OrDefault("BACKOFF_JITTER_FRAC", 0.20),

		// Evaluator policy defaults (lab-mode shaped; safe mode tightens via --mode)
		MinEdgeOpportunity:       getFloat64OrDefault("MIN_EDGE_OPPORTUNITY", 0.01),
		MinExecutableSize:        getFloat64OrDefault("MIN_EXECUTABLE_SIZE", 1.0),
		NearMissEdgeFloor:        getFloat64OrDefault("NEAR_MISS_EDGE_FLOOR", -0.05),
		NearMissIncludeWeirdSums: getBoolOrDefault("NEAR_MISS_INCLUDE_WEIRD_SUMS", false),
		FeeBufferBps:             getFloat64OrDefault("FEE_BUFFER_BPS", 25.0),
		AlertOnly:                getBoolOrDefault("ALERT_ONLY", false),
		AlertThreshold:           getFloat64OrDefault("ALERT_THRESHOLD", 0.03),

		// Paper executor defaults
		PaperBankroll:        getFloat64OrDefault("PAPER_BANKROLL", 1000.0),
		PaperSettleAfterSecs: int64(getIntOrDefault("PAPER_SETTLE_AFTER_SECS", 3600)),
		PaperMinFreeBalance:  getFloat64OrDefault("PAPER_MIN_FREE_BALANCE", 0.0),
		TradeCooldownSecs:    int64(getIntOrDefault("TRADE_COOLDOWN_SECS", 60)),
		MaxPerTrade:          getFloat64OrDefault("MAX_PER_TRADE", 50.0),

		// Storage / maintenance defaults
		StorageMode:         getEnvOrDefault("STORAGE_MODE", "sqlite"),
		DBPath:              getEnvOrDefault("DB_PATH", ".data/arb-scanner.db"),
		SQLiteBusyTimeoutMS: getIntOrDefault("SQLITE_BUSY_TIMEOUT_MS", 5000),
		SnapshotKeepDays:    getIntOrDefault("SNAPSHOT_KEEP_DAYS", 7),
		PruneEverySecs:      int64(getIntOrDefault("PRUNE_EVERY_SECS", 3600)),
		SettleEverySecs:     int64(getIntOrDefault("SETTLE_EVERY_SECS", 60)),
		WALCheckpointSecs:   int64(getIntOrDefault("WAL_CHECKPOINT_SECS", 300)),

		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "arb_scanner"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "arb_scanner"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "arb_scanner"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),

		// Control plane defaults
		ControlPlaneFilePath: getEnvOrDefault("CONTROL_PLANE_FILE_PATH", ".state/botctl.json"),
		ControlPlanePollSecs: getIntOrDefault("CONTROL_PLANE_POLL_SECS", 2),
	}

	if ceilingSet {
		v, err := strconv.ParseFloat(ceiling, 64)
		if err == nil {
			cfg.NearMissEdgeCeilingSet = true
			cfg.NearMissEdgeCeiling = v
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid. Failing here is a
// category-7 configuration error per §7: the process must exit 2 before
// starting any component, never limp along with a clamped value.
func (c *Config) Validate() (err error) {
	if !c.DryRun {
		return types.ErrDryRunDisabled
	}
	if c.HTTPPort == "" {
		return errors.New("HTTP_PORT cannot be empty")
	}
	if c.VenueABaseURL == "" {
		return errors.New("VENUE_A_BASE_URL cannot be empty")
	}
	if c.VenueBGammaURL == "" || c.VenueBCLOBURL == "" {
		return errors.New("VENUE_B_GAMMA_URL and VENUE_B_CLOB_URL cannot be empty")
	}

	if c.Mode != "lab" && c.Mode != "safe" {
		return fmt.Errorf("MODE must be 'lab' or 'safe', got %q", c.Mode)
	}
	if !c.UseCross && !c.UseInternal {
		return errors.New("at least one of USE_CROSS or USE_INTERNAL must be enabled")
	}

	if c.StorageMode != "postgres" && c.StorageMode != "sqlite" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres', 'sqlite', or 'console', got %q", c.StorageMode)
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.SleepSecs <= 0 {
		return fmt.Errorf("SLEEP_SECS must be positive, got %f", c.SleepSecs)
	}
	if c.RefreshMarketsSecs <= 0 {
		return fmt.Errorf("REFRESH_MARKETS_SECS must be positive, got %d", c.RefreshMarketsSecs)
	}

	if c.MinEdgeOpportunity <= 0 {
		return fmt.Errorf("MIN_EDGE_OPPORTUNITY must be positive, got %f", c.MinEdgeOpportunity)
	}
	if c.MinExecutableSize <= 0 {
		return fmt.Errorf("MIN_EXECUTABLE_SIZE must be positive, got %f", c.MinExecutableSize)
	}
	if c.FeeBufferBps < 0 {
		return fmt.Errorf("FEE_BUFFER_BPS must be non-negative, got %f", c.FeeBufferBps)
	}

	if c.PaperBankroll <= 0 {
		return fmt.Errorf("PAPER_BANKROLL must be positive, got %f", c.PaperBankroll)
	}
	if c.MaxPerTrade <= 0 {
		return fmt.Errorf("MAX_PER_TRADE must be positive, got %f", c.MaxPerTrade)
	}
	if c.TradeCooldownSecs < 0 {
		return fmt.Errorf("TRADE_COOLDOWN_SECS must be non-negative, got %d", c.TradeCooldownSecs)
	}

	if c.BackoffBaseSecs <= 0 || c.BackoffFactor <= 1 || c.BackoffCapSecs < c.BackoffBaseSecs {
		return fmt.Errorf("invalid backoff configuration: base=%f factor=%f cap=%f",
			c.BackoffBaseSecs, c.BackoffFactor, c.BackoffCapSecs)
	}

	if c.StatePath == "" {
		return errors.New("STATE_PATH cannot be empty")
	}
	if c.StorageMode != "console" {
		if c.StorageMode == "sqlite" && c.DBPath == "" {
			return errors.New("DB_PATH cannot be empty when STORAGE_MODE=sqlite")
		}
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}
