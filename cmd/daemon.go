package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Nicotcy/arb-scanner/internal/daemon"
	"github.com/Nicotcy/arb-scanner/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the arbitrage scan loop",
	Long: `Starts the scan loop: refreshes the market universe on a schedule,
samples top-of-book for one batch of markets per iteration, evaluates every
pairable market for a hedge, persists the resulting signals, and (when the
control plane is enabled in paper mode) paper-trades opportunities.

--mode selects the threshold profile: lab is permissive for development,
safe is the tighter production profile. Flags passed here override the
corresponding environment-sourced default.`,
	RunE: runDaemon,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().String("mode", "", "Threshold profile: lab or safe (default from MODE env var)")
	daemonCmd.Flags().Bool("use-cross", true, "Evaluate cross-venue hedges")
	daemonCmd.Flags().Bool("use-internal", true, "Evaluate intra-venue hedges")
	daemonCmd.Flags().Int("refresh-markets-secs", 0, "Market universe refresh interval in seconds (0 = use config default)")
	daemonCmd.Flags().Int("batch-size", 0, "Markets sampled per iteration (0 = use config default)")
	daemonCmd.Flags().Float64("sleep-secs", 0, "Sleep between iterations in seconds (0 = use config default)")
	daemonCmd.Flags().String("state-path", "", "Cursor state file path (empty = use config default)")
	daemonCmd.Flags().String("db-path", "", "SQLite database file path (empty = use config default)")
	daemonCmd.Flags().Float64("alert-threshold", 0, "Alert-only edge threshold (0 = use config default)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	applyDaemonFlagOverrides(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := daemon.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	return application.Run(ctx)
}

func applyDaemonFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("mode"); v != "" {
		cfg.Mode = v
	}
	if cmd.Flags().Changed("use-cross") {
		cfg.UseCross, _ = cmd.Flags().GetBool("use-cross")
	}
	if cmd.Flags().Changed("use-internal") {
		cfg.UseInternal, _ = cmd.Flags().GetBool("use-internal")
	}
	if v, _ := cmd.Flags().GetInt("refresh-markets-secs"); v > 0 {
		cfg.RefreshMarketsSecs = v
	}
	if v, _ := cmd.Flags().GetInt("batch-size"); v > 0 {
		cfg.BatchSize = v
	}
	if v, _ := cmd.Flags().GetFloat64("sleep-secs"); v > 0 {
		cfg.SleepSecs = v
	}
	if v, _ := cmd.Flags().GetString("state-path"); v != "" {
		cfg.StatePath = v
	}
	if v, _ := cmd.Flags().GetString("db-path"); v != "" {
		cfg.DBPath = v
	}
	if v, _ := cmd.Flags().GetFloat64("alert-threshold"); v > 0 {
		cfg.AlertThreshold = v
		cfg.AlertOnly = true
	}
}
