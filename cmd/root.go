package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/Nicotcy/arb-scanner/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "arb-scanner",
	Short: "Cross-venue binary-market arbitrage scanner",
	Long: `arb-scanner samples top-of-book across two binary-options venues,
evaluates every pairable market for a hedge that costs less than 1.0,
and either logs the opportunity or paper-trades it.

It never places live orders: execution is always a simulated ledger
entry, gated by the control plane's enabled/mode switches.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error returned from the command tree to a process
// exit code. Per §6/§7, the two config-boundary sentinel errors (dry-run
// pinning, missing cross-venue mapping) exit 2; everything else exits 1.
func exitCodeFor(err error) int {
	if errors.Is(err, types.ErrDryRunDisabled) || errors.Is(err, types.ErrNoMapping) {
		return 2
	}
	return 1
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}
