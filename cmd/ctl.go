package cmd

import (
	"fmt"
	"time"

	goccyjson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Nicotcy/arb-scanner/internal/controlplane"
)

const defaultControlPlaneStatePath = ".state/control.json"

//nolint:gochecknoglobals // Cobra boilerplate
var ctlCmd = &cobra.Command{
	Use:   "ctl",
	Short: "Read or mutate the control-plane state file",
	Long: `ctl reads and writes the same file the running daemon polls for its
enabled/mode/bankroll/max_per_trade/min_buf_edge switches. Every write is
atomic (temp file + rename), so the daemon never observes a half-written
file.`,
}

//nolint:gochecknoglobals // Cobra boilerplate
var ctlStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current control-plane state",
	RunE:  runCtlStatus,
}

//nolint:gochecknoglobals // Cobra boilerplate
var ctlOnCmd = &cobra.Command{
	Use:   "on",
	Short: "Enable the daemon in the given mode",
	RunE:  runCtlOn,
}

//nolint:gochecknoglobals // Cobra boilerplate
var ctlOffCmd = &cobra.Command{
	Use:   "off",
	Short: "Disable the daemon",
	RunE:  runCtlOff,
}

//nolint:gochecknoglobals // Cobra boilerplate
var ctlSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update individual control-plane fields",
	RunE:  runCtlSet,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(ctlCmd)
	ctlCmd.PersistentFlags().String("state-path", defaultControlPlaneStatePath, "Control-plane state file path")

	ctlCmd.AddCommand(ctlStatusCmd)

	ctlOnCmd.Flags().String("mode", "paper", "Mode to enable: alerts or paper")
	ctlCmd.AddCommand(ctlOnCmd)

	ctlCmd.AddCommand(ctlOffCmd)

	ctlSetCmd.Flags().Float64("bankroll", 0, "Set bankroll")
	ctlSetCmd.Flags().Float64("max-per-trade", 0, "Set max_per_trade")
	ctlSetCmd.Flags().Float64("min-buf-edge", 0, "Set min_buf_edge")
	ctlSetCmd.Flags().Int("enabled", -1, "Set enabled: 0 or 1")
	ctlSetCmd.Flags().String("mode", "", "Set mode: off, alerts, or paper")
	ctlCmd.AddCommand(ctlSetCmd)
}

func runCtlStatus(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("state-path")
	st := controlplane.Read(path)
	out, err := goccyjson.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func runCtlOn(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("state-path")
	mode, _ := cmd.Flags().GetString("mode")

	st := controlplane.Read(path)
	st.Enabled = true
	st.Mode = controlplane.Mode(mode)
	st.UpdatedAt = time.Now().Unix()

	if err := controlplane.Write(path, st); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	fmt.Printf("[ctl] enabled mode=%s state=%s\n", st.Mode, path)
	return nil
}

func runCtlOff(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("state-path")

	st := controlplane.Read(path)
	st.Enabled = false
	st.Mode = controlplane.ModeOff
	st.UpdatedAt = time.Now().Unix()

	if err := controlplane.Write(path, st); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	fmt.Printf("[ctl] disabled state=%s\n", path)
	return nil
}

func runCtlSet(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("state-path")
	st := controlplane.Read(path)

	if cmd.Flags().Changed("bankroll") {
		st.Bankroll, _ = cmd.Flags().GetFloat64("bankroll")
	}
	if cmd.Flags().Changed("max-per-trade") {
		st.MaxPerTrade, _ = cmd.Flags().GetFloat64("max-per-trade")
	}
	if cmd.Flags().Changed("min-buf-edge") {
		st.MinBufEdge, _ = cmd.Flags().GetFloat64("min-buf-edge")
	}
	if cmd.Flags().Changed("enabled") {
		v, _ := cmd.Flags().GetInt("enabled")
		st.Enabled = v != 0
	}
	if cmd.Flags().Changed("mode") {
		mode, _ := cmd.Flags().GetString("mode")
		st.Mode = controlplane.Mode(mode)
	}
	st.UpdatedAt = time.Now().Unix()

	if err := controlplane.Write(path, st); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	fmt.Printf("[ctl] updated state=%s\n", path)
	return nil
}
