package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// newRootCmd builds the command tree. Tests build a fresh tree per run so
// flag state never leaks between executions.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "blepool",
		Short: "Bounded Bluetooth Low Energy connection pool",
		Long: `Keeps a bounded set of Bluetooth Low Energy (BLE) connections alive:

- At most one connection per device address
- Least recently used connection is disconnected when the pool is full
- Connections that drop are removed from the pool automatically
- simulate command exercises the pool without a radio

The pool size comes from --max-connections or the max_connections config key.`,
		Version: formatVersion(version),
		// Silence Cobra's "Error:" prefix - main() prints clean errors
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate(fmt.Sprintf("blepool {{.Version}} (commit %s, built %s)\n", commit, date))

	rootCmd.AddCommand(newConnectCmd())
	rootCmd.AddCommand(newSimulateCmd())

	// Global flags
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().Int("max-connections", 0, "Maximum pooled connections (overrides config)")
	rootCmd.PersistentFlags().StringP("format", "f", "", "Output format (table, json)")

	// Add -v as a short flag for --version
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		os.Exit(1)
	}
}
