package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "voltrader",
	Short: "Volatility trading bot for binary-outcome event markets",
	Long: `Volatility trading bot that scans binary-outcome event markets,
scores them on volatility, spread and liquidity, and trades short-lived
momentum moves under a strict risk envelope.

The bot runs a periodic scan loop: refresh quotes, score markets, evaluate
exits then entries, and audit every decision. It starts in paper mode;
live trading requires explicit server-side enablement plus a typed
confirmation phrase.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}
