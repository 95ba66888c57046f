package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "kalshi-arb",
	Short: "Kalshi arbitrage bot",
	Long: `Kalshi arbitrage bot that tracks event order books in real time,
detects mispricings across mutually exclusive outcome sets, and executes
them as IOC order groups.

The bot maintains books from the authenticated WebSocket stream (REST
snapshot plus deltas), scans for multi-outcome, temporal and correlated
arbitrage, and sizes every trade through an exposure gate and a circuit
breaker before submission.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
