package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mselser95/kalshi-arb/internal/app"
	"github.com/mselser95/kalshi-arb/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the arbitrage bot",
	Long: `Starts the Kalshi arbitrage bot, which will:
1. Fetch market metadata for the watched events
2. Subscribe to their order books on the authenticated WebSocket stream
3. Scan for multi-outcome, temporal and correlated arbitrage
4. Execute opportunities as IOC order groups (paper mode by default)

Events come from WATCHED_EVENTS or the --events flag; both are merged.

Examples:
  # Watch the configured events in paper mode
  go run . run

  # Watch specific events
  go run . run --events KXPRES-24,KXSENATE-24-TX`,
	RunE: runBot,
}

//nolint:gochecknoglobals // Cobra boilerplate
var runEvents []string

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringSliceVarP(&runEvents, "events", "e", nil, "Event tickers to watch (comma-separated)")
}

func runBot(cmd *cobra.Command, args []string) error {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		fmt.Printf("Warning: could not load .env: %v\n", err)
	}

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

	opts := &app.Options{
		Events: runEvents,
	}

	engine, err := app.New(cfg, logger, opts)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	err = engine.Run()
	if err != nil {
		return fmt.Errorf("run engine: %w", err)
	}

	return nil
}
