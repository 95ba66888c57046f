package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/pkg/kalshi"
)

//nolint:gochecknoglobals // Cobra boilerplate
var marketsCmd = &cobra.Command{
	Use:   "markets <event-ticker>",
	Short: "List the markets of an event with summary quotes",
	Long: `Fetch every market under an event and print its summary quotes.

The sum of the implied YES asks across a mutually exclusive event is the
quickest mispricing check: below 100c the basket is an arbitrage.

Examples:
  go run . markets KXPRES-24
  go run . markets KXPRES-24 --status settled`,
	Args: cobra.ExactArgs(1),
	RunE: runMarkets,
}

//nolint:gochecknoglobals // Cobra boilerplate
var marketsStatus string

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(marketsCmd)
	marketsCmd.Flags().StringVar(&marketsStatus, "status", "open", "Market status filter")
}

func runMarkets(cmd *cobra.Command, args []string) error {
	eventTicker := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := newVenueClient(cfg, zap.NewNop())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.GetMarkets(ctx, kalshi.MarketsParams{
		EventTicker: eventTicker,
		Status:      marketsStatus,
	})
	if err != nil {
		return fmt.Errorf("get markets: %w", err)
	}
	if len(resp.Markets) == 0 {
		fmt.Printf("No %s markets under %s\n", marketsStatus, eventTicker)
		return nil
	}

	fmt.Printf("=== %s (%d markets) ===\n\n", eventTicker, len(resp.Markets))
	fmt.Printf("%-30s %-8s %8s %8s %8s %10s\n",
		"TICKER", "STATUS", "YES BID", "YES ASK", "NO BID", "VOLUME")

	askSum := 0
	complete := true
	for i := range resp.Markets {
		m := &resp.Markets[i]
		fmt.Printf("%-30s %-8s %8s %8s %8s %10d\n",
			m.Ticker, m.Status,
			formatQuote(m.YesBid), formatQuote(m.YesAsk), formatQuote(m.NoBid),
			m.Volume)

		if m.YesAsk > 0 {
			askSum += m.YesAsk
		} else {
			complete = false
		}
	}

	if complete {
		fmt.Printf("\nSum of YES asks: %dc", askSum)
		if askSum < 100 {
			fmt.Printf("  (basket under payout by %dc before fees)", 100-askSum)
		}
		fmt.Println()
	}

	return nil
}
