package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/internal/orderbook"
)

//nolint:gochecknoglobals // Cobra boilerplate
var orderbookCmd = &cobra.Command{
	Use:   "orderbook <ticker>",
	Short: "Show a market's bid ladders and implied asks",
	Long: `Fetch a REST order book snapshot and print both bid ladders.

Kalshi publishes bids only; asks are implied across sides (best YES ask
is 100c minus the best NO bid). The implied quotes shown here are what
the detector trades against.`,
	Args: cobra.ExactArgs(1),
	RunE: runOrderbook,
}

//nolint:gochecknoglobals // Cobra boilerplate
var orderbookDepth int

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(orderbookCmd)
	orderbookCmd.Flags().IntVarP(&orderbookDepth, "depth", "d", 10, "Ladder depth to fetch")
}

func runOrderbook(cmd *cobra.Command, args []string) error {
	ticker := args[0]

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

	data, err := client.GetOrderbook(ctx, ticker, orderbookDepth)
	if err != nil {
		return fmt.Errorf("get orderbook: %w", err)
	}

	book := orderbook.NewBook(ticker, *data)
	prices := book.BestPrices()

	fmt.Printf("=== %s ===\n\n", ticker)
	fmt.Printf("YES  bid %s / implied ask %s  (%d at ask)\n",
		formatQuote(prices.YesBid), formatQuote(prices.YesAsk), book.YesAskQuantity())
	fmt.Printf("NO   bid %s / implied ask %s\n\n",
		formatQuote(prices.NoBid), formatQuote(prices.NoAsk))

	fmt.Printf("%-20s   %-20s\n", "YES BIDS", "NO BIDS")
	rows := len(book.YesBids)
	if len(book.NoBids) > rows {
		rows = len(book.NoBids)
	}
	for i := 0; i < rows; i++ {
		left, right := "", ""
		if i < len(book.YesBids) {
			left = fmt.Sprintf("%3dc x %-10d", book.YesBids[i].Price, book.YesBids[i].Quantity)
		}
		if i < len(book.NoBids) {
			right = fmt.Sprintf("%3dc x %-10d", book.NoBids[i].Price, book.NoBids[i].Quantity)
		}
		fmt.Printf("%-20s   %-20s\n", left, right)
	}

	return nil
}
