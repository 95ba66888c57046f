package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Show open positions and their exposure",
	Args:  cobra.NoArgs,
	RunE:  runPositions,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(positionsCmd)
}

func runPositions(cmd *cobra.Command, args []string) error {
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

	positions, err := client.GetPositions(ctx)
	if err != nil {
		return fmt.Errorf("get positions: %w", err)
	}

	open := positions[:0]
	for i := range positions {
		if positions[i].Contracts() > 0 {
			open = append(open, positions[i])
		}
	}
	if len(open) == 0 {
		fmt.Println("No open positions")
		return nil
	}

	sort.Slice(open, func(i, j int) bool {
		return open[i].MarketExposure > open[j].MarketExposure
	})

	fmt.Printf("=== Open Positions (%d) ===\n\n", len(open))
	fmt.Printf("%-30s %-5s %10s %12s %8s\n",
		"TICKER", "SIDE", "CONTRACTS", "EXPOSURE", "RESTING")

	totalExposure := 0
	for i := range open {
		p := &open[i]
		fmt.Printf("%-30s %-5s %10d %12s %8d\n",
			p.Ticker, p.Side(), p.Contracts(),
			formatCents(int64(p.MarketExposure)), p.RestingOrdersCount)
		totalExposure += p.MarketExposure
	}

	fmt.Printf("\nTotal exposure: %s\n", formatCents(int64(totalExposure)))
	return nil
}
