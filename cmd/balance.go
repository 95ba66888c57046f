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
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show account balance and open exposure",
	Long: `Display the account's available balance, the cost basis of open
positions, and recent fill activity.`,
	Args: cobra.NoArgs,
	RunE: runBalance,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(balanceCmd)
}

func runBalance(cmd *cobra.Command, args []string) error {
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

	balance, err := client.GetBalance(ctx)
	if err != nil {
		return fmt.Errorf("get balance: %w", err)
	}

	positions, err := client.GetPositions(ctx)
	if err != nil {
		return fmt.Errorf("get positions: %w", err)
	}

	exposure := 0
	open := 0
	for i := range positions {
		if positions[i].Contracts() == 0 {
			continue
		}
		open++
		exposure += positions[i].MarketExposure
	}

	fmt.Printf("=== Account Balance ===\n\n")
	fmt.Printf("Environment:    %s\n", cfg.Environment)
	fmt.Printf("Available:      %s\n", formatCents(balance))
	fmt.Printf("Open positions: %d\n", open)
	fmt.Printf("Exposure:       %s\n", formatCents(int64(exposure)))

	fills, err := client.GetFills(ctx, kalshi.FillsParams{Limit: 5})
	if err != nil {
		return fmt.Errorf("get fills: %w", err)
	}
	if len(fills) > 0 {
		fmt.Printf("\nRecent fills:\n")
		for _, fill := range fills {
			fmt.Printf("  %-25s %-4s %-4s %3dc x%-5d %s\n",
				fill.Ticker, fill.Action, fill.Side, fill.Price, fill.Count,
				fill.CreatedTime.Format(time.RFC3339))
		}
	}

	return nil
}
