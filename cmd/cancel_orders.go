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
var cancelOrdersCmd = &cobra.Command{
	Use:   "cancel-orders",
	Short: "Cancel all resting orders",
	Long: `Cancel every resting order on the account, one at a time.

Use --dry-run to preview orders without canceling.

Examples:
  # Preview orders without canceling
  go run . cancel-orders --dry-run

  # Cancel everything resting on one market
  go run . cancel-orders --ticker KXPRES-24-A`,
	Args: cobra.NoArgs,
	RunE: runCancelOrders,
}

//nolint:gochecknoglobals // Cobra boilerplate
var (
	cancelDryRun bool
	cancelTicker string
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(cancelOrdersCmd)
	cancelOrdersCmd.Flags().BoolVar(&cancelDryRun, "dry-run", false, "Preview orders without canceling")
	cancelOrdersCmd.Flags().StringVarP(&cancelTicker, "ticker", "t", "", "Only cancel orders on this market")
}

func runCancelOrders(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := newVenueClient(cfg, zap.NewNop())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	orders, err := client.GetOrders(ctx, kalshi.OrdersParams{Ticker: cancelTicker})
	if err != nil {
		return fmt.Errorf("get orders: %w", err)
	}
	if len(orders) == 0 {
		fmt.Println("No resting orders")
		return nil
	}

	fmt.Printf("Found %d resting orders\n\n", len(orders))
	for i := range orders {
		o := &orders[i]
		fmt.Printf("  %-24s %-30s %-4s %-4s %5dc x%d\n",
			o.OrderID, o.Ticker, o.Side, o.Action, o.Price, o.RemainingCount)
	}

	if cancelDryRun {
		fmt.Println("\nDry run: nothing canceled")
		return nil
	}

	fmt.Println()
	canceled := 0
	for i := range orders {
		_, err := client.CancelOrder(ctx, orders[i].OrderID)
		if err != nil {
			fmt.Printf("  cancel %s failed: %v\n", orders[i].OrderID, err)
			continue
		}
		canceled++
	}

	fmt.Printf("Canceled %d/%d orders\n", canceled, len(orders))
	return nil
}
