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
var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List resting orders",
	Long: `List the account's resting orders. The bot's legs are IOC and
expire within seconds; anything still resting here is either about to
expire or was placed outside the bot.`,
	Args: cobra.NoArgs,
	RunE: runOrders,
}

//nolint:gochecknoglobals // Cobra boilerplate
var (
	ordersTicker string
	ordersStatus string
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(ordersCmd)
	ordersCmd.Flags().StringVarP(&ordersTicker, "ticker", "t", "", "Filter by market ticker")
	ordersCmd.Flags().StringVar(&ordersStatus, "status", "resting", "Order status filter")
}

func runOrders(cmd *cobra.Command, args []string) error {
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

	orders, err := client.GetOrders(ctx, kalshi.OrdersParams{
		Ticker: ordersTicker,
		Status: ordersStatus,
	})
	if err != nil {
		return fmt.Errorf("get orders: %w", err)
	}
	if len(orders) == 0 {
		fmt.Printf("No %s orders\n", ordersStatus)
		return nil
	}

	fmt.Printf("=== Orders (%d, status=%s) ===\n\n", len(orders), ordersStatus)
	fmt.Printf("%-24s %-30s %-4s %-4s %6s %8s %10s\n",
		"ORDER ID", "TICKER", "SIDE", "ACT", "PRICE", "COUNT", "REMAINING")

	for i := range orders {
		o := &orders[i]
		fmt.Printf("%-24s %-30s %-4s %-4s %5dc %8d %10d\n",
			o.OrderID, o.Ticker, o.Side, o.Action, o.Price, o.Count, o.RemainingCount)
	}

	return nil
}
