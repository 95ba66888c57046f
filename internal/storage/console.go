package storage

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/internal/arbitrage"
	"github.com/mselser95/kalshi-arb/internal/execution"
)

const consoleRule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// ConsoleStorage implements Storage by pretty-printing to console.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		logger: logger,
	}
}

// StoreOpportunity pretty-prints an arbitrage opportunity to console.
func (c *ConsoleStorage) StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error {
	fmt.Println("\n" + consoleRule)
	fmt.Printf("🎯 ARBITRAGE OPPORTUNITY DETECTED\n")
	fmt.Println(consoleRule)
	fmt.Printf("ID:       %s\n", shortID(opp.ID))
	fmt.Printf("Type:     %s\n", opp.Type)
	fmt.Printf("Event:    %s\n", opp.EventTicker)
	fmt.Printf("Time:     %s\n", opp.DetectedAt.Format("2006-01-02 15:04:05"))
	fmt.Println(consoleRule)
	fmt.Printf("📊 LEGS\n")
	for _, leg := range opp.Legs {
		fmt.Printf("  %-4s %-3s %-30s @ %2d¢ x %d\n",
			leg.Action, leg.Side, leg.Ticker, leg.Price, leg.Quantity)
	}
	fmt.Println(consoleRule)
	fmt.Printf("💰 PROFIT ANALYSIS (per unit quantity)\n")
	fmt.Printf("  Total Cost:      %s\n", centsString(opp.TotalCostCents))
	fmt.Printf("  Guaranteed:      %s\n", centsString(opp.GuaranteedReturnCents))
	fmt.Printf("  Gross Profit:    %s\n", centsString(opp.GrossProfitCents))
	fmt.Printf("  Est. Fees:       %s\n", centsString(opp.EstimatedFeesCents))
	fmt.Printf("  Net Profit:      %s\n", centsString(opp.NetProfitCents))
	fmt.Printf("  Max Quantity:    %d\n", opp.MaxQuantity)
	fmt.Printf("  Confidence:      %.2f\n", opp.Confidence)
	if opp.NetProfitCents > 0 {
		fmt.Printf("  ✅ PROFITABLE after fees!\n")
	} else {
		fmt.Printf("  ❌ NOT profitable after fees\n")
	}
	fmt.Println(consoleRule)

	return nil
}

// StoreResult pretty-prints an execution result to console.
func (c *ConsoleStorage) StoreResult(ctx context.Context, result *execution.Result) error {
	fmt.Println("\n" + consoleRule)
	if result.Success {
		fmt.Printf("✅ TRADE EXECUTED\n")
	} else {
		fmt.Printf("❌ TRADE %s\n", strings.ToUpper(string(result.Status)))
	}
	fmt.Println(consoleRule)
	fmt.Printf("Opportunity: %s\n", shortID(result.OpportunityID))
	if result.GroupID != "" {
		fmt.Printf("Group:       %s\n", shortID(result.GroupID))
	}
	fmt.Printf("Filled Legs: %d/%d\n", result.FilledLegs, result.TotalLegs)
	fmt.Printf("Profit:      %s\n", centsString(result.ProfitCents))
	if result.Error != "" {
		fmt.Printf("Error:       %s\n", result.Error)
	}
	fmt.Println(consoleRule)

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func centsString(cents int) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}
