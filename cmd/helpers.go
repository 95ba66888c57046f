package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/pkg/config"
	"github.com/mselser95/kalshi-arb/pkg/kalshi"
)

// loadConfig reads .env when present, then the environment. A missing
// .env is fine; commands run with exported variables alone.
func loadConfig() (*config.Config, error) {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		fmt.Printf("Warning: could not load .env: %v\n", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newVenueClient builds the signed REST client the one-shot commands
// share.
func newVenueClient(cfg *config.Config, logger *zap.Logger) (*kalshi.Client, error) {
	signer, err := kalshi.NewSigner(cfg.APIKeyID, cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	client, err := kalshi.NewClient(kalshi.ClientConfig{
		BaseURL:        cfg.BaseURL,
		Signer:         signer,
		ReadRateLimit:  cfg.ReadRateLimit,
		WriteRateLimit: cfg.WriteRateLimit,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return client, nil
}

// formatCents renders integer cents as dollars, e.g. 12345 -> "$123.45".
func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

// formatQuote renders a one-sided quote, "-" when unquoted.
func formatQuote(price int) string {
	if price <= 0 {
		return "-"
	}
	return fmt.Sprintf("%dc", price)
}
