package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment names accepted in ENVIRONMENT.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Venue URLs per environment. KALSHI_API_BASE_URL / KALSHI_WS_URL override.
const (
	prodBaseURL = "https://api.elections.kalshi.com/trade-api/v2"
	prodWSURL   = "wss://api.elections.kalshi.com/trade-api/ws/v2"
	demoBaseURL = "https://demo-api.kalshi.co/trade-api/v2"
	demoWSURL   = "wss://demo-api.kalshi.co/trade-api/ws/v2"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel    string
	LogFormat   string
	Environment string
	MetricsPort int

	// Kalshi API
	APIKeyID       string
	PrivateKeyPath string
	BaseURL        string
	WebsocketURL   string

	// Trading thresholds
	MinProfitCents            int
	MinPriceDiffCents         int
	EquivalentThresholdCents  int
	FeeRate                   float64
	MaxPositionPerMarket      int
	MaxExposureCents          int
	MaxExposurePerMarketCents int
	MaxConcurrentPositions    int

	// Strategies
	EnableMultiOutcome   bool
	EnableTemporal       bool
	EnableCorrelated     bool
	CorrelationRulesPath string
	WatchedEvents        []string

	// Circuit breaker
	MaxDailyLossCents    int
	MaxConsecutiveLosses int
	Cooldown             time.Duration
	HalfOpenTestLimit    int

	// Rate limiting (requests per second)
	ReadRateLimit  int
	WriteRateLimit int

	// Engine
	ScanInterval            time.Duration
	SyncInterval            time.Duration
	MaxConcurrentExecutions int
	ParallelLegSubmission   bool
	ExecutionMode           string // "paper" or "live"

	// WebSocket
	WSDialTimeout       time.Duration
	WSPingInterval      time.Duration
	WSPongTimeout       time.Duration
	WSMessageBufferSize int

	// Alerts
	SlackWebhookURL   string
	DiscordWebhookURL string

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	environment := getEnvOrDefault("ENVIRONMENT", EnvDevelopment)

	baseURL := demoBaseURL
	wsURL := demoWSURL
	if environment == EnvProduction {
		baseURL = prodBaseURL
		wsURL = prodWSURL
	}

	cfg := &Config{
		// Application defaults
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:   getEnvOrDefault("LOG_FORMAT", "json"),
		Environment: environment,
		MetricsPort: getIntOrDefault("METRICS_PORT", 8000),

		// Kalshi API
		APIKeyID:       os.Getenv("KALSHI_API_KEY_ID"),
		PrivateKeyPath: os.Getenv("KALSHI_PRIVATE_KEY_PATH"),
		BaseURL:        getEnvOrDefault("KALSHI_API_BASE_URL", baseURL),
		WebsocketURL:   getEnvOrDefault("KALSHI_WS_URL", wsURL),

		// Trading threshold defaults
		MinProfitCents:            getIntOrDefault("MIN_PROFIT_CENTS", 2),
		MinPriceDiffCents:         getIntOrDefault("MIN_PRICE_DIFF_CENTS", 3),
		EquivalentThresholdCents:  getIntOrDefault("EQUIVALENT_THRESHOLD_CENTS", 5),
		FeeRate:                   getFloat64OrDefault("FEE_RATE", 0.007),
		MaxPositionPerMarket:      getIntOrDefault("MAX_POSITION_PER_MARKET", 100),
		MaxExposureCents:          getIntOrDefault("MAX_EXPOSURE_CENTS", 50000),
		MaxExposurePerMarketCents: getIntOrDefault("MAX_EXPOSURE_PER_MARKET_CENTS", 10000),
		MaxConcurrentPositions:    getIntOrDefault("MAX_CONCURRENT_POSITIONS", 5),

		// Strategy defaults
		EnableMultiOutcome:   getBoolOrDefault("ENABLE_MULTI_OUTCOME", true),
		EnableTemporal:       getBoolOrDefault("ENABLE_TEMPORAL", true),
		EnableCorrelated:     getBoolOrDefault("ENABLE_CORRELATED", true),
		CorrelationRulesPath: os.Getenv("CORRELATION_RULES_PATH"),
		WatchedEvents:        getStringSlice("WATCHED_EVENTS"),

		// Circuit breaker defaults
		MaxDailyLossCents:    getIntOrDefault("MAX_DAILY_LOSS_CENTS", 10000),
		MaxConsecutiveLosses: getIntOrDefault("MAX_CONSECUTIVE_LOSSES", 5),
		Cooldown:             time.Duration(getIntOrDefault("COOLDOWN_SECONDS", 300)) * time.Second,
		HalfOpenTestLimit:    getIntOrDefault("HALF_OPEN_TEST_LIMIT", 1),

		// Rate limiting defaults (venue documents 20 read / 10 write per second)
		ReadRateLimit:  getIntOrDefault("READ_RATE_LIMIT", 20),
		WriteRateLimit: getIntOrDefault("WRITE_RATE_LIMIT", 10),

		// Engine defaults
		ScanInterval:            getDurationOrDefault("SCAN_INTERVAL", 1*time.Second),
		SyncInterval:            getDurationOrDefault("SYNC_INTERVAL", 30*time.Second),
		MaxConcurrentExecutions: getIntOrDefault("MAX_CONCURRENT_EXECUTIONS", 3),
		ParallelLegSubmission:   getBoolOrDefault("PARALLEL_LEG_SUBMISSION", true),
		ExecutionMode:           getEnvOrDefault("EXECUTION_MODE", "paper"),

		// WebSocket defaults
		WSDialTimeout:       getDurationOrDefault("WS_DIAL_TIMEOUT", 10*time.Second),
		WSPingInterval:      getDurationOrDefault("WS_PING_INTERVAL", 30*time.Second),
		WSPongTimeout:       getDurationOrDefault("WS_PONG_TIMEOUT", 10*time.Second),
		WSMessageBufferSize: getIntOrDefault("WS_MESSAGE_BUFFER_SIZE", 1000),

		// Alerts
		SlackWebhookURL:   os.Getenv("SLACK_WEBHOOK_URL"),
		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "kalshi"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "kalshi123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "kalshi_arb"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid. Violations are fatal
// at startup.
func (c *Config) Validate() error {
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("ENVIRONMENT must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Environment)
	}

	if c.APIKeyID == "" {
		return fmt.Errorf("KALSHI_API_KEY_ID cannot be empty")
	}

	if c.PrivateKeyPath == "" {
		return fmt.Errorf("KALSHI_PRIVATE_KEY_PATH cannot be empty")
	}
	if _, err := os.Stat(c.PrivateKeyPath); err != nil {
		return fmt.Errorf("private key file not found: %s", c.PrivateKeyPath)
	}

	if c.BaseURL == "" {
		return fmt.Errorf("KALSHI_API_BASE_URL cannot be empty")
	}

	if c.WebsocketURL == "" {
		return fmt.Errorf("KALSHI_WS_URL cannot be empty")
	}

	if c.MinProfitCents < 1 {
		return fmt.Errorf("MIN_PROFIT_CENTS must be >= 1, got %d", c.MinProfitCents)
	}

	if c.EquivalentThresholdCents < 1 {
		return fmt.Errorf("EQUIVALENT_THRESHOLD_CENTS must be >= 1, got %d", c.EquivalentThresholdCents)
	}

	if c.FeeRate <= 0 || c.FeeRate >= 1 {
		return fmt.Errorf("FEE_RATE must be between 0 and 1, got %f", c.FeeRate)
	}

	if c.MaxPositionPerMarket < 1 {
		return fmt.Errorf("MAX_POSITION_PER_MARKET must be >= 1, got %d", c.MaxPositionPerMarket)
	}

	if c.MaxConcurrentPositions < 1 {
		return fmt.Errorf("MAX_CONCURRENT_POSITIONS must be >= 1, got %d", c.MaxConcurrentPositions)
	}

	if c.MaxExposureCents < 100 {
		return fmt.Errorf("MAX_EXPOSURE_CENTS must be >= 100, got %d", c.MaxExposureCents)
	}

	if c.MaxDailyLossCents < 100 {
		return fmt.Errorf("MAX_DAILY_LOSS_CENTS must be >= 100, got %d", c.MaxDailyLossCents)
	}

	if c.MaxConsecutiveLosses < 1 {
		return fmt.Errorf("MAX_CONSECUTIVE_LOSSES must be >= 1, got %d", c.MaxConsecutiveLosses)
	}

	if c.Cooldown < 60*time.Second {
		return fmt.Errorf("COOLDOWN_SECONDS must be >= 60, got %s", c.Cooldown)
	}

	if c.ReadRateLimit < 1 || c.WriteRateLimit < 1 {
		return fmt.Errorf("rate limits must be >= 1, got read=%d write=%d", c.ReadRateLimit, c.WriteRateLimit)
	}

	if c.ExecutionMode != "paper" && c.ExecutionMode != "live" {
		return fmt.Errorf("EXECUTION_MODE must be 'paper' or 'live', got %q", c.ExecutionMode)
	}

	if c.StorageMode != "console" && c.StorageMode != "postgres" {
		return fmt.Errorf("STORAGE_MODE must be 'console' or 'postgres', got %q", c.StorageMode)
	}

	return nil
}

// PostgresDSN assembles the lib/pq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPass, c.PostgresDB, c.PostgresSSL)
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

// getStringSlice parses a comma-separated environment variable. Empty
// entries are dropped.
func getStringSlice(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
