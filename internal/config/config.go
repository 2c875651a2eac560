package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ramonbnuezjr/stock-tracker-agent/internal/database"
	"github.com/ramonbnuezjr/stock-tracker-agent/pkg/models"
)

type ProviderKeys struct {
	Finnhub      string
	TwelveData   string
	AlphaVantage string
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	To       string
}

type Config struct {
	Database            database.Config
	Symbols             []string
	PriceThreshold      decimal.Decimal
	CacheTTL            time.Duration
	Providers           ProviderKeys
	NotificationChannel string
	SMTP                SMTPConfig
	CheckInterval       time.Duration
}

// Load reads configuration from environment variables. Symbols and the
// threshold are validated here so the rest of the process can treat them
// as trusted inputs.
func Load() (*Config, error) {
	symbols, err := parseSymbols(getEnv("STOCK_SYMBOLS", "AAPL,NVDA,MSFT"))
	if err != nil {
		return nil, err
	}

	threshold, err := decimal.NewFromString(getEnv("PRICE_THRESHOLD", "1.5"))
	if err != nil {
		return nil, fmt.Errorf("invalid PRICE_THRESHOLD: %w", err)
	}
	if !threshold.IsPositive() {
		return nil, fmt.Errorf("PRICE_THRESHOLD must be positive, got %s", threshold)
	}

	return &Config{
		Database: database.Config{
			DbUri: getEnv("DB_URI", "postgres://localhost/stock_tracker?sslmode=disable"),
		},
		Symbols:        symbols,
		PriceThreshold: threshold,
		CacheTTL:       time.Duration(getEnvInt("CACHE_TTL_SECONDS", 60)) * time.Second,
		Providers: ProviderKeys{
			Finnhub:      getEnv("FINNHUB_API_KEY", ""),
			TwelveData:   getEnv("TWELVE_DATA_API_KEY", ""),
			AlphaVantage: getEnv("ALPHA_VANTAGE_API_KEY", ""),
		},
		NotificationChannel: getEnv("NOTIFICATION_CHANNEL", "console"),
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvInt("SMTP_PORT", 587),
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			To:       getEnv("NOTIFY_EMAIL", ""),
		},
		CheckInterval: time.Duration(getEnvInt("CHECK_INTERVAL_SECONDS", 0)) * time.Second,
	}, nil
}

func parseSymbols(raw string) ([]string, error) {
	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))

	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		symbol, err := models.NormalizeSymbol(part)
		if err != nil {
			return nil, fmt.Errorf("invalid STOCK_SYMBOLS entry: %w", err)
		}
		symbols = append(symbols, symbol)
	}

	if len(symbols) == 0 {
		return nil, fmt.Errorf("STOCK_SYMBOLS must contain at least one symbol")
	}

	return symbols, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
