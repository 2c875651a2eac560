package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "USD"

// Quote is a normalized price observation from one market data provider.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
	Provider  string          `json:"provider"`
}

// NewQuote validates and builds a Quote. The symbol is normalized to
// uppercase and the price must be strictly positive.
func NewQuote(symbol string, price decimal.Decimal, timestamp time.Time, provider string) (Quote, error) {
	normalized, err := NormalizeSymbol(symbol)
	if err != nil {
		return Quote{}, err
	}

	if !price.IsPositive() {
		return Quote{}, fmt.Errorf("price for %s must be positive, got %s", normalized, price)
	}

	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return Quote{}, fmt.Errorf("provider name cannot be empty")
	}

	return Quote{
		Symbol:    normalized,
		Price:     price,
		Timestamp: timestamp,
		Provider:  provider,
	}, nil
}

// PricePoint is the persisted form of a price observation.
type PricePoint struct {
	ID        int64           `db:"id"`
	Symbol    string          `db:"symbol"`
	Price     decimal.Decimal `db:"price"`
	Currency  string          `db:"currency"`
	Timestamp time.Time       `db:"timestamp"`
	CreatedAt time.Time       `db:"created_at"`
}

// PricePointFromQuote converts a fetched Quote into its storable form.
// Providers do not report currencies, so the default is assumed.
func PricePointFromQuote(q Quote) PricePoint {
	return PricePoint{
		Symbol:    q.Symbol,
		Price:     q.Price,
		Currency:  DefaultCurrency,
		Timestamp: q.Timestamp,
	}
}

// PriceChange is the derived movement between two observations of a symbol.
type PriceChange struct {
	Symbol            string          `json:"symbol"`
	PreviousPrice     decimal.Decimal `json:"previous_price"`
	CurrentPrice      decimal.Decimal `json:"current_price"`
	ChangeAmount      decimal.Decimal `json:"change_amount"`
	ChangePercent     decimal.Decimal `json:"change_percent"`
	ThresholdExceeded bool            `json:"threshold_exceeded"`
	PreviousTimestamp time.Time       `json:"previous_timestamp"`
	CurrentTimestamp  time.Time       `json:"current_timestamp"`
}

// Direction reports whether the change was up, down or unchanged.
func (c PriceChange) Direction() string {
	switch c.ChangePercent.Sign() {
	case 1:
		return "up"
	case -1:
		return "down"
	default:
		return "unchanged"
	}
}

// Alert is a threshold breach enriched for delivery.
type Alert struct {
	Symbol        string          `json:"symbol"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	ChangeAmount  decimal.Decimal `json:"change_amount"`
	PreviousPrice decimal.Decimal `json:"previous_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	Explanation   string          `json:"explanation,omitempty"`
	Headlines     []string        `json:"headlines,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// AlertFromChange builds an Alert for a breached PriceChange.
func AlertFromChange(change PriceChange, explanation string, headlines []string) Alert {
	return Alert{
		Symbol:        change.Symbol,
		ChangePercent: change.ChangePercent,
		ChangeAmount:  change.ChangeAmount,
		PreviousPrice: change.PreviousPrice,
		CurrentPrice:  change.CurrentPrice,
		Explanation:   explanation,
		Headlines:     headlines,
		Timestamp:     change.CurrentTimestamp,
	}
}
