package tracker

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ramonbnuezjr/stock-tracker-agent/pkg/models"
)

func pricePoint(symbol, price string, ts time.Time) models.PricePoint {
	return models.PricePoint{
		Symbol:    symbol,
		Price:     decimal.RequireFromString(price),
		Currency:  models.DefaultCurrency,
		Timestamp: ts,
	}
}

func TestCalculateChange(t *testing.T) {
	t.Parallel()

	prevTime := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	curTime := prevTime.Add(time.Hour)

	tests := []struct {
		name            string
		previous        string
		current         string
		threshold       string
		expectedAmount  string
		expectedPercent string
		expectedBreach  bool
		direction       string
	}{
		{
			name:            "boundary move is inclusive breach",
			previous:        "100.00",
			current:         "101.50",
			threshold:       "1.5",
			expectedAmount:  "1.5",
			expectedPercent: "1.5",
			expectedBreach:  true,
			direction:       "up",
		},
		{
			name:            "sub-threshold move",
			previous:        "100.00",
			current:         "100.50",
			threshold:       "1.5",
			expectedAmount:  "0.5",
			expectedPercent: "0.5",
			expectedBreach:  false,
			direction:       "up",
		},
		{
			name:            "downward breach",
			previous:        "200.00",
			current:         "190.00",
			threshold:       "2",
			expectedAmount:  "-10",
			expectedPercent: "-5",
			expectedBreach:  true,
			direction:       "down",
		},
		{
			name:            "zero change never breaches",
			previous:        "50.00",
			current:         "50.00",
			threshold:       "0.0001",
			expectedAmount:  "0",
			expectedPercent: "0",
			expectedBreach:  false,
			direction:       "unchanged",
		},
		{
			name:            "exact decimal percent without float drift",
			previous:        "100.00",
			current:         "99.99",
			threshold:       "0.5",
			expectedAmount:  "-0.01",
			expectedPercent: "-0.01",
			expectedBreach:  false,
			direction:       "down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change := CalculateChange(
				"AAPL",
				pricePoint("AAPL", tt.previous, prevTime),
				pricePoint("AAPL", tt.current, curTime),
				decimal.RequireFromString(tt.threshold),
			)

			assert.Equal(t, "AAPL", change.Symbol)
			assert.True(t, change.ChangeAmount.Equal(decimal.RequireFromString(tt.expectedAmount)),
				"amount: got %s", change.ChangeAmount)
			assert.True(t, change.ChangePercent.Equal(decimal.RequireFromString(tt.expectedPercent)),
				"percent: got %s", change.ChangePercent)
			assert.Equal(t, tt.expectedBreach, change.ThresholdExceeded)
			assert.Equal(t, tt.direction, change.Direction())
			assert.Equal(t, prevTime, change.PreviousTimestamp)
			assert.Equal(t, curTime, change.CurrentTimestamp)
		})
	}
}

func TestCalculateChangeNoCumulativeDrift(t *testing.T) {
	t.Parallel()

	// A price walking up by 0.10 a hundred times and back down again must
	// land on exactly zero percent change against its starting point.
	price := decimal.RequireFromString("100.00")
	step := decimal.RequireFromString("0.10")

	current := price
	for i := 0; i < 100; i++ {
		current = current.Add(step)
	}
	for i := 0; i < 100; i++ {
		current = current.Sub(step)
	}

	change := CalculateChange(
		"MSFT",
		pricePoint("MSFT", price.String(), time.Now()),
		pricePoint("MSFT", current.String(), time.Now()),
		decimal.RequireFromString("0.01"),
	)

	assert.True(t, change.ChangePercent.IsZero(), "got %s", change.ChangePercent)
	assert.False(t, change.ThresholdExceeded)
}
