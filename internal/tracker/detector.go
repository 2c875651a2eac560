package tracker

import (
	"github.com/shopspring/decimal"

	"github.com/ramonbnuezjr/stock-tracker-agent/pkg/models"
)

var hundred = decimal.NewFromInt(100)

// CalculateChange computes the signed movement between two observations
// of a symbol. All arithmetic is decimal so repeated small moves never
// accumulate binary rounding error. The threshold comparison is
// inclusive: a move exactly equal to the threshold counts as a breach.
func CalculateChange(symbol string, previous, current models.PricePoint, threshold decimal.Decimal) models.PriceChange {
	amount := current.Price.Sub(previous.Price)
	percent := amount.Div(previous.Price).Mul(hundred)

	return models.PriceChange{
		Symbol:            symbol,
		PreviousPrice:     previous.Price,
		CurrentPrice:      current.Price,
		ChangeAmount:      amount,
		ChangePercent:     percent,
		ThresholdExceeded: percent.Abs().GreaterThanOrEqual(threshold),
		PreviousTimestamp: previous.Timestamp,
		CurrentTimestamp:  current.Timestamp,
	}
}
