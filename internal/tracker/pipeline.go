package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ramonbnuezjr/stock-tracker-agent/internal/marketdata"
	"github.com/ramonbnuezjr/stock-tracker-agent/pkg/models"
)

// MarketData is the slice of the orchestrator the pipeline needs.
type MarketData interface {
	GetLatestPrice(ctx context.Context, symbol string) (models.Quote, error)
}

// PriceStore is the slice of the history repository the pipeline needs.
type PriceStore interface {
	SavePrice(ctx context.Context, point models.PricePoint) (int64, error)
	LatestPrice(ctx context.Context, symbol string) (*models.PricePoint, error)
}

// Pipeline drives the fetch-compare-persist cycle across a symbol set and
// yields threshold breaches for downstream alerting.
type Pipeline struct {
	market    MarketData
	store     PriceStore
	threshold decimal.Decimal
	logger    *logrus.Logger
}

func NewPipeline(market MarketData, store PriceStore, threshold decimal.Decimal, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		market:    market,
		store:     store,
		threshold: threshold,
		logger:    logger,
	}
}

// FetchCurrentPrices fetches current prices for all symbols. Symbols whose
// fetch fails with an aggregate provider error are skipped with a warning;
// one bad symbol never aborts the batch.
func (p *Pipeline) FetchCurrentPrices(ctx context.Context, symbols []string) (map[string]models.PricePoint, error) {
	p.logger.WithField("symbol_count", len(symbols)).Info("Fetching current prices")

	results := make(map[string]models.PricePoint, len(symbols))

	for _, symbol := range symbols {
		quote, err := p.market.GetLatestPrice(ctx, symbol)
		if err != nil {
			var unavailable *marketdata.UnavailableError
			if errors.As(err, &unavailable) {
				p.logger.WithError(err).WithField("symbol", symbol).Warn("Skipping symbol")
				continue
			}
			return nil, fmt.Errorf("failed to fetch price for %s: %w", symbol, err)
		}

		results[quote.Symbol] = models.PricePointFromQuote(quote)
	}

	return results, nil
}

// PriceChanges fetches prices, persists each observation and computes the
// change against the previously stored one. The fresh observation is saved
// before the change is evaluated so a mid-run crash never loses it. The
// first observation for a symbol produces no change.
func (p *Pipeline) PriceChanges(ctx context.Context, symbols []string) ([]models.PriceChange, error) {
	current, err := p.FetchCurrentPrices(ctx, symbols)
	if err != nil {
		return nil, err
	}

	var changes []models.PriceChange

	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))

		point, ok := current[symbol]
		if !ok {
			p.logger.WithField("symbol", symbol).Warn("No current price, skipping")
			continue
		}

		previous, err := p.store.LatestPrice(ctx, symbol)
		if err != nil {
			return nil, err
		}

		if _, err := p.store.SavePrice(ctx, point); err != nil {
			return nil, err
		}

		if previous == nil {
			p.logger.WithFields(logrus.Fields{
				"symbol": symbol,
				"price":  point.Price.String(),
			}).Info("First observation, storing without comparison")
			continue
		}

		change := CalculateChange(symbol, *previous, point, p.threshold)
		changes = append(changes, change)

		p.logger.WithFields(logrus.Fields{
			"symbol":         symbol,
			"previous_price": previous.Price.String(),
			"current_price":  point.Price.String(),
			"change_percent": change.ChangePercent.StringFixed(2),
			"direction":      change.Direction(),
		}).Info("Price change computed")
	}

	return changes, nil
}

// ThresholdBreaches returns only the changes whose absolute percentage
// meets or exceeds the configured threshold.
func (p *Pipeline) ThresholdBreaches(ctx context.Context, symbols []string) ([]models.PriceChange, error) {
	changes, err := p.PriceChanges(ctx, symbols)
	if err != nil {
		return nil, err
	}

	var breaches []models.PriceChange
	for _, change := range changes {
		if change.ThresholdExceeded {
			breaches = append(breaches, change)
		}
	}

	if len(breaches) > 0 {
		names := make([]string, 0, len(breaches))
		for _, b := range breaches {
			names = append(names, b.Symbol)
		}
		p.logger.WithFields(logrus.Fields{
			"breach_count": len(breaches),
			"symbols":      strings.Join(names, ","),
		}).Info("Threshold breaches detected")
	} else {
		p.logger.Info("No threshold breaches detected")
	}

	return breaches, nil
}
