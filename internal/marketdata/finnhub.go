package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ramonbnuezjr/stock-tracker-agent/pkg/models"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// Finnhub fetches real-time quotes from the Finnhub REST API.
// Free tier: 60 calls/min.
type Finnhub struct {
	client *resty.Client
	apiKey string
	logger *logrus.Logger
}

func NewFinnhub(apiKey string, logger *logrus.Logger) *Finnhub {
	client := resty.New()
	client.SetBaseURL(finnhubBaseURL)
	client.SetTimeout(10 * time.Second)

	return &Finnhub{
		client: client,
		apiKey: apiKey,
		logger: logger,
	}
}

func (f *Finnhub) Name() string { return "finnhub" }

type finnhubQuote struct {
	Current json.Number `json:"c"`
	Error   string      `json:"error"`
}

func (f *Finnhub) FetchLatestPrice(ctx context.Context, symbol string) (models.Quote, error) {
	if f.apiKey == "" {
		return models.Quote{}, unavailable(f.Name(), "API key not configured")
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"token":  f.apiKey,
		}).
		Get("/quote")
	if err != nil {
		f.logger.WithError(err).WithField("symbol", symbol).Error("Finnhub request failed")
		return models.Quote{}, unavailableErr(f.Name(), err)
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		return models.Quote{}, rateLimited(f.Name(), "API call frequency limit exceeded")
	}
	if resp.StatusCode() != http.StatusOK {
		return models.Quote{}, unavailable(f.Name(), fmt.Sprintf("HTTP %d", resp.StatusCode()))
	}

	var quote finnhubQuote
	if err := json.Unmarshal(resp.Body(), &quote); err != nil {
		return models.Quote{}, unavailableErr(f.Name(), fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if quote.Error != "" {
		if strings.Contains(strings.ToLower(quote.Error), "limit") {
			return models.Quote{}, rateLimited(f.Name(), quote.Error)
		}
		return models.Quote{}, unavailable(f.Name(), quote.Error)
	}

	// Finnhub returns 'c' for the current price; 0 means no data
	if quote.Current.String() == "" {
		return models.Quote{}, unavailable(f.Name(), fmt.Sprintf("no price data for %s", symbol))
	}

	price, err := decimal.NewFromString(quote.Current.String())
	if err != nil {
		return models.Quote{}, unavailableErr(f.Name(), fmt.Errorf("failed to parse price %q: %w", quote.Current, err))
	}
	if !price.IsPositive() {
		return models.Quote{}, unavailable(f.Name(), fmt.Sprintf("non-positive price for %s", symbol))
	}

	f.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"price":  price.String(),
	}).Debug("Finnhub quote")

	return models.NewQuote(symbol, price, time.Now().UTC(), f.Name())
}
