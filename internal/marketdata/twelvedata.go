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

const twelveDataBaseURL = "https://api.twelvedata.com"

// TwelveData fetches real-time prices from the Twelve Data REST API.
// Free tier: 800 calls/day.
type TwelveData struct {
	client *resty.Client
	apiKey string
	logger *logrus.Logger
}

func NewTwelveData(apiKey string, logger *logrus.Logger) *TwelveData {
	client := resty.New()
	client.SetBaseURL(twelveDataBaseURL)
	client.SetTimeout(10 * time.Second)

	return &TwelveData{
		client: client,
		apiKey: apiKey,
		logger: logger,
	}
}

func (t *TwelveData) Name() string { return "twelve_data" }

type twelveDataPrice struct {
	Price   string `json:"price"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (t *TwelveData) FetchLatestPrice(ctx context.Context, symbol string) (models.Quote, error) {
	if t.apiKey == "" {
		return models.Quote{}, unavailable(t.Name(), "API key not configured")
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"apikey": t.apiKey,
		}).
		Get("/price")
	if err != nil {
		t.logger.WithError(err).WithField("symbol", symbol).Error("Twelve Data request failed")
		return models.Quote{}, unavailableErr(t.Name(), err)
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		return models.Quote{}, rateLimited(t.Name(), "API call frequency limit exceeded")
	}
	if resp.StatusCode() != http.StatusOK {
		return models.Quote{}, unavailable(t.Name(), fmt.Sprintf("HTTP %d", resp.StatusCode()))
	}

	var price twelveDataPrice
	if err := json.Unmarshal(resp.Body(), &price); err != nil {
		return models.Quote{}, unavailableErr(t.Name(), fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if price.Status == "error" {
		msg := price.Message
		if msg == "" {
			msg = "unknown error"
		}
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "limit") || strings.Contains(lower, "quota") {
			return models.Quote{}, rateLimited(t.Name(), msg)
		}
		return models.Quote{}, unavailable(t.Name(), msg)
	}

	if price.Price == "" {
		return models.Quote{}, unavailable(t.Name(), fmt.Sprintf("no price data for %s", symbol))
	}

	value, err := decimal.NewFromString(price.Price)
	if err != nil {
		return models.Quote{}, unavailableErr(t.Name(), fmt.Errorf("failed to parse price %q: %w", price.Price, err))
	}
	if !value.IsPositive() {
		return models.Quote{}, unavailable(t.Name(), fmt.Sprintf("non-positive price for %s", symbol))
	}

	t.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"price":  value.String(),
	}).Debug("Twelve Data quote")

	return models.NewQuote(symbol, value, time.Now().UTC(), t.Name())
}
