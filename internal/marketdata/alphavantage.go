package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ramonbnuezjr/stock-tracker-agent/pkg/models"
)

const alphaVantageBaseURL = "https://www.alphavantage.co"

// AlphaVantage fetches global quotes from the Alpha Vantage REST API.
// Free tier: 25 calls/day, so it sits late in the fallback order.
type AlphaVantage struct {
	client *resty.Client
	apiKey string
	logger *logrus.Logger
}

func NewAlphaVantage(apiKey string, logger *logrus.Logger) *AlphaVantage {
	client := resty.New()
	client.SetBaseURL(alphaVantageBaseURL)
	client.SetTimeout(10 * time.Second)

	return &AlphaVantage{
		client: client,
		apiKey: apiKey,
		logger: logger,
	}
}

func (a *AlphaVantage) Name() string { return "alpha_vantage" }

type alphaVantageResponse struct {
	GlobalQuote  map[string]string `json:"Global Quote"`
	ErrorMessage string            `json:"Error Message"`
	// Note is how Alpha Vantage signals rate limiting on the free tier
	Note string `json:"Note"`
}

func (a *AlphaVantage) FetchLatestPrice(ctx context.Context, symbol string) (models.Quote, error) {
	if a.apiKey == "" {
		return models.Quote{}, unavailable(a.Name(), "API key not configured")
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function": "GLOBAL_QUOTE",
			"symbol":   symbol,
			"apikey":   a.apiKey,
		}).
		Get("/query")
	if err != nil {
		a.logger.WithError(err).WithField("symbol", symbol).Error("Alpha Vantage request failed")
		return models.Quote{}, unavailableErr(a.Name(), err)
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		return models.Quote{}, rateLimited(a.Name(), "API call frequency limit exceeded")
	}
	if resp.StatusCode() != http.StatusOK {
		return models.Quote{}, unavailable(a.Name(), fmt.Sprintf("HTTP %d", resp.StatusCode()))
	}

	var payload alphaVantageResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return models.Quote{}, unavailableErr(a.Name(), fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if payload.ErrorMessage != "" {
		return models.Quote{}, unavailable(a.Name(), payload.ErrorMessage)
	}
	if payload.Note != "" {
		return models.Quote{}, rateLimited(a.Name(), payload.Note)
	}

	if len(payload.GlobalQuote) == 0 {
		return models.Quote{}, unavailable(a.Name(), fmt.Sprintf("no data for %s", symbol))
	}

	priceStr := payload.GlobalQuote["05. price"]
	if priceStr == "" {
		return models.Quote{}, unavailable(a.Name(), fmt.Sprintf("no price data for %s", symbol))
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return models.Quote{}, unavailableErr(a.Name(), fmt.Errorf("failed to parse price %q: %w", priceStr, err))
	}
	if !price.IsPositive() {
		return models.Quote{}, unavailable(a.Name(), fmt.Sprintf("non-positive price for %s", symbol))
	}

	a.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"price":  price.String(),
	}).Debug("Alpha Vantage quote")

	return models.NewQuote(symbol, price, time.Now().UTC(), a.Name())
}
