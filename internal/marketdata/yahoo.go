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

const yahooBaseURL = "https://query1.finance.yahoo.com"

// Yahoo fetches quotes from the unauthenticated Yahoo Finance chart API.
// It needs no credentials, which makes it the always-available last
// resort in the fallback order. When the real-time market price is absent
// it falls back to the last close of a one-day window.
type Yahoo struct {
	client *resty.Client
	logger *logrus.Logger
}

func NewYahoo(logger *logrus.Logger) *Yahoo {
	client := resty.New()
	client.SetBaseURL(yahooBaseURL)
	client.SetTimeout(10 * time.Second)
	client.SetHeader("User-Agent", "stock-tracker-agent/1.0")

	return &Yahoo{
		client: client,
		logger: logger,
	}
}

func (y *Yahoo) Name() string { return "yahoo_finance" }

type yahooQuoteIndicator struct {
	Close []*json.Number `json:"close"`
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice json.Number `json:"regularMarketPrice"`
			} `json:"meta"`
			Indicators struct {
				Quote []yahooQuoteIndicator `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *Yahoo) FetchLatestPrice(ctx context.Context, symbol string) (models.Quote, error) {
	resp, err := y.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"range":    "1d",
			"interval": "1d",
		}).
		Get("/v8/finance/chart/" + symbol)
	if err != nil {
		y.logger.WithError(err).WithField("symbol", symbol).Error("Yahoo Finance request failed")
		return models.Quote{}, unavailableErr(y.Name(), err)
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		return models.Quote{}, rateLimited(y.Name(), "too many requests")
	}
	if resp.StatusCode() != http.StatusOK {
		return models.Quote{}, unavailable(y.Name(), fmt.Sprintf("HTTP %d", resp.StatusCode()))
	}

	var payload yahooChartResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return models.Quote{}, unavailableErr(y.Name(), fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if payload.Chart.Error != nil {
		desc := payload.Chart.Error.Description
		if strings.Contains(desc, "429") || strings.Contains(desc, "Too Many Requests") {
			return models.Quote{}, rateLimited(y.Name(), desc)
		}
		return models.Quote{}, unavailable(y.Name(), desc)
	}

	if len(payload.Chart.Result) == 0 {
		return models.Quote{}, unavailable(y.Name(), fmt.Sprintf("no price data available for %s", symbol))
	}

	result := payload.Chart.Result[0]

	raw := result.Meta.RegularMarketPrice.String()
	if raw == "" {
		// Secondary lookup: last non-null close of the one-day window
		raw = lastClose(result.Indicators.Quote)
	}
	if raw == "" {
		return models.Quote{}, unavailable(y.Name(), fmt.Sprintf("no price data available for %s", symbol))
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return models.Quote{}, unavailableErr(y.Name(), fmt.Errorf("failed to parse price %q: %w", raw, err))
	}
	if !price.IsPositive() {
		return models.Quote{}, unavailable(y.Name(), fmt.Sprintf("non-positive price for %s", symbol))
	}

	y.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"price":  price.String(),
	}).Debug("Yahoo Finance quote")

	return models.NewQuote(symbol, price, time.Now().UTC(), y.Name())
}

func lastClose(quotes []yahooQuoteIndicator) string {
	for _, q := range quotes {
		for i := len(q.Close) - 1; i >= 0; i-- {
			if q.Close[i] != nil {
				return q.Close[i].String()
			}
		}
	}
	return ""
}
