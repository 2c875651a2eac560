package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newYahooAgainst(t *testing.T, handler http.HandlerFunc) *Yahoo {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider := NewYahoo(newTestLogger())
	provider.client.SetBaseURL(server.URL)
	return provider
}

func TestYahooFetchLatestPriceFromMeta(t *testing.T) {
	t.Parallel()

	provider := newYahooAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		w.Write([]byte(`{
			"chart": {
				"result": [{
					"meta": {"regularMarketPrice": 178.25},
					"indicators": {"quote": [{"close": [176.1, 177.3]}]}
				}],
				"error": null
			}
		}`))
	})

	quote, err := provider.FetchLatestPrice(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "yahoo_finance", quote.Provider)
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("178.25")))
}

func TestYahooFallsBackToLastClose(t *testing.T) {
	t.Parallel()

	// No real-time field: the last non-null close of the 1d window wins
	provider := newYahooAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"chart": {
				"result": [{
					"meta": {},
					"indicators": {"quote": [{"close": [176.1, 177.3, null]}]}
				}],
				"error": null
			}
		}`))
	})

	quote, err := provider.FetchLatestPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("177.3")))
}

func TestYahooClassifiesFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		status       int
		body         string
		expectedKind FailureKind
	}{
		{
			name:         "HTTP 429 is rate limited",
			status:       http.StatusTooManyRequests,
			body:         `{}`,
			expectedKind: KindRateLimited,
		},
		{
			name:         "rate limit description is rate limited",
			status:       http.StatusOK,
			body:         `{"chart": {"result": null, "error": {"code": "Unauthorized", "description": "Too Many Requests"}}}`,
			expectedKind: KindRateLimited,
		},
		{
			name:         "chart error is unavailable",
			status:       http.StatusOK,
			body:         `{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found, symbol may be delisted"}}}`,
			expectedKind: KindUnavailable,
		},
		{
			name:         "empty result is unavailable",
			status:       http.StatusOK,
			body:         `{"chart": {"result": [], "error": null}}`,
			expectedKind: KindUnavailable,
		},
		{
			name:         "all-null closes without meta price is unavailable",
			status:       http.StatusOK,
			body:         `{"chart": {"result": [{"meta": {}, "indicators": {"quote": [{"close": [null, null]}]}}], "error": null}}`,
			expectedKind: KindUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newYahooAgainst(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := provider.FetchLatestPrice(context.Background(), "AAPL")
			require.Error(t, err)

			var provErr *ProviderError
			require.True(t, errors.As(err, &provErr), "error must be a *ProviderError, got %T", err)
			assert.Equal(t, tt.expectedKind, provErr.Kind)
		})
	}
}
