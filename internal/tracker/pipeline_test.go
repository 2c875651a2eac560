package tracker

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ramonbnuezjr/stock-tracker-agent/internal/marketdata"
	"github.com/ramonbnuezjr/stock-tracker-agent/pkg/models"
)

// MockMarketData is a mock type for the MarketData interface
type MockMarketData struct {
	mock.Mock
}

func (m *MockMarketData) GetLatestPrice(ctx context.Context, symbol string) (models.Quote, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(models.Quote), args.Error(1)
}

// MockPriceStore is a mock type for the PriceStore interface
type MockPriceStore struct {
	mock.Mock
}

func (m *MockPriceStore) SavePrice(ctx context.Context, point models.PricePoint) (int64, error) {
	args := m.Called(ctx, point)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPriceStore) LatestPrice(ctx context.Context, symbol string) (*models.PricePoint, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PricePoint), args.Error(1)
}

// Helper to create a test logger
func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func quoteFor(t *testing.T, symbol, price string) models.Quote {
	t.Helper()
	quote, err := models.NewQuote(symbol, decimal.RequireFromString(price), time.Now().UTC(), "finnhub")
	require.NoError(t, err)
	return quote
}

func TestThresholdBreachesFiltersBelowThreshold(t *testing.T) {
	t.Parallel()

	market := new(MockMarketData)
	store := new(MockPriceStore)
	pipeline := NewPipeline(market, store, decimal.RequireFromString("1.5"), newTestLogger())

	prevTime := time.Now().UTC().Add(-time.Hour)

	// AAPL moved exactly 1.5% (boundary breach), MSFT only 0.5%
	market.On("GetLatestPrice", mock.Anything, "AAPL").Return(quoteFor(t, "AAPL", "101.50"), nil)
	market.On("GetLatestPrice", mock.Anything, "MSFT").Return(quoteFor(t, "MSFT", "100.50"), nil)

	aaplPrev := pricePoint("AAPL", "100.00", prevTime)
	msftPrev := pricePoint("MSFT", "100.00", prevTime)
	store.On("LatestPrice", mock.Anything, "AAPL").Return(&aaplPrev, nil)
	store.On("LatestPrice", mock.Anything, "MSFT").Return(&msftPrev, nil)
	store.On("SavePrice", mock.Anything, mock.Anything).Return(int64(1), nil)

	breaches, err := pipeline.ThresholdBreaches(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)

	require.Len(t, breaches, 1)
	assert.Equal(t, "AAPL", breaches[0].Symbol)
	assert.True(t, breaches[0].ThresholdExceeded)

	// Both observations are persisted regardless of breach status
	store.AssertNumberOfCalls(t, "SavePrice", 2)
}

func TestFirstObservationProducesNoChange(t *testing.T) {
	t.Parallel()

	market := new(MockMarketData)
	store := new(MockPriceStore)
	pipeline := NewPipeline(market, store, decimal.RequireFromString("1.5"), newTestLogger())

	market.On("GetLatestPrice", mock.Anything, "NVDA").Return(quoteFor(t, "NVDA", "905.10"), nil)
	store.On("LatestPrice", mock.Anything, "NVDA").Return(nil, nil)
	store.On("SavePrice", mock.Anything, mock.Anything).Return(int64(1), nil)

	breaches, err := pipeline.ThresholdBreaches(context.Background(), []string{"NVDA"})
	require.NoError(t, err)

	assert.Empty(t, breaches, "first observation has no prior to compare against")
	store.AssertCalled(t, "SavePrice", mock.Anything, mock.MatchedBy(func(p models.PricePoint) bool {
		return p.Symbol == "NVDA"
	}))
}

func TestFailedSymbolIsSkippedNotFatal(t *testing.T) {
	t.Parallel()

	market := new(MockMarketData)
	store := new(MockPriceStore)
	pipeline := NewPipeline(market, store, decimal.RequireFromString("1.0"), newTestLogger())

	prevTime := time.Now().UTC().Add(-time.Hour)

	market.On("GetLatestPrice", mock.Anything, "BADSYM").Return(models.Quote{},
		&marketdata.UnavailableError{Symbol: "BADSYM", LastErr: fmt.Errorf("HTTP 500")})
	market.On("GetLatestPrice", mock.Anything, "AAPL").Return(quoteFor(t, "AAPL", "110.00"), nil)

	aaplPrev := pricePoint("AAPL", "100.00", prevTime)
	store.On("LatestPrice", mock.Anything, "AAPL").Return(&aaplPrev, nil)
	store.On("SavePrice", mock.Anything, mock.Anything).Return(int64(1), nil)

	breaches, err := pipeline.ThresholdBreaches(context.Background(), []string{"BADSYM", "AAPL"})
	require.NoError(t, err, "one failed symbol must not abort the batch")

	require.Len(t, breaches, 1)
	assert.Equal(t, "AAPL", breaches[0].Symbol)
	store.AssertNotCalled(t, "LatestPrice", mock.Anything, "BADSYM")
}

func TestStorageErrorIsFatal(t *testing.T) {
	t.Parallel()

	market := new(MockMarketData)
	store := new(MockPriceStore)
	pipeline := NewPipeline(market, store, decimal.RequireFromString("1.0"), newTestLogger())

	market.On("GetLatestPrice", mock.Anything, "AAPL").Return(quoteFor(t, "AAPL", "110.00"), nil)
	store.On("LatestPrice", mock.Anything, "AAPL").Return(nil, nil)
	store.On("SavePrice", mock.Anything, mock.Anything).Return(int64(0), fmt.Errorf("connection refused"))

	_, err := pipeline.PriceChanges(context.Background(), []string{"AAPL"})
	assert.Error(t, err)
}

func TestFetchCurrentPricesNormalizesSymbols(t *testing.T) {
	t.Parallel()

	market := new(MockMarketData)
	store := new(MockPriceStore)
	pipeline := NewPipeline(market, store, decimal.RequireFromString("1.0"), newTestLogger())

	// Orchestrator normalizes internally; the pipeline keys results by the
	// quote's canonical symbol so mixed-case input still lines up.
	market.On("GetLatestPrice", mock.Anything, "aapl").Return(quoteFor(t, "AAPL", "178.25"), nil)

	prices, err := pipeline.FetchCurrentPrices(context.Background(), []string{"aapl"})
	require.NoError(t, err)

	point, ok := prices["AAPL"]
	require.True(t, ok)
	assert.True(t, point.Price.Equal(decimal.RequireFromString("178.25")))
}
