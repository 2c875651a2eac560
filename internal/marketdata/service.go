package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ramonbnuezjr/stock-tracker-agent/pkg/models"
)

const DefaultCacheTTL = 60 * time.Second

// Service orchestrates an ordered list of providers with a short-lived
// quote cache. Providers are tried strictly in list order and the first
// success wins; priority is a deployment decision made by the caller.
type Service struct {
	providers []Provider
	cache     *quoteCache
	logger    *logrus.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the cache clock, used by tests to control TTL expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.cache.now = now
	}
}

func NewService(providers []Provider, cacheTTL time.Duration, logger *logrus.Logger, opts ...Option) *Service {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}

	s := &Service{
		providers: providers,
		cache:     newQuoteCache(cacheTTL, time.Now),
		logger:    logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// GetLatestPrice returns the freshest quote for a symbol, serving from
// cache within the TTL and otherwise falling back across providers in
// order. When every provider fails it returns an *UnavailableError that
// embeds the last underlying error.
func (s *Service) GetLatestPrice(ctx context.Context, symbol string) (models.Quote, error) {
	normalized, err := models.NormalizeSymbol(symbol)
	if err != nil {
		return models.Quote{}, err
	}

	if quote, ok := s.cache.get(normalized); ok {
		s.logger.WithFields(logrus.Fields{
			"symbol":   normalized,
			"provider": quote.Provider,
		}).Debug("Cache hit")
		return quote, nil
	}

	var lastErr error

	for _, provider := range s.providers {
		s.logger.WithFields(logrus.Fields{
			"symbol":   normalized,
			"provider": provider.Name(),
		}).Debug("Trying provider")

		quote, err := provider.FetchLatestPrice(ctx, normalized)
		if err != nil {
			fields := logrus.Fields{
				"symbol":   normalized,
				"provider": provider.Name(),
			}
			var provErr *ProviderError
			if errors.As(err, &provErr) {
				fields["kind"] = string(provErr.Kind)
			}
			s.logger.WithError(err).WithFields(fields).Warn("Provider failed, trying next")
			lastErr = err
			continue
		}

		s.cache.put(quote)

		s.logger.WithFields(logrus.Fields{
			"symbol":   normalized,
			"provider": provider.Name(),
			"price":    quote.Price.String(),
		}).Info("Price fetched")
		return quote, nil
	}

	s.logger.WithError(lastErr).WithField("symbol", normalized).Error("All providers failed")
	return models.Quote{}, &UnavailableError{Symbol: normalized, LastErr: lastErr}
}

// ClearCache drops all cached quotes.
func (s *Service) ClearCache() {
	s.cache.clear()
	s.logger.Debug("Price cache cleared")
}
