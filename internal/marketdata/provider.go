package marketdata

import (
	"context"
	"fmt"

	"github.com/ramonbnuezjr/stock-tracker-agent/pkg/models"
)

// Provider fetches a single normalized quote for one symbol from an
// external market data source. Implementations classify every failure as
// either rate-limited or unavailable; raw transport errors never escape
// unwrapped.
type Provider interface {
	Name() string
	FetchLatestPrice(ctx context.Context, symbol string) (models.Quote, error)
}

type FailureKind string

const (
	KindRateLimited FailureKind = "rate_limited"
	KindUnavailable FailureKind = "unavailable"
)

// ProviderError tags a single provider failure with its classification.
// The orchestrator only uses the tag for logging; both kinds trigger
// fallback to the next provider.
type ProviderError struct {
	Provider string
	Kind     FailureKind
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("provider %s %s", e.Provider, e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func rateLimited(provider, message string) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindRateLimited, Message: message}
}

func unavailable(provider, message string) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindUnavailable, Message: message}
}

func unavailableErr(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindUnavailable, Err: err}
}

// UnavailableError is raised when every configured provider failed for a
// symbol. It carries the last underlying error for diagnostics and is the
// only error surfaced past the orchestrator boundary.
type UnavailableError struct {
	Symbol  string
	LastErr error
}

func (e *UnavailableError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("market data unavailable for %s: %s", e.Symbol, e.LastErr)
	}
	return fmt.Sprintf("market data unavailable for %s", e.Symbol)
}

func (e *UnavailableError) Unwrap() error {
	return e.LastErr
}
