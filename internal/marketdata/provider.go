// Package marketdata fetches daily bars, intraday bars, volume averages and
// insider filings for a symbol.
package marketdata

import (
	"context"
	"errors"
	"fmt"

	"whale-tracker/internal/domain"
)

// ErrNoData is returned when the provider answered but had nothing for the symbol.
var ErrNoData = errors.New("no data")

// Provider is the market data source used by the baseline, watch and insider components.
type Provider interface {
	// DailyBars returns up to n most recent daily bars, ordered by date ASC.
	DailyBars(ctx context.Context, symbol string, n int) ([]domain.DailyBar, error)

	// IntradayBars returns recent 5-minute bars, ordered by time ASC.
	IntradayBars(ctx context.Context, symbol string) ([]domain.IntradayBar, error)

	// AverageVolume returns the provider-computed average daily volume.
	AverageVolume(ctx context.Context, symbol string) (float64, error)

	// InsiderTrades returns up to limit most recent insider filings.
	InsiderTrades(ctx context.Context, symbol string, limit int) ([]domain.InsiderFiling, error)
}

// APIError represents a non-success answer from the market data API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("market data API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}
