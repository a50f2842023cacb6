// Package baseline computes trailing daily-volume statistics for a symbol.
package baseline

import (
	"context"
	"errors"
	"fmt"
	"math"

	"whale-tracker/internal/domain"
	"whale-tracker/internal/marketdata"
)

// Lookback windows in trading days.
const (
	ShortLookback = 20
	LongLookback  = 252

	// MinSamples is the fewest historical points a baseline may use.
	MinSamples = 20
)

// Unavailability reasons.
const (
	ReasonInsufficientHistory = "insufficient_history"
	ReasonZeroVariance        = "zero_variance"
)

var (
	// ErrUnavailable means the symbol has no usable baseline. Callers skip it.
	ErrUnavailable = errors.New("baseline unavailable")

	// ErrFetch wraps market data failures.
	ErrFetch = errors.New("baseline fetch failed")
)

// UnavailableError carries the reason a baseline could not be produced.
type UnavailableError struct {
	Symbol  string
	Reason  string
	Samples int
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("baseline unavailable for %s: %s (%d samples)", e.Symbol, e.Reason, e.Samples)
}

// Unwrap lets errors.Is match ErrUnavailable.
func (e *UnavailableError) Unwrap() error {
	return ErrUnavailable
}

// Calculator derives baselines from provider daily bars. Stateless.
type Calculator struct {
	provider marketdata.Provider
}

// NewCalculator creates a calculator over the given provider.
func NewCalculator(provider marketdata.Provider) *Calculator {
	return &Calculator{provider: provider}
}

// Compute fetches lookback+1 daily bars, drops the most recent one and
// computes mean and sample standard deviation over the rest.
func (c *Calculator) Compute(ctx context.Context, symbol string, lookback int) (domain.VolumeBaseline, error) {
	if lookback <= 0 {
		lookback = LongLookback
	}

	bars, err := c.provider.DailyBars(ctx, symbol, lookback+1)
	if err != nil {
		if errors.Is(err, marketdata.ErrNoData) {
			return domain.VolumeBaseline{}, &UnavailableError{Symbol: symbol, Reason: ReasonInsufficientHistory}
		}
		return domain.VolumeBaseline{}, fmt.Errorf("%w: %s: %w", ErrFetch, symbol, err)
	}

	if len(bars) == 0 {
		return domain.VolumeBaseline{}, &UnavailableError{Symbol: symbol, Reason: ReasonInsufficientHistory}
	}

	history := bars[:len(bars)-1]
	if len(history) > lookback {
		history = history[len(history)-lookback:]
	}

	volumes := make([]float64, len(history))
	for i, b := range history {
		volumes[i] = float64(b.Volume)
	}

	return FromVolumes(symbol, lookback, volumes)
}

// FromVolumes computes a baseline from historical volumes that already
// exclude the observation being scored.
func FromVolumes(symbol string, lookback int, volumes []float64) (domain.VolumeBaseline, error) {
	n := len(volumes)
	if n < MinSamples {
		return domain.VolumeBaseline{}, &UnavailableError{Symbol: symbol, Reason: ReasonInsufficientHistory, Samples: n}
	}

	mean := computeMean(volumes)
	stddev := computeStddev(volumes, mean)
	if stddev == 0 || math.IsNaN(stddev) {
		return domain.VolumeBaseline{}, &UnavailableError{Symbol: symbol, Reason: ReasonZeroVariance, Samples: n}
	}

	return domain.VolumeBaseline{
		Symbol:   symbol,
		Lookback: lookback,
		Samples:  n,
		Mean:     mean,
		StdDev:   stddev,
	}, nil
}

// computeMean calculates arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}
