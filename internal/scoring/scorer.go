// Package scoring classifies volume observations against their baseline and
// persists whale days.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"whale-tracker/internal/baseline"
	"whale-tracker/internal/domain"
	"whale-tracker/internal/storage"
)

// WhaleDayZScore is the inclusive z-score threshold for a whale day.
const WhaleDayZScore = 2.0

// Observation is one symbol's volume and price for the trading day being scored.
type Observation struct {
	Symbol    string
	TradeDate time.Time
	Price     decimal.Decimal
	Volume    int64
}

// Scorer is the only writer of whale events.
type Scorer struct {
	store storage.WhaleEventStore
	now   func() time.Time
}

// Option configures Scorer.
type Option func(*Scorer)

// WithClock injects the clock used for DetectedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		s.now = now
	}
}

// NewScorer creates a scorer writing to store.
func NewScorer(store storage.WhaleEventStore, opts ...Option) *Scorer {
	s := &Scorer{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes z-score and relative volume. On a whale day the event is
// inserted; an existing (symbol, trade_date) row counts as success with
// Persisted=false. The result is returned for non-whale days too.
func (s *Scorer) Score(ctx context.Context, obs Observation, b domain.VolumeBaseline) (*domain.AnomalyResult, error) {
	if b.StdDev <= 0 || b.Mean <= 0 {
		return nil, &baseline.UnavailableError{Symbol: obs.Symbol, Reason: baseline.ReasonZeroVariance, Samples: b.Samples}
	}

	volume := float64(obs.Volume)
	result := &domain.AnomalyResult{
		Symbol:         obs.Symbol,
		TradeDate:      domain.Date(obs.TradeDate),
		Price:          obs.Price,
		Volume:         obs.Volume,
		Baseline:       b,
		ZScore:         Round2((volume - b.Mean) / b.StdDev),
		RelativeVolume: Round2(volume / b.Mean),
	}
	result.IsWhaleDay = IsWhaleDay(result.ZScore)

	if !result.IsWhaleDay {
		return result, nil
	}

	event := &domain.WhaleEvent{
		Symbol:         result.Symbol,
		TradeDate:      result.TradeDate,
		Price:          result.Price,
		Volume:         result.Volume,
		ZScore:         result.ZScore,
		RelativeVolume: result.RelativeVolume,
		DetectedAt:     s.now(),
	}

	err := s.store.Insert(ctx, event)
	switch {
	case err == nil:
		result.Persisted = true
	case errors.Is(err, storage.ErrDuplicateKey):
		// Already recorded by an earlier run.
	default:
		return result, fmt.Errorf("persist whale event %s %s: %w", event.Symbol, event.TradeDate.Format(domain.DateLayout), err)
	}

	return result, nil
}

// IsWhaleDay applies the inclusive threshold to an already-rounded z-score.
func IsWhaleDay(z float64) bool {
	return z >= WhaleDayZScore
}

// Round2 rounds half away from zero to two decimals. Stored z-scores and
// relative volumes always pass through it.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
