// Package seed generates mock whale history for demos and frequency backfills.
package seed

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"whale-tracker/internal/domain"
	"whale-tracker/internal/scoring"
	"whale-tracker/internal/storage"
)

// Mock generation parameters.
const (
	DefaultDays        = 365
	DefaultProbability = 0.05

	minZScore = 2.0
	maxZScore = 5.0
	minRelVol = 1.5
	maxRelVol = 4.0
	minPrice  = 10.0
	maxPrice  = 200.0
	minVolume = 1_000_000
	maxVolume = 50_000_000
)

// MockSymbols are the tickers seeded by default.
var MockSymbols = []string{"TSLA", "NVDA", "AAPL", "AMD", "MSFT", "PLTR", "SOFI", "AMZN", "GOOGL", "META"}

// Options controls mock generation.
type Options struct {
	Symbols     []string
	End         time.Time // last seeded date, inclusive
	Days        int       // days before End to start from
	Probability float64   // per symbol per day
}

// Generate draws mock whale events for every calendar day in
// [End-Days, End]. Output is ordered by date, then by symbol order.
func Generate(rng *rand.Rand, opts Options) []*domain.WhaleEvent {
	if len(opts.Symbols) == 0 {
		opts.Symbols = MockSymbols
	}
	if opts.Days <= 0 {
		opts.Days = DefaultDays
	}
	if opts.Probability <= 0 {
		opts.Probability = DefaultProbability
	}

	end := domain.Date(opts.End)
	start := end.AddDate(0, 0, -opts.Days)

	var events []*domain.WhaleEvent
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		for _, symbol := range opts.Symbols {
			if rng.Float64() >= opts.Probability {
				continue
			}
			events = append(events, &domain.WhaleEvent{
				Symbol:         symbol,
				TradeDate:      d,
				Price:          decimal.NewFromFloat(uniform(rng, minPrice, maxPrice)).Round(2),
				Volume:         minVolume + rng.Int63n(maxVolume-minVolume+1),
				ZScore:         scoring.Round2(uniform(rng, minZScore, maxZScore)),
				RelativeVolume: scoring.Round2(uniform(rng, minRelVol, maxRelVol)),
				DetectedAt:     d,
			})
		}
	}
	return events
}

// Insert writes events, counting existing keys as skipped.
func Insert(ctx context.Context, store storage.WhaleEventStore, events []*domain.WhaleEvent) (inserted, skipped int, err error) {
	for _, e := range events {
		err := store.Insert(ctx, e)
		switch {
		case err == nil:
			inserted++
		case errors.Is(err, storage.ErrDuplicateKey):
			skipped++
		default:
			return inserted, skipped, err
		}
	}
	return inserted, skipped, nil
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
