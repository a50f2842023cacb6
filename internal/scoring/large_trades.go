package scoring

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"whale-tracker/internal/domain"
	"whale-tracker/internal/marketdata"
)

const (
	// LargeTradeFraction is the share of average daily volume a single bar must reach.
	LargeTradeFraction = 0.01

	// AverageVolumeWindow is the number of recent daily bars averaged.
	AverageVolumeWindow = 20

	// averageVolumeFetch over-fetches so a missing session still leaves a full window.
	averageVolumeFetch = 25
)

// ErrNoAverageVolume means neither daily bars nor the quote gave a usable average.
var ErrNoAverageVolume = errors.New("average daily volume unavailable")

// DetectLargeTrades returns the bars of the most recent session whose volume
// reaches LargeTradeFraction of avgDailyVolume, in chronological order.
func DetectLargeTrades(bars []domain.IntradayBar, avgDailyVolume float64) []domain.LargeTrade {
	if len(bars) == 0 || avgDailyVolume <= 0 {
		return nil
	}

	latest := ""
	for _, b := range bars {
		if s := b.Session(); s > latest {
			latest = s
		}
	}

	threshold := avgDailyVolume * LargeTradeFraction

	var trades []domain.LargeTrade
	for _, b := range bars {
		if b.Session() != latest || float64(b.Volume) < threshold {
			continue
		}
		flow := domain.FlowDumping
		if b.Close >= b.Open {
			flow = domain.FlowAccumulation
		}
		trades = append(trades, domain.LargeTrade{
			Time:   b.Time,
			Volume: b.Volume,
			Ratio:  float64(b.Volume) / avgDailyVolume,
			Price:  b.Close,
			Flow:   flow,
		})
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Time.Before(trades[j].Time)
	})
	return trades
}

// AverageDailyVolume averages the most recent AverageVolumeWindow daily bars,
// falling back to the provider's quote average.
func AverageDailyVolume(ctx context.Context, provider marketdata.Provider, symbol string) (float64, error) {
	bars, err := provider.DailyBars(ctx, symbol, averageVolumeFetch)
	if err == nil && len(bars) > 0 {
		if len(bars) > AverageVolumeWindow {
			bars = bars[len(bars)-AverageVolumeWindow:]
		}
		sum := 0.0
		for _, b := range bars {
			sum += float64(b.Volume)
		}
		if avg := sum / float64(len(bars)); avg > 0 {
			return avg, nil
		}
	}

	avg, quoteErr := provider.AverageVolume(ctx, symbol)
	if quoteErr != nil || avg <= 0 {
		return 0, fmt.Errorf("%s: %w", symbol, errors.Join(ErrNoAverageVolume, err, quoteErr))
	}
	return avg, nil
}
