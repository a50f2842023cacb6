// Package watch monitors an interest list for large intraday prints.
package watch

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"whale-tracker/internal/domain"
	"whale-tracker/internal/marketdata"
	"whale-tracker/internal/observability"
	"whale-tracker/internal/scoring"
)

// DefaultSymbols is the interest list watched when none is configured.
var DefaultSymbols = []string{"TSLA", "RKLB", "PLTR", "SOFI", "IONQ"}

// Result holds the reports of one watch pass.
type Result struct {
	Reports []domain.LargeTradeReport
	Skipped []string // symbols without a usable average or intraday data
}

// Watcher runs large-trade detection over a list of symbols.
type Watcher struct {
	provider    marketdata.Provider
	callTimeout time.Duration
	metrics     *observability.Metrics
	logger      zerolog.Logger
}

// NewWatcher creates a watcher. A zero callTimeout means 10 seconds.
func NewWatcher(provider marketdata.Provider, callTimeout time.Duration, metrics *observability.Metrics, logger zerolog.Logger) *Watcher {
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &Watcher{
		provider:    provider,
		callTimeout: callTimeout,
		metrics:     metrics,
		logger:      logger.With().Str("component", "watch").Logger(),
	}
}

// WatchLargeTrades reports, per symbol, the large prints of its latest
// session. Symbols with no large prints are omitted; symbols that fail are
// listed in Skipped.
func (w *Watcher) WatchLargeTrades(ctx context.Context, symbols []string) (*Result, error) {
	result := &Result{}

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		report, err := w.watchSymbol(ctx, symbol)
		if err != nil {
			w.logger.Warn().Err(err).Str("symbol", symbol).Msg("skipping symbol")
			result.Skipped = append(result.Skipped, symbol)
			continue
		}
		if report == nil {
			continue
		}

		for _, t := range report.Trades {
			w.metrics.RecordLargeTrade(t.Flow.String())
		}
		w.logger.Info().Str("symbol", symbol).Str("session", report.Session).Int("trades", len(report.Trades)).Msg("large trades detected")
		result.Reports = append(result.Reports, *report)
	}

	return result, nil
}

func (w *Watcher) watchSymbol(ctx context.Context, symbol string) (*domain.LargeTradeReport, error) {
	callCtx, cancel := context.WithTimeout(ctx, w.callTimeout)
	avg, err := scoring.AverageDailyVolume(callCtx, w.provider, symbol)
	cancel()
	if err != nil {
		return nil, err
	}

	callCtx, cancel = context.WithTimeout(ctx, w.callTimeout)
	bars, err := w.provider.IntradayBars(callCtx, symbol)
	cancel()
	if err != nil {
		return nil, err
	}

	trades := scoring.DetectLargeTrades(bars, avg)
	if len(trades) == 0 {
		return nil, nil
	}

	return &domain.LargeTradeReport{
		Symbol:    symbol,
		Session:   trades[0].Time.Format(domain.DateLayout),
		AvgVolume: avg,
		Trades:    trades,
	}, nil
}
