// Package scanner walks the screener universe group by group and turns new
// candidates into whale records.
package scanner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"whale-tracker/internal/baseline"
	"whale-tracker/internal/domain"
	"whale-tracker/internal/observability"
	"whale-tracker/internal/scoring"
	"whale-tracker/internal/screener"
)

// Defaults applied to zero Options fields.
const (
	DefaultWorkers      = 4
	DefaultCallTimeout  = 10 * time.Second
	DefaultPageInterval = time.Second
)

// BaselineSource computes the trailing volume baseline for a symbol.
type BaselineSource interface {
	Compute(ctx context.Context, symbol string, lookback int) (domain.VolumeBaseline, error)
}

// Scorer classifies and persists one observation.
type Scorer interface {
	Score(ctx context.Context, obs scoring.Observation, b domain.VolumeBaseline) (*domain.AnomalyResult, error)
}

// FrequencySource reports recent event counts for a symbol.
type FrequencySource interface {
	Frequency(ctx context.Context, symbol string) (weekly, monthly int, err error)
}

// Options configures Scanner.
type Options struct {
	Workers      int           // concurrent symbol evaluations within a page
	CallTimeout  time.Duration // per external call
	PageInterval time.Duration // minimum spacing between page fetches; negative disables pacing
	Lookback     int           // baseline window in trading days
	Logger       zerolog.Logger
	Metrics      *observability.Metrics
}

// ScanReport is the outcome of one scan.
type ScanReport struct {
	RunID     string
	TradeDate time.Time
	Records   []domain.WhaleRecord
	Counters  Counters
	Duration  time.Duration
}

// Scanner runs the multi-group universe scan.
type Scanner struct {
	screener  screener.Provider
	baselines BaselineSource
	scorer    Scorer
	frequency FrequencySource
	opts      Options
	pages     *rate.Limiter
	logger    zerolog.Logger
}

// New creates a scanner.
func New(sp screener.Provider, baselines BaselineSource, scorer Scorer, frequency FrequencySource, opts Options) *Scanner {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.PageInterval == 0 {
		opts.PageInterval = DefaultPageInterval
	}
	if opts.Lookback <= 0 {
		opts.Lookback = baseline.LongLookback
	}

	limit := rate.Inf
	if opts.PageInterval > 0 {
		limit = rate.Every(opts.PageInterval)
	}

	return &Scanner{
		screener:  sp,
		baselines: baselines,
		scorer:    scorer,
		frequency: frequency,
		opts:      opts,
		pages:     rate.NewLimiter(limit, 1),
		logger:    opts.Logger.With().Str("component", "scanner").Logger(),
	}
}

// candidate is a first-seen symbol queued for evaluation.
type candidate struct {
	row   domain.ScreenerRow
	group string
}

// Scan processes targets in order. A symbol is evaluated once, under the
// first group that lists it. A failed page ends its group only; the error
// return is reserved for context cancellation, with partial results kept.
func (s *Scanner) Scan(ctx context.Context, targets []domain.ScanTarget, tradeDate time.Time) (*ScanReport, error) {
	start := time.Now()
	report := &ScanReport{
		RunID:     uuid.NewString(),
		TradeDate: domain.Date(tradeDate),
	}
	logger := s.logger.With().Str("run_id", report.RunID).Str("trade_date", report.TradeDate.Format(domain.DateLayout)).Logger()

	var c counters
	seen := make(map[string]struct{})

	var scanErr error
	for _, target := range targets {
		if err := s.scanTarget(ctx, target, report, seen, &c, logger); err != nil {
			scanErr = err
			break
		}
	}

	report.Counters = c.snapshot()
	report.Duration = time.Since(start)
	for reason, n := range report.Counters.Map() {
		s.opts.Metrics.RecordScanOutcome(reason, n)
	}

	logger.Info().
		Int("records", len(report.Records)).
		Int64("pages", report.Counters.PagesFetched).
		Int64("evaluated", report.Counters.Evaluated()).
		Int64("whale_days", report.Counters.WhaleDays).
		Int64("fetch_errors", report.Counters.FetchErrors).
		Dur("duration", report.Duration).
		Msg("scan finished")

	return report, scanErr
}

func (s *Scanner) scanTarget(ctx context.Context, target domain.ScanTarget, report *ScanReport, seen map[string]struct{}, c *counters, logger zerolog.Logger) error {
	logger = logger.With().Str("group", target.Name).Logger()

	for page := 0; page < target.Pages; page++ {
		offset := 1 + page*target.PageSize

		if err := s.pages.Wait(ctx); err != nil {
			return err
		}

		rows, err := s.fetchPage(ctx, target.Filter, offset)
		var rowErrs *screener.RowErrors
		if errors.As(err, &rowErrs) {
			c.rowParseErrors.Add(int64(rowErrs.Skipped))
			logger.Debug().Err(rowErrs.First).Int("skipped", rowErrs.Skipped).Int("offset", offset).Msg("rows skipped")
			err = nil
		}
		s.opts.Metrics.RecordPage(target.Name, err)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.pageErrors.Add(1)
			logger.Warn().Err(err).Int("offset", offset).Msg("page fetch failed, skipping rest of group")
			return nil
		}
		c.pagesFetched.Add(1)
		c.rowsParsed.Add(int64(len(rows)))

		var batch []candidate
		for _, row := range rows {
			if _, dup := seen[row.Symbol]; dup {
				c.duplicatesSkipped.Add(1)
				continue
			}
			seen[row.Symbol] = struct{}{}
			batch = append(batch, candidate{row: row, group: target.Name})
		}

		report.Records = append(report.Records, s.evaluateBatch(ctx, batch, report.TradeDate, c, logger)...)

		if ctx.Err() != nil {
			return ctx.Err()
		}

		// A short page is the last page.
		skipped := 0
		if rowErrs != nil {
			skipped = rowErrs.Skipped
		}
		if len(rows)+skipped < target.PageSize {
			break
		}
	}
	return nil
}

func (s *Scanner) fetchPage(ctx context.Context, filter string, offset int) ([]domain.ScreenerRow, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()

	start := time.Now()
	defer s.opts.Metrics.ObserveUpstream("screener", start)

	return s.screener.Page(callCtx, filter, offset)
}

// evaluateBatch runs candidates on the worker pool and returns whale records
// in candidate order.
func (s *Scanner) evaluateBatch(ctx context.Context, batch []candidate, tradeDate time.Time, c *counters, logger zerolog.Logger) []domain.WhaleRecord {
	results := make([]*domain.WhaleRecord, len(batch))

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.opts.Workers)

	for i, cand := range batch {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, cand candidate) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = s.evaluate(ctx, cand, tradeDate, c, logger)
		}(i, cand)
	}
	wg.Wait()

	var records []domain.WhaleRecord
	for _, r := range results {
		if r != nil {
			records = append(records, *r)
		}
	}
	return records
}

// evaluate scores one candidate. It returns a record only for whale days.
func (s *Scanner) evaluate(ctx context.Context, cand candidate, tradeDate time.Time, c *counters, logger zerolog.Logger) *domain.WhaleRecord {
	symbol := cand.row.Symbol
	logger = logger.With().Str("symbol", symbol).Logger()

	b, err := s.computeBaseline(ctx, symbol)
	if err != nil {
		if errors.Is(err, baseline.ErrUnavailable) {
			c.baselineUnavailable.Add(1)
			logger.Info().Err(err).Msg("baseline unavailable")
		} else {
			c.fetchErrors.Add(1)
			logger.Warn().Err(err).Msg("baseline fetch failed")
		}
		return nil
	}

	obs := scoring.Observation{
		Symbol:    symbol,
		TradeDate: tradeDate,
		Price:     decimal.NewFromFloat(cand.row.Price),
		Volume:    cand.row.Volume,
	}

	scoreCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	result, err := s.scorer.Score(scoreCtx, obs, b)
	cancel()
	if err != nil {
		switch {
		case errors.Is(err, baseline.ErrUnavailable):
			c.baselineUnavailable.Add(1)
		default:
			c.storeErrors.Add(1)
			logger.Error().Err(err).Msg("whale event not persisted")
		}
		return nil
	}

	if !result.IsWhaleDay {
		c.belowThreshold.Add(1)
		return nil
	}

	c.whaleDays.Add(1)
	s.opts.Metrics.RecordWhaleDay(cand.group)
	if result.Persisted {
		c.persisted.Add(1)
	} else {
		c.alreadyRecorded.Add(1)
	}

	record := &domain.WhaleRecord{
		Symbol:         symbol,
		Group:          cand.group,
		TradeDate:      result.TradeDate,
		Price:          result.Price,
		Volume:         result.Volume,
		ZScore:         result.ZScore,
		RelativeVolume: result.RelativeVolume,
	}

	freqCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	record.WeeklyFrequency, record.MonthlyFrequency, err = s.frequency.Frequency(freqCtx, symbol)
	cancel()
	if err != nil {
		logger.Warn().Err(err).Msg("frequency lookup failed")
	}

	logger.Info().
		Float64("z_score", record.ZScore).
		Int("monthly", record.MonthlyFrequency).
		Bool("persisted", result.Persisted).
		Msg("whale day detected")

	return record
}

func (s *Scanner) computeBaseline(ctx context.Context, symbol string) (domain.VolumeBaseline, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()

	start := time.Now()
	defer s.opts.Metrics.ObserveUpstream("market_data", start)

	return s.baselines.Compute(callCtx, symbol, s.opts.Lookback)
}
