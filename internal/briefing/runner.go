// Package briefing runs the daily briefing.
// It coordinates: target date → universe scan → large-trade watch → insider
// clusters → report → notification.
package briefing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"whale-tracker/internal/calendar"
	"whale-tracker/internal/domain"
	"whale-tracker/internal/notify"
	"whale-tracker/internal/observability"
	"whale-tracker/internal/reporting"
	"whale-tracker/internal/scanner"
	"whale-tracker/internal/watch"
)

// Run statuses, also used as metric labels.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Scanner finds whale days across the screener universe.
type Scanner interface {
	Scan(ctx context.Context, targets []domain.ScanTarget, tradeDate time.Time) (*scanner.ScanReport, error)
}

// LargeTradeWatcher finds large intraday prints on the interest list.
type LargeTradeWatcher interface {
	WatchLargeTrades(ctx context.Context, symbols []string) (*watch.Result, error)
}

// InsiderDetector finds insider clusters.
type InsiderDetector interface {
	Detect(ctx context.Context, symbols []string) ([]domain.InsiderSignal, error)
}

// Runner coordinates one briefing.
type Runner struct {
	scanner  Scanner
	watcher  LargeTradeWatcher
	insiders InsiderDetector
	notifier notify.Notifier

	targets        []domain.ScanTarget
	watchSymbols   []string
	insiderSymbols []string

	calendar  *calendar.Calendar
	location  *time.Location
	now       func() time.Time
	generator *reporting.Generator
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// Options for creating Runner. Nil Watcher or Insiders skip that phase.
type Options struct {
	// Phases
	Scanner  Scanner
	Watcher  LargeTradeWatcher
	Insiders InsiderDetector
	Notifier notify.Notifier

	// Inputs
	Targets        []domain.ScanTarget
	WatchSymbols   []string
	InsiderSymbols []string

	// Time
	Calendar *calendar.Calendar
	Location *time.Location   // exchange time zone used to pick the target date
	Clock    func() time.Time // Injectable clock for deterministic runs

	Metrics *observability.Metrics
	Logger  zerolog.Logger
}

// New creates a new Runner.
func New(opts Options) *Runner {
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Calendar == nil {
		opts.Calendar = calendar.Default()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Runner{
		scanner:        opts.Scanner,
		watcher:        opts.Watcher,
		insiders:       opts.Insiders,
		notifier:       opts.Notifier,
		targets:        opts.Targets,
		watchSymbols:   opts.WatchSymbols,
		insiderSymbols: opts.InsiderSymbols,
		calendar:       opts.Calendar,
		location:       opts.Location,
		now:            opts.Clock,
		generator:      reporting.NewGenerator().WithClock(func() time.Time { return opts.Clock().UTC() }),
		metrics:        opts.Metrics,
		logger:         opts.Logger.With().Str("component", "briefing").Logger(),
	}
}

// Result contains results from one briefing.
type Result struct {
	TradeDate time.Time
	Status    string
	Report    *reporting.Report
	Markdown  string
	Errors    []error
}

// Run executes the briefing.
// Phases:
//  1. Resolve the latest completed trading day
//  2. Scan the screener universe for whale days
//  3. Watch the interest list for large intraday prints
//  4. Detect insider clusters
//  5. Render and notify
//
// A failing phase is recorded in Result.Errors and the run continues. The
// error return is reserved for context cancellation.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := r.now()
	result := &Result{
		TradeDate: r.calendar.ResolveTargetDate(start.In(r.location)),
	}
	logger := r.logger.With().Str("trade_date", result.TradeDate.Format(domain.DateLayout)).Logger()
	logger.Info().Msg("briefing started")

	input := reporting.Input{TradeDate: result.TradeDate}

	// Phase 2: Scan
	if r.scanner != nil {
		phaseStart := time.Now()
		report, err := r.scanner.Scan(ctx, r.targets, result.TradeDate)
		r.metrics.RecordBriefingPhase("scan", time.Since(phaseStart))
		input.Scan = report
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("scan: %w", err))
		}
	}

	// Phase 3: Large trades
	if r.watcher != nil && ctx.Err() == nil {
		phaseStart := time.Now()
		res, err := r.watcher.WatchLargeTrades(ctx, r.watchSymbols)
		r.metrics.RecordBriefingPhase("watch", time.Since(phaseStart))
		input.Watch = res
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("watch: %w", err))
		}
	}

	// Phase 4: Insider clusters
	if r.insiders != nil && ctx.Err() == nil {
		phaseStart := time.Now()
		signals, err := r.insiders.Detect(ctx, r.insiderSymbols)
		r.metrics.RecordBriefingPhase("insider", time.Since(phaseStart))
		input.Insiders = signals
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("insider: %w", err))
		}
	}

	// Phase 5: Render and notify
	input.Errors = result.Errors
	result.Report = r.generator.Generate(input)
	result.Markdown = reporting.RenderMarkdown(result.Report)

	if ctx.Err() == nil {
		err := r.notifier.Notify(ctx, result.Report)
		r.metrics.RecordNotification(err)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("notify: %w", err))
		}
	}

	result.Status = status(ctx, result.Errors)
	r.metrics.RecordBriefingRun(result.Status, r.now())
	r.metrics.RecordBriefingPhase("total", r.now().Sub(start))

	logger.Info().
		Str("status", result.Status).
		Int("whales", len(result.Report.Whales)).
		Int("large_trades", len(result.Report.LargeTrades)).
		Int("insiders", len(result.Report.Insiders)).
		Int("errors", len(result.Errors)).
		Msg("briefing finished")

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func status(ctx context.Context, errs []error) string {
	switch {
	case ctx.Err() != nil:
		return StatusFailed
	case len(errs) > 0:
		return StatusPartial
	default:
		return StatusSuccess
	}
}

// Err joins the run errors, or returns nil.
func (r *Result) Err() error {
	return errors.Join(r.Errors...)
}
