// Package app wires configuration into a ready-to-run briefing.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"whale-tracker/internal/baseline"
	"whale-tracker/internal/briefing"
	"whale-tracker/internal/calendar"
	"whale-tracker/internal/config"
	"whale-tracker/internal/fetch"
	"whale-tracker/internal/frequency"
	"whale-tracker/internal/insider"
	"whale-tracker/internal/marketdata"
	"whale-tracker/internal/notify"
	"whale-tracker/internal/notify/telegram"
	"whale-tracker/internal/observability"
	"whale-tracker/internal/scanner"
	"whale-tracker/internal/scoring"
	"whale-tracker/internal/screener"
	"whale-tracker/internal/storage"
	chstore "whale-tracker/internal/storage/clickhouse"
	"whale-tracker/internal/storage/memory"
	"whale-tracker/internal/storage/migrations"
	pgstore "whale-tracker/internal/storage/postgres"
	"whale-tracker/internal/watch"
)

// App holds all application components and dependencies
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Metrics *observability.Metrics

	// Storage
	Events storage.WhaleEventStore
	Bars   storage.DailyBarStore

	// Briefing
	Provider marketdata.Provider
	Runner   *briefing.Runner

	closers []func()
}

// New opens storage and builds the briefing runner. Close releases storage.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, metrics *observability.Metrics) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Metrics: metrics}

	if err := a.initStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initRunner(); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// initStorage opens the event store and the bar archive.
func (a *App) initStorage(ctx context.Context) error {
	cfg := a.Config.Storage

	switch cfg.Driver {
	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool, a.Logger); err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
		a.Events = pgstore.NewWhaleEventStore(pool)
	default:
		a.Events = memory.NewWhaleEventStore()
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN, a.Logger)
		if err != nil {
			return fmt.Errorf("clickhouse migrations: %w", err)
		}
		a.closers = append(a.closers, func() { conn.Close() })
		a.Bars = chstore.NewDailyBarStore(conn)
	} else {
		a.Bars = memory.NewDailyBarStore()
	}

	a.Logger.Info().
		Str("events", cfg.Driver).
		Bool("clickhouse_archive", cfg.ClickhouseDSN != "").
		Msg("storage ready")
	return nil
}

// initRunner builds clients, detectors and the briefing runner.
func (a *App) initRunner() error {
	cfg := a.Config

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("schedule timezone: %w", err)
	}
	cal := calendar.Default()
	// Every date-sensitive component reads "today" in the schedule zone.
	now := func() time.Time { return time.Now().In(loc) }

	mdFetcher := fetch.New(
		fetch.WithTimeout(cfg.MarketData.Timeout),
		fetch.WithRateLimit(cfg.MarketData.RequestsPerSecond),
		fetch.WithRetry(fetch.DefaultInitialInterval, cfg.MarketData.MaxRetryElapsed),
		fetch.WithLogger(a.Logger),
	)
	fmp := marketdata.NewFMPClient(cfg.MarketData.APIKey,
		marketdata.WithBaseURL(cfg.MarketData.BaseURL),
		marketdata.WithFetcher(mdFetcher),
		marketdata.WithLogger(a.Logger),
	)
	a.Provider = marketdata.NewCachedProvider(fmp, a.Bars,
		marketdata.WithCalendar(cal),
		marketdata.WithClock(now),
		marketdata.WithLocation(loc),
		marketdata.WithCacheLogger(a.Logger),
	)

	// Page pacing happens in the scanner.
	scrFetcher := fetch.New(
		fetch.WithTimeout(cfg.Screener.Timeout),
		fetch.WithRateLimit(0),
		fetch.WithLogger(a.Logger),
	)
	finviz := screener.NewFinvizClient(
		screener.WithBaseURL(cfg.Screener.BaseURL),
		screener.WithRelVolFilter(cfg.Screener.RelVolFilter),
		screener.WithFetcher(scrFetcher),
		screener.WithLogger(a.Logger),
	)

	scan := scanner.New(finviz,
		baseline.NewCalculator(a.Provider),
		scoring.NewScorer(a.Events, scoring.WithClock(now)),
		frequency.NewReporter(a.Events, frequency.WithClock(now)),
		scanner.Options{
			Workers:      cfg.Scan.Workers,
			CallTimeout:  cfg.Scan.CallTimeout,
			PageInterval: cfg.Screener.PageInterval,
			Lookback:     cfg.Scan.Lookback,
			Logger:       a.Logger,
			Metrics:      a.Metrics,
		},
	)

	opts := briefing.Options{
		Scanner:        scan,
		Targets:        cfg.Scan.Targets,
		WatchSymbols:   cfg.Watch.Symbols,
		InsiderSymbols: cfg.Watch.InsiderSymbols,
		Calendar:       cal,
		Location:       loc,
		Metrics:        a.Metrics,
		Logger:         a.Logger,
	}
	if cfg.Watch.LargeTrades {
		opts.Watcher = watch.NewWatcher(a.Provider, cfg.Scan.CallTimeout, a.Metrics, a.Logger)
	}
	if cfg.Watch.Insider {
		opts.Insiders = insider.NewDetector(a.Provider, insider.Options{
			Cutoff:      cfg.InsiderCutoffDate(),
			CallTimeout: cfg.Scan.CallTimeout,
			Metrics:     a.Metrics,
			Logger:      a.Logger,
		})
	}

	notifier, err := a.newNotifier()
	if err != nil {
		return err
	}
	opts.Notifier = notifier

	a.Runner = briefing.New(opts)
	return nil
}

func (a *App) newNotifier() (notify.Notifier, error) {
	tg := a.Config.Telegram
	if !tg.Enabled {
		return notify.Log{Logger: a.Logger}, nil
	}
	client, err := telegram.NewClient(telegram.Config{
		BotToken:   tg.BotToken,
		ChatID:     tg.ChatID,
		MaxRetries: tg.MaxRetries,
		Logger:     a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return client, nil
}

// Close releases storage connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
