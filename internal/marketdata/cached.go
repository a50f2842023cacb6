package marketdata

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"whale-tracker/internal/calendar"
	"whale-tracker/internal/domain"
	"whale-tracker/internal/storage"
)

// CachedProvider serves daily bars from an archive and falls back to the
// upstream provider when the archive is short or stale. Other calls pass through.
type CachedProvider struct {
	upstream Provider
	archive  storage.DailyBarStore
	cal      *calendar.Calendar
	now      func() time.Time
	loc      *time.Location
	logger   zerolog.Logger
}

// CachedOption configures CachedProvider.
type CachedOption func(*CachedProvider)

// WithCalendar sets the calendar that decides which session is the latest completed one.
func WithCalendar(cal *calendar.Calendar) CachedOption {
	return func(p *CachedProvider) {
		p.cal = cal
	}
}

// WithClock injects the reference clock.
func WithClock(now func() time.Time) CachedOption {
	return func(p *CachedProvider) {
		p.now = now
	}
}

// WithLocation sets the exchange zone in which the clock's calendar date is
// read. Without it the clock's own location is used.
func WithLocation(loc *time.Location) CachedOption {
	return func(p *CachedProvider) {
		p.loc = loc
	}
}

// WithCacheLogger sets a logger.
func WithCacheLogger(logger zerolog.Logger) CachedOption {
	return func(p *CachedProvider) {
		p.logger = logger
	}
}

// NewCachedProvider decorates upstream with a daily bar archive.
func NewCachedProvider(upstream Provider, archive storage.DailyBarStore, opts ...CachedOption) *CachedProvider {
	p := &CachedProvider{
		upstream: upstream,
		archive:  archive,
		cal:      calendar.Default(),
		now:      time.Now,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Compile-time interface check.
var _ Provider = (*CachedProvider)(nil)

// DailyBars returns archived bars when the archive holds n bars ending at the
// latest completed session. Otherwise it fetches upstream and archives the
// completed sessions of the answer.
func (p *CachedProvider) DailyBars(ctx context.Context, symbol string, n int) ([]domain.DailyBar, error) {
	now := p.now()
	if p.loc != nil {
		now = now.In(p.loc)
	}
	latestCompleted := p.cal.ResolveTargetDate(now)

	archived, err := p.archive.GetLatest(ctx, symbol, n)
	if err != nil {
		p.logger.Warn().Err(err).Str("symbol", symbol).Msg("bar archive read failed")
	} else if len(archived) >= n && n > 0 && !archived[len(archived)-1].Date.Before(latestCompleted) {
		return archived, nil
	}

	bars, err := p.upstream.DailyBars(ctx, symbol, n)
	if err != nil {
		return nil, err
	}

	// Only completed sessions are archived; an in-progress bar would stick.
	completed := make([]domain.DailyBar, 0, len(bars))
	for _, b := range bars {
		if !b.Date.After(latestCompleted) {
			completed = append(completed, b)
		}
	}
	if err := p.archive.InsertBulk(ctx, symbol, completed); err != nil {
		p.logger.Warn().Err(err).Str("symbol", symbol).Msg("bar archive write failed")
	}

	return bars, nil
}

// IntradayBars passes through to upstream.
func (p *CachedProvider) IntradayBars(ctx context.Context, symbol string) ([]domain.IntradayBar, error) {
	return p.upstream.IntradayBars(ctx, symbol)
}

// AverageVolume passes through to upstream.
func (p *CachedProvider) AverageVolume(ctx context.Context, symbol string) (float64, error) {
	return p.upstream.AverageVolume(ctx, symbol)
}

// InsiderTrades passes through to upstream.
func (p *CachedProvider) InsiderTrades(ctx context.Context, symbol string, limit int) ([]domain.InsiderFiling, error) {
	return p.upstream.InsiderTrades(ctx, symbol, limit)
}
