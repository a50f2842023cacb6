// Package frequency reports how often a symbol has recently been flagged.
package frequency

import (
	"context"
	"fmt"
	"time"

	"whale-tracker/internal/domain"
	"whale-tracker/internal/storage"
)

// Trailing windows in calendar days.
const (
	WeeklyWindowDays  = 7
	MonthlyWindowDays = 30
)

// Reporter counts recent whale events for a symbol. Read-only.
type Reporter struct {
	store storage.WhaleEventStore
	now   func() time.Time
}

// Option configures Reporter.
type Option func(*Reporter)

// WithClock injects the reference clock.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		r.now = now
	}
}

// NewReporter creates a reporter over the event store.
func NewReporter(store storage.WhaleEventStore, opts ...Option) *Reporter {
	r := &Reporter{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Frequency returns the number of events with trade_date on or after
// today-7 and today-30 respectively.
func (r *Reporter) Frequency(ctx context.Context, symbol string) (weekly, monthly int, err error) {
	today := domain.Date(r.now())

	weekly, err = r.store.CountSince(ctx, symbol, today.AddDate(0, 0, -WeeklyWindowDays))
	if err != nil {
		return 0, 0, fmt.Errorf("weekly frequency %s: %w", symbol, err)
	}

	monthly, err = r.store.CountSince(ctx, symbol, today.AddDate(0, 0, -MonthlyWindowDays))
	if err != nil {
		return 0, 0, fmt.Errorf("monthly frequency %s: %w", symbol, err)
	}

	return weekly, monthly, nil
}
