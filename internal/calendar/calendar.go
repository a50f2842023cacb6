// Package calendar resolves which trading day a briefing reports on.
package calendar

import (
	"time"

	"whale-tracker/internal/domain"
)

// NYSEHolidays are the full-day NYSE closures for 2025 and 2026.
var NYSEHolidays = []string{
	"2025-01-01", "2025-01-20", "2025-02-17", "2025-04-18", "2025-05-26",
	"2025-06-19", "2025-07-04", "2025-09-01", "2025-11-27", "2025-12-25",
	"2026-01-01", "2026-01-19", "2026-02-16", "2026-04-03", "2026-05-25",
}

// maxLookback bounds the backward walk when a holiday set is pathological.
const maxLookback = 30

// Calendar knows weekends and a static holiday set.
type Calendar struct {
	holidays map[string]struct{}
}

// New creates a calendar from YYYY-MM-DD holiday strings.
func New(holidays []string) *Calendar {
	c := &Calendar{holidays: make(map[string]struct{}, len(holidays))}
	for _, h := range holidays {
		c.holidays[h] = struct{}{}
	}
	return c
}

// Default returns the NYSE calendar.
func Default() *Calendar {
	return New(NYSEHolidays)
}

// IsTradingDay reports whether the calendar date of t is a weekday outside the holiday set.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := c.holidays[t.Format(domain.DateLayout)]
	return !holiday
}

// ResolveTargetDate returns the most recent trading day strictly before ref's
// calendar date, at UTC midnight. ref is interpreted in its own location.
func (c *Calendar) ResolveTargetDate(ref time.Time) time.Time {
	d := domain.Date(ref).AddDate(0, 0, -1)
	for i := 0; i < maxLookback && !c.IsTradingDay(d); i++ {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// ResolveTargetDate resolves against the NYSE calendar.
func ResolveTargetDate(ref time.Time) time.Time {
	return Default().ResolveTargetDate(ref)
}
