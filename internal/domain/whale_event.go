package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used for trade dates.
const DateLayout = "2006-01-02"

// WhaleEvent represents one detected daily volume anomaly.
// Corresponds to whale_events table in PostgreSQL.
type WhaleEvent struct {
	Symbol         string          // ticker, PRIMARY KEY part
	TradeDate      time.Time       // exchange-local trading day at UTC midnight, PRIMARY KEY part
	Price          decimal.Decimal // last price on the trading day
	Volume         int64           // shares traded on the trading day
	ZScore         float64         // volume z-score against the trailing baseline
	RelativeVolume float64         // volume / baseline mean
	DetectedAt     time.Time       // when the scorer fired
	CreatedAt      time.Time       // record creation timestamp (set by the store)
}

// EventKey identifies a WhaleEvent. At most one event exists per key.
type EventKey struct {
	Symbol    string
	TradeDate string // YYYY-MM-DD
}

// Key returns the (symbol, trade_date) identity of the event.
func (e *WhaleEvent) Key() EventKey {
	return EventKey{Symbol: e.Symbol, TradeDate: e.TradeDate.Format(DateLayout)}
}

// Date truncates t to its calendar date in t's own location and returns
// that date at UTC midnight.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC-midnight date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
