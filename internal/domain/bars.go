package domain

import "time"

// DailyBar is one end-of-day bar from the market-data provider.
type DailyBar struct {
	Date   time.Time // trading day at UTC midnight
	Open   float64
	Close  float64
	Volume int64
}

// IntradayBar is one short-interval bar (5 minutes by default) of a session.
type IntradayBar struct {
	Time   time.Time // bar start, exchange-local wall clock
	Open   float64
	Close  float64
	Volume int64
}

// Session returns the calendar date the bar belongs to.
func (b IntradayBar) Session() string {
	return b.Time.Format(DateLayout)
}

// ScreenerRow is one row of a ranked universe page.
type ScreenerRow struct {
	Symbol         string
	Price          float64
	RelativeVolume float64
	Volume         int64
}
