package reporting

import (
	"time"

	"whale-tracker/internal/domain"
)

// Report is the daily briefing handed to renderers and notifiers.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	TradeDate   time.Time
	RunID       string

	// Scan
	Summary ScanSummary
	Whales  []domain.WhaleRecord // z-score desc, then symbol

	// Interest list
	LargeTrades  []domain.LargeTradeReport // symbol asc
	WatchSkipped []string

	// Insider
	Insiders []domain.InsiderSignal // symbol asc

	// Errors from phases that failed outright
	Errors []string
}

// ScanSummary condenses scan counters for display.
type ScanSummary struct {
	PagesFetched        int64
	PageErrors          int64
	RowsParsed          int64
	RowParseErrors      int64
	Evaluated           int64
	BaselineUnavailable int64
	FetchErrors         int64
	WhaleDays           int64
	NewEvents           int64
	StoreErrors         int64
}

// HasFindings reports whether anything worth alerting on was found.
func (r *Report) HasFindings() bool {
	return len(r.Whales) > 0 || len(r.LargeTrades) > 0 || len(r.Insiders) > 0
}
