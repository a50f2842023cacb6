package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ScanTarget is a named group of symbols scanned through one screener filter.
type ScanTarget struct {
	Name     string `mapstructure:"name" validate:"required"`
	Filter   string `mapstructure:"filter" validate:"required"`
	Pages    int    `mapstructure:"pages" validate:"gte=1,lte=20"`
	PageSize int    `mapstructure:"page_size" validate:"gte=1,lte=100"`
}

// DefaultScanTargets are the index groups scanned when none are configured.
// Order matters: a symbol is attributed to the first group it appears in.
func DefaultScanTargets() []ScanTarget {
	return []ScanTarget{
		{Name: "S&P 500", Filter: "idx_sp500", Pages: 3, PageSize: 20},
		{Name: "Nasdaq 100", Filter: "idx_ndx", Pages: 3, PageSize: 20},
		{Name: "NYSE", Filter: "exch_nyse", Pages: 3, PageSize: 20},
	}
}

// VolumeBaseline is the trailing volume statistic for a symbol. Never persisted.
type VolumeBaseline struct {
	Symbol   string
	Lookback int     // requested window in trading days
	Samples  int     // points actually used
	Mean     float64 // arithmetic mean volume
	StdDev   float64 // sample standard deviation (n-1)
}

// AnomalyResult is the outcome of scoring one symbol for one trading day.
type AnomalyResult struct {
	Symbol         string
	TradeDate      time.Time
	Price          decimal.Decimal
	Volume         int64
	Baseline       VolumeBaseline
	ZScore         float64
	RelativeVolume float64
	IsWhaleDay     bool
	Persisted      bool // true only when this call inserted the event
}

// WhaleRecord is the per-symbol result handed to report renderers and notifiers.
type WhaleRecord struct {
	Symbol           string
	Group            string
	TradeDate        time.Time
	Price            decimal.Decimal
	Volume           int64
	ZScore           float64
	RelativeVolume   float64
	WeeklyFrequency  int
	MonthlyFrequency int
}

// Message renders the one-line alert for the record.
func (r WhaleRecord) Message() string {
	return fmt.Sprintf("🔥 %s (%s): Z-score %.2f", r.Symbol, r.Group, r.ZScore)
}
