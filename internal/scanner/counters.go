package scanner

import "sync/atomic"

// Counter reasons, also used as metric labels.
const (
	ReasonPagesFetched        = "pages_fetched"
	ReasonPageErrors          = "page_errors"
	ReasonRowsParsed          = "rows_parsed"
	ReasonRowParseErrors      = "row_parse_errors"
	ReasonDuplicatesSkipped   = "duplicates_skipped"
	ReasonBaselineUnavailable = "baseline_unavailable"
	ReasonFetchErrors         = "fetch_errors"
	ReasonBelowThreshold      = "below_threshold"
	ReasonWhaleDays           = "whale_days"
	ReasonPersisted           = "persisted"
	ReasonAlreadyRecorded     = "already_recorded"
	ReasonStoreErrors         = "store_errors"
)

// Counters is a snapshot of per-reason scan counts.
type Counters struct {
	PagesFetched        int64
	PageErrors          int64
	RowsParsed          int64
	RowParseErrors      int64
	DuplicatesSkipped   int64
	BaselineUnavailable int64
	FetchErrors         int64
	BelowThreshold      int64
	WhaleDays           int64
	Persisted           int64
	AlreadyRecorded     int64
	StoreErrors         int64
}

// Map returns the counters keyed by reason.
func (c Counters) Map() map[string]int64 {
	return map[string]int64{
		ReasonPagesFetched:        c.PagesFetched,
		ReasonPageErrors:          c.PageErrors,
		ReasonRowsParsed:          c.RowsParsed,
		ReasonRowParseErrors:      c.RowParseErrors,
		ReasonDuplicatesSkipped:   c.DuplicatesSkipped,
		ReasonBaselineUnavailable: c.BaselineUnavailable,
		ReasonFetchErrors:         c.FetchErrors,
		ReasonBelowThreshold:      c.BelowThreshold,
		ReasonWhaleDays:           c.WhaleDays,
		ReasonPersisted:           c.Persisted,
		ReasonAlreadyRecorded:     c.AlreadyRecorded,
		ReasonStoreErrors:         c.StoreErrors,
	}
}

// Evaluated is the number of symbols that reached a classification.
func (c Counters) Evaluated() int64 {
	return c.BaselineUnavailable + c.FetchErrors + c.BelowThreshold + c.WhaleDays + c.StoreErrors
}

// counters is the concurrent accumulator behind Counters.
type counters struct {
	pagesFetched        atomic.Int64
	pageErrors          atomic.Int64
	rowsParsed          atomic.Int64
	rowParseErrors      atomic.Int64
	duplicatesSkipped   atomic.Int64
	baselineUnavailable atomic.Int64
	fetchErrors         atomic.Int64
	belowThreshold      atomic.Int64
	whaleDays           atomic.Int64
	persisted           atomic.Int64
	alreadyRecorded     atomic.Int64
	storeErrors         atomic.Int64
}

func (c *counters) snapshot() Counters {
	return Counters{
		PagesFetched:        c.pagesFetched.Load(),
		PageErrors:          c.pageErrors.Load(),
		RowsParsed:          c.rowsParsed.Load(),
		RowParseErrors:      c.rowParseErrors.Load(),
		DuplicatesSkipped:   c.duplicatesSkipped.Load(),
		BaselineUnavailable: c.baselineUnavailable.Load(),
		FetchErrors:         c.fetchErrors.Load(),
		BelowThreshold:      c.belowThreshold.Load(),
		WhaleDays:           c.whaleDays.Load(),
		Persisted:           c.persisted.Load(),
		AlreadyRecorded:     c.alreadyRecorded.Load(),
		StoreErrors:         c.storeErrors.Load(),
	}
}
