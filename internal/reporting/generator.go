package reporting

import (
	"sort"
	"time"

	"whale-tracker/internal/domain"
	"whale-tracker/internal/scanner"
	"whale-tracker/internal/watch"
)

// Input carries the outputs of one briefing run.
type Input struct {
	TradeDate time.Time
	Scan      *scanner.ScanReport
	Watch     *watch.Result
	Insiders  []domain.InsiderSignal
	Errors    []error
}

// Generator assembles reports from briefing outputs.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds a report. Nil sections render as empty.
func (g *Generator) Generate(in Input) *Report {
	r := &Report{
		GeneratedAt: g.now(),
		TradeDate:   in.TradeDate,
	}

	if in.Scan != nil {
		r.RunID = in.Scan.RunID
		r.Summary = summarize(in.Scan.Counters)
		r.Whales = sortWhales(in.Scan.Records)
	}

	if in.Watch != nil {
		r.LargeTrades = make([]domain.LargeTradeReport, len(in.Watch.Reports))
		copy(r.LargeTrades, in.Watch.Reports)
		sort.SliceStable(r.LargeTrades, func(i, j int) bool {
			return r.LargeTrades[i].Symbol < r.LargeTrades[j].Symbol
		})
		r.WatchSkipped = append(r.WatchSkipped, in.Watch.Skipped...)
	}

	r.Insiders = make([]domain.InsiderSignal, len(in.Insiders))
	copy(r.Insiders, in.Insiders)
	sort.SliceStable(r.Insiders, func(i, j int) bool {
		return r.Insiders[i].Symbol < r.Insiders[j].Symbol
	})

	for _, err := range in.Errors {
		if err != nil {
			r.Errors = append(r.Errors, err.Error())
		}
	}

	return r
}

func summarize(c scanner.Counters) ScanSummary {
	return ScanSummary{
		PagesFetched:        c.PagesFetched,
		PageErrors:          c.PageErrors,
		RowsParsed:          c.RowsParsed,
		RowParseErrors:      c.RowParseErrors,
		Evaluated:           c.Evaluated(),
		BaselineUnavailable: c.BaselineUnavailable,
		FetchErrors:         c.FetchErrors,
		WhaleDays:           c.WhaleDays,
		NewEvents:           c.Persisted,
		StoreErrors:         c.StoreErrors,
	}
}

// sortWhales orders records by z-score desc, breaking ties by symbol.
func sortWhales(records []domain.WhaleRecord) []domain.WhaleRecord {
	out := make([]domain.WhaleRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ZScore != out[j].ZScore {
			return out[i].ZScore > out[j].ZScore
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}
