package screener

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"whale-tracker/internal/domain"
	"whale-tracker/internal/fetch"
)

const (
	// DefaultFinvizBaseURL is the Finviz site root.
	DefaultFinvizBaseURL = "https://finviz.com"

	// DefaultRelVolFilter keeps rows with relative volume above 1.5.
	DefaultRelVolFilter = "sh_relvol_o1.5"

	// DefaultTableSelector matches the overview results table.
	DefaultTableSelector = "table.table-light"
)

// Result table column headers.
const (
	colTicker    = "Ticker"
	colPrice     = "Price"
	colRelVolume = "Rel Volume"
	colVolume    = "Volume"
)

// FinvizClient implements Provider by scraping the Finviz overview screener,
// ordered by volume descending.
type FinvizClient struct {
	baseURL       string
	relVolFilter  string
	tableSelector string
	fetcher       *fetch.Client
	logger        zerolog.Logger
}

// FinvizOption configures FinvizClient.
type FinvizOption func(*FinvizClient)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) FinvizOption {
	return func(c *FinvizClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithRelVolFilter overrides the relative-volume prefilter code.
func WithRelVolFilter(filter string) FinvizOption {
	return func(c *FinvizClient) {
		c.relVolFilter = filter
	}
}

// WithTableSelector overrides the results table selector.
func WithTableSelector(sel string) FinvizOption {
	return func(c *FinvizClient) {
		c.tableSelector = sel
	}
}

// WithFetcher sets the HTTP client.
func WithFetcher(f *fetch.Client) FinvizOption {
	return func(c *FinvizClient) {
		c.fetcher = f
	}
}

// WithLogger sets a logger.
func WithLogger(logger zerolog.Logger) FinvizOption {
	return func(c *FinvizClient) {
		c.logger = logger
	}
}

// NewFinvizClient creates a new screener client.
func NewFinvizClient(opts ...FinvizOption) *FinvizClient {
	c := &FinvizClient{
		baseURL:       DefaultFinvizBaseURL,
		relVolFilter:  DefaultRelVolFilter,
		tableSelector: DefaultTableSelector,
		fetcher:       fetch.New(fetch.WithRateLimit(0)),
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Provider = (*FinvizClient)(nil)

// PageURL builds the screener URL for a filter and 1-based offset.
func (c *FinvizClient) PageURL(filter string, offset int) string {
	filters := filter
	if c.relVolFilter != "" {
		filters += "," + c.relVolFilter
	}
	return fmt.Sprintf("%s/screener.ashx?v=111&f=%s&ft=4&o=-volume&r=%d", c.baseURL, filters, offset)
}

// Page fetches and parses one screener page. A page without a results
// table yields no rows and no error.
func (c *FinvizClient) Page(ctx context.Context, filter string, offset int) ([]domain.ScreenerRow, error) {
	body, err := c.fetcher.Get(ctx, c.PageURL(filter, offset))
	if err != nil {
		return nil, fmt.Errorf("fetch screener page %s r=%d: %w", filter, offset, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse screener html: %w", err)
	}

	return c.parseTable(doc)
}

func (c *FinvizClient) parseTable(doc *goquery.Document) ([]domain.ScreenerRow, error) {
	table := doc.Find(c.tableSelector).First()
	if table.Length() == 0 {
		c.logger.Debug().Str("selector", c.tableSelector).Msg("results table not found")
		return nil, nil
	}

	trs := table.Find("tr")
	if trs.Length() == 0 {
		return nil, nil
	}

	columns := make(map[string]int)
	trs.First().Find("th, td").Each(func(i int, s *goquery.Selection) {
		columns[strings.TrimSpace(s.Text())] = i
	})
	for _, name := range []string{colTicker, colPrice, colRelVolume, colVolume} {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrParse, name)
		}
	}

	var (
		rows    []domain.ScreenerRow
		rowErrs *RowErrors
	)
	trs.Slice(1, trs.Length()).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return
		}
		row, err := parseRow(cells, columns)
		if err != nil {
			if rowErrs == nil {
				rowErrs = &RowErrors{First: err}
			}
			rowErrs.Skipped++
			return
		}
		rows = append(rows, row)
	})

	if rowErrs != nil {
		return rows, rowErrs
	}
	return rows, nil
}

func parseRow(cells *goquery.Selection, columns map[string]int) (domain.ScreenerRow, error) {
	cell := func(name string) string {
		return strings.TrimSpace(cells.Eq(columns[name]).Text())
	}

	symbol := cell(colTicker)
	if symbol == "" {
		return domain.ScreenerRow{}, fmt.Errorf("%w: empty ticker", ErrParse)
	}

	price, err := parseNumber(cell(colPrice))
	if err != nil {
		return domain.ScreenerRow{}, fmt.Errorf("%s price: %w", symbol, err)
	}
	relVol, err := parseNumber(cell(colRelVolume))
	if err != nil {
		return domain.ScreenerRow{}, fmt.Errorf("%s rel volume: %w", symbol, err)
	}
	volume, err := ParseVolume(cell(colVolume))
	if err != nil {
		return domain.ScreenerRow{}, fmt.Errorf("%s volume: %w", symbol, err)
	}

	return domain.ScreenerRow{
		Symbol:         symbol,
		Price:          price,
		RelativeVolume: relVol,
		Volume:         volume,
	}, nil
}
