package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"whale-tracker/internal/domain"
	"whale-tracker/internal/fetch"
)

const (
	// DefaultFMPBaseURL is the Financial Modeling Prep v3 API root.
	DefaultFMPBaseURL = "https://financialmodelingprep.com/api/v3"

	intradayLayout = "2006-01-02 15:04:05"
)

// FMPClient implements Provider against the Financial Modeling Prep JSON API.
type FMPClient struct {
	baseURL string
	apiKey  string
	fetcher *fetch.Client
	logger  zerolog.Logger
}

// FMPOption configures FMPClient.
type FMPOption func(*FMPClient)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) FMPOption {
	return func(c *FMPClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithFetcher sets the HTTP client. Share one fetcher to share its rate budget.
func WithFetcher(f *fetch.Client) FMPOption {
	return func(c *FMPClient) {
		c.fetcher = f
	}
}

// WithLogger sets a logger.
func WithLogger(logger zerolog.Logger) FMPOption {
	return func(c *FMPClient) {
		c.logger = logger
	}
}

// NewFMPClient creates a new FMP client.
func NewFMPClient(apiKey string, opts ...FMPOption) *FMPClient {
	c := &FMPClient{
		baseURL: DefaultFMPBaseURL,
		apiKey:  apiKey,
		fetcher: fetch.New(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Provider = (*FMPClient)(nil)

type fmpBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type fmpHistorical struct {
	Symbol       string   `json:"symbol"`
	Historical   []fmpBar `json:"historical"`
	ErrorMessage string   `json:"Error Message"`
}

type fmpQuote struct {
	Symbol    string  `json:"symbol"`
	AvgVolume float64 `json:"avgVolume"`
}

type fmpInsider struct {
	Symbol                 string  `json:"symbol"`
	TransactionDate        string  `json:"transactionDate"`
	AcquisitionDisposition string  `json:"acquistionOrDisposition"`
	TransactionType        string  `json:"transactionType"`
	SecuritiesTransacted   float64 `json:"securitiesTransacted"`
	Price                  float64 `json:"price"`
	ReportingName          string  `json:"reportingName"`
	TypeOfOwner            string  `json:"typeOfOwner"`
}

// DailyBars fetches the n most recent daily bars. The API answers newest first.
func (c *FMPClient) DailyBars(ctx context.Context, symbol string, n int) ([]domain.DailyBar, error) {
	params := url.Values{}
	params.Set("timeseries", strconv.Itoa(n))

	var resp fmpHistorical
	if err := c.get(ctx, "/historical-price-full/"+url.PathEscape(symbol), params, &resp); err != nil {
		return nil, err
	}
	if resp.ErrorMessage != "" {
		return nil, &APIError{StatusCode: 200, Message: resp.ErrorMessage, Endpoint: "/historical-price-full"}
	}
	if len(resp.Historical) == 0 {
		return nil, fmt.Errorf("daily bars %s: %w", symbol, ErrNoData)
	}

	bars := make([]domain.DailyBar, 0, len(resp.Historical))
	for _, b := range resp.Historical {
		d, err := domain.ParseDate(b.Date)
		if err != nil {
			c.logger.Debug().Str("symbol", symbol).Str("date", b.Date).Msg("skipping bar with malformed date")
			continue
		}
		bars = append(bars, domain.DailyBar{Date: d, Open: b.Open, Close: b.Close, Volume: int64(b.Volume)})
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
	if n > 0 && len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	return bars, nil
}

// IntradayBars fetches the recent 5-minute chart. Times are exchange wall clock.
func (c *FMPClient) IntradayBars(ctx context.Context, symbol string) ([]domain.IntradayBar, error) {
	var resp []fmpBar
	if err := c.get(ctx, "/historical-chart/5min/"+url.PathEscape(symbol), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, fmt.Errorf("intraday bars %s: %w", symbol, ErrNoData)
	}

	bars := make([]domain.IntradayBar, 0, len(resp))
	for _, b := range resp {
		ts, err := time.ParseInLocation(intradayLayout, b.Date, time.UTC)
		if err != nil {
			continue
		}
		bars = append(bars, domain.IntradayBar{Time: ts, Open: b.Open, Close: b.Close, Volume: int64(b.Volume)})
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Time.Before(bars[j].Time)
	})
	return bars, nil
}

// AverageVolume returns the quote's average daily volume.
func (c *FMPClient) AverageVolume(ctx context.Context, symbol string) (float64, error) {
	var resp []fmpQuote
	if err := c.get(ctx, "/quote/"+url.PathEscape(symbol), nil, &resp); err != nil {
		return 0, err
	}
	if len(resp) == 0 || resp[0].AvgVolume <= 0 {
		return 0, fmt.Errorf("average volume %s: %w", symbol, ErrNoData)
	}
	return resp[0].AvgVolume, nil
}

// InsiderTrades fetches recent insider filings.
func (c *FMPClient) InsiderTrades(ctx context.Context, symbol string, limit int) ([]domain.InsiderFiling, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	var resp []fmpInsider
	if err := c.get(ctx, "/insider-trading/"+url.PathEscape(symbol), params, &resp); err != nil {
		return nil, err
	}

	filings := make([]domain.InsiderFiling, 0, len(resp))
	for _, f := range resp {
		filings = append(filings, domain.InsiderFiling{
			Symbol:          symbol,
			TransactionDate: f.TransactionDate,
			Disposition:     f.AcquisitionDisposition,
			TransactionType: f.TransactionType,
			Securities:      f.SecuritiesTransacted,
			Price:           f.Price,
			ReportingName:   f.ReportingName,
			OwnerType:       f.TypeOfOwner,
		})
	}
	return filings, nil
}

// get performs a GET request and decodes the JSON body into result.
func (c *FMPClient) get(ctx context.Context, path string, params url.Values, result any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	c.logger.Debug().Str("endpoint", path).Msg("market data request")

	body, err := c.fetcher.Get(ctx, reqURL)
	if err != nil {
		var statusErr *fetch.StatusError
		if errors.As(err, &statusErr) {
			return &APIError{StatusCode: statusErr.StatusCode, Message: statusErr.Body, Endpoint: path}
		}
		return fmt.Errorf("request %s: %w", path, err)
	}

	if err := json.Unmarshal(body, result); err != nil {
		// Errors come back as a 200 object where an array was expected.
		var apiErr struct {
			ErrorMessage string `json:"Error Message"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.ErrorMessage != "" {
			return &APIError{StatusCode: 200, Message: apiErr.ErrorMessage, Endpoint: path}
		}
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
