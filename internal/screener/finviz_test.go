package screener

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whale-tracker/internal/fetch"
)

const pageHTML = `<html><body>
<table class="table-light">
  <tr><td>No.</td><td>Ticker</td><td>Company</td><td>Price</td><td>Rel Volume</td><td>Volume</td></tr>
  <tr><td>1</td><td><a>TSLA</a></td><td>Tesla</td><td>251.37</td><td>2.41</td><td>98.5M</td></tr>
  <tr><td>2</td><td><a>NVDA</a></td><td>NVIDIA</td><td>1,182.10</td><td>1.62</td><td>45,210,000</td></tr>
  <tr><td>3</td><td><a>BAD</a></td><td>Broken</td><td>-</td><td>1.70</td><td>1M</td></tr>
</table>
</body></html>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *FinvizClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	fetcher := fetch.New(fetch.WithRateLimit(0), fetch.WithRetry(time.Millisecond, 0))
	return NewFinvizClient(WithBaseURL(server.URL), WithFetcher(fetcher))
}

func TestFinvizClient_Page(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/screener.ashx", r.URL.Path)
		assert.Equal(t, "idx_sp500,sh_relvol_o1.5", r.URL.Query().Get("f"))
		assert.Equal(t, "-volume", r.URL.Query().Get("o"))
		assert.Equal(t, "21", r.URL.Query().Get("r"))
		fmt.Fprint(w, pageHTML)
	})

	rows, err := client.Page(context.Background(), "idx_sp500", 21)

	var rowErrs *RowErrors
	require.True(t, errors.As(err, &rowErrs), "expected RowErrors, got %v", err)
	assert.True(t, errors.Is(err, ErrParse))
	assert.Equal(t, 1, rowErrs.Skipped)

	require.Len(t, rows, 2)
	assert.Equal(t, "TSLA", rows[0].Symbol)
	assert.Equal(t, 251.37, rows[0].Price)
	assert.Equal(t, 2.41, rows[0].RelativeVolume)
	assert.Equal(t, int64(98_500_000), rows[0].Volume)
	assert.Equal(t, "NVDA", rows[1].Symbol)
	assert.Equal(t, 1182.10, rows[1].Price)
	assert.Equal(t, int64(45_210_000), rows[1].Volume)
}

func TestFinvizClient_Page_NoTable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>No results</p></body></html>`)
	})

	rows, err := client.Page(context.Background(), "exch_nyse", 41)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFinvizClient_Page_MissingColumn(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Replace(pageHTML, "Rel Volume", "Change", 1))
	})

	_, err := client.Page(context.Background(), "idx_ndx", 1)
	require.Error(t, err)
	var rowErrs *RowErrors
	assert.False(t, errors.As(err, &rowErrs), "missing column is a page failure")
}

func TestFinvizClient_Page_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.Page(context.Background(), "idx_sp500", 1)

	var statusErr *fetch.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}

func TestFinvizClient_PageURL_NoRelVolFilter(t *testing.T) {
	c := NewFinvizClient(WithRelVolFilter(""))
	assert.Equal(t, "https://finviz.com/screener.ashx?v=111&f=idx_ndx&ft=4&o=-volume&r=1", c.PageURL("idx_ndx", 1))
}
