// Package screener reads ranked-universe pages from a stock screener.
package screener

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"whale-tracker/internal/domain"
)

// ErrParse marks a screener cell or row that could not be parsed.
var ErrParse = errors.New("screener parse error")

// Provider returns one page of screener rows for a filter.
// offset is the 1-based rank of the first row on the page.
//
// A page with some unparseable rows returns the good rows together with a
// *RowErrors; any other error means the page itself failed.
type Provider interface {
	Page(ctx context.Context, filter string, offset int) ([]domain.ScreenerRow, error)
}

// RowErrors reports rows skipped on an otherwise usable page.
type RowErrors struct {
	Skipped int
	First   error
}

func (e *RowErrors) Error() string {
	return fmt.Sprintf("%d rows skipped: %v", e.Skipped, e.First)
}

// Unwrap lets errors.Is match ErrParse.
func (e *RowErrors) Unwrap() error {
	return ErrParse
}

var volumeMultipliers = map[byte]int64{
	'K': 1_000,
	'M': 1_000_000,
	'B': 1_000_000_000,
}

var maxVolume = decimal.NewFromInt(math.MaxInt64)

// ParseVolume parses screener volume strings such as "1.5M", "2B", "750K",
// "500000" or "1,234,567".
func ParseVolume(s string) (int64, error) {
	v := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if v == "" || v == "-" {
		return 0, fmt.Errorf("%w: empty volume", ErrParse)
	}

	mult := int64(1)
	if m, ok := volumeMultipliers[strings.ToUpper(v[len(v)-1:])[0]]; ok {
		mult = m
		v = v[:len(v)-1]
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		return 0, fmt.Errorf("%w: volume %q", ErrParse, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative volume %q", ErrParse, s)
	}
	total := d.Mul(decimal.NewFromInt(mult))
	if total.GreaterThan(maxVolume) {
		return 0, fmt.Errorf("%w: volume %q out of range", ErrParse, s)
	}
	return total.IntPart(), nil
}

// parseNumber parses a plain decimal cell such as "251.37" or "1.52".
func parseNumber(s string) (float64, error) {
	v := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	d, err := decimal.NewFromString(v)
	if err != nil {
		return 0, fmt.Errorf("%w: number %q", ErrParse, s)
	}
	f, _ := d.Float64()
	return f, nil
}
