package baseline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"whale-tracker/internal/domain"
	"whale-tracker/internal/marketdata"
)

type stubProvider struct {
	bars      []domain.DailyBar
	err       error
	requested int
}

func (s *stubProvider) DailyBars(_ context.Context, _ string, n int) ([]domain.DailyBar, error) {
	s.requested = n
	if s.err != nil {
		return nil, s.err
	}
	if len(s.bars) > n {
		return s.bars[len(s.bars)-n:], nil
	}
	return s.bars, nil
}

func (s *stubProvider) IntradayBars(context.Context, string) ([]domain.IntradayBar, error) {
	return nil, nil
}

func (s *stubProvider) AverageVolume(context.Context, string) (float64, error) {
	return 0, nil
}

func (s *stubProvider) InsiderTrades(context.Context, string, int) ([]domain.InsiderFiling, error) {
	return nil, nil
}

func barsFromVolumes(volumes ...int64) []domain.DailyBar {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.DailyBar, len(volumes))
	for i, v := range volumes {
		bars[i] = domain.DailyBar{Date: start.AddDate(0, 0, i), Volume: v}
	}
	return bars
}

// alternating returns n volumes alternating around mean by ±dev.
func alternating(n int, mean, dev int64) []int64 {
	out := make([]int64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = mean - dev
		} else {
			out[i] = mean + dev
		}
	}
	return out
}

func TestCompute_ExcludesMostRecentBar(t *testing.T) {
	volumes := append(alternating(20, 10_000_000, 1_000_000), 999_000_000)
	provider := &stubProvider{bars: barsFromVolumes(volumes...)}

	b, err := NewCalculator(provider).Compute(context.Background(), "TSLA", ShortLookback)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if provider.requested != ShortLookback+1 {
		t.Errorf("expected %d bars requested, got %d", ShortLookback+1, provider.requested)
	}
	if b.Samples != 20 {
		t.Errorf("expected 20 samples, got %d", b.Samples)
	}
	if b.Mean != 10_000_000 {
		t.Errorf("expected mean 10000000, got %f", b.Mean)
	}
	// 20 points at ±1M: sample variance = 20e12/19
	want := math.Sqrt(20e12 / 19)
	if math.Abs(b.StdDev-want) > 1e-6 {
		t.Errorf("expected stddev %f, got %f", want, b.StdDev)
	}
}

func TestCompute_InsufficientHistory(t *testing.T) {
	provider := &stubProvider{bars: barsFromVolumes(alternating(20, 100, 10)...)}

	_, err := NewCalculator(provider).Compute(context.Background(), "NEW", LongLookback)

	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	var ue *UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnavailableError, got %T", err)
	}
	if ue.Reason != ReasonInsufficientHistory || ue.Samples != 19 {
		t.Errorf("unexpected error %+v", ue)
	}
}

func TestCompute_ZeroVariance(t *testing.T) {
	volumes := make([]int64, 30)
	for i := range volumes {
		volumes[i] = 5_000_000
	}
	provider := &stubProvider{bars: barsFromVolumes(volumes...)}

	_, err := NewCalculator(provider).Compute(context.Background(), "FLAT", ShortLookback)

	var ue *UnavailableError
	if !errors.As(err, &ue) || ue.Reason != ReasonZeroVariance {
		t.Fatalf("expected zero_variance, got %v", err)
	}
}

func TestCompute_FetchError(t *testing.T) {
	provider := &stubProvider{err: &marketdata.APIError{StatusCode: 503, Endpoint: "/historical-price-full/TSLA"}}

	_, err := NewCalculator(provider).Compute(context.Background(), "TSLA", ShortLookback)

	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	var apiErr *marketdata.APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("expected wrapped APIError")
	}
	if errors.Is(err, ErrUnavailable) {
		t.Errorf("fetch failure must not be classified as unavailable")
	}
}

func TestCompute_NoData(t *testing.T) {
	provider := &stubProvider{err: marketdata.ErrNoData}

	_, err := NewCalculator(provider).Compute(context.Background(), "GONE", ShortLookback)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestFromVolumes_UsesSampleStddev(t *testing.T) {
	volumes := make([]float64, 20)
	for i := range volumes {
		volumes[i] = float64(i + 1)
	}

	b, err := FromVolumes("X", 20, volumes)
	if err != nil {
		t.Fatalf("FromVolumes failed: %v", err)
	}
	if b.Mean != 10.5 {
		t.Errorf("expected mean 10.5, got %f", b.Mean)
	}
	// Sample variance of 1..20 is 35
	if math.Abs(b.StdDev-math.Sqrt(35)) > 1e-9 {
		t.Errorf("expected stddev sqrt(35), got %f", b.StdDev)
	}
}
