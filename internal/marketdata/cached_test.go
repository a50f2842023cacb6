package marketdata

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"whale-tracker/internal/calendar"
	"whale-tracker/internal/domain"
	"whale-tracker/internal/storage/memory"
)

type stubProvider struct {
	bars  []domain.DailyBar
	calls int
}

func (s *stubProvider) DailyBars(_ context.Context, _ string, n int) ([]domain.DailyBar, error) {
	s.calls++
	if len(s.bars) > n {
		return s.bars[len(s.bars)-n:], nil
	}
	return s.bars, nil
}

func (s *stubProvider) IntradayBars(context.Context, string) ([]domain.IntradayBar, error) {
	return nil, nil
}

func (s *stubProvider) AverageVolume(context.Context, string) (float64, error) {
	return 0, ErrNoData
}

func (s *stubProvider) InsiderTrades(context.Context, string, int) ([]domain.InsiderFiling, error) {
	return nil, nil
}

// barsThrough returns n consecutive calendar-day bars ending at last.
func barsThrough(last time.Time, n int) []domain.DailyBar {
	bars := make([]domain.DailyBar, n)
	for i := 0; i < n; i++ {
		bars[i] = domain.DailyBar{Date: last.AddDate(0, 0, i-n+1), Volume: int64(i + 1)}
	}
	return bars
}

func TestCachedProvider_ServesFreshArchive(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC) // Tuesday
	monday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	upstream := &stubProvider{bars: barsThrough(monday, 30)}
	archive := memory.NewDailyBarStore()
	p := NewCachedProvider(upstream, archive, WithClock(func() time.Time { return now }), WithCalendar(calendar.New(nil)))

	first, err := p.DailyBars(ctx, "TSLA", 25)
	if err != nil {
		t.Fatalf("DailyBars: %v", err)
	}
	second, err := p.DailyBars(ctx, "TSLA", 25)
	if err != nil {
		t.Fatalf("DailyBars: %v", err)
	}

	if upstream.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", upstream.calls)
	}
	if len(first) != 25 || len(second) != 25 {
		t.Fatalf("expected 25 bars, got %d and %d", len(first), len(second))
	}
	if second[24].Volume != first[24].Volume {
		t.Errorf("archive returned different latest bar")
	}
}

func TestCachedProvider_InProgressSessionNotArchived(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	upstream := &stubProvider{bars: barsThrough(today, 5)}
	archive := memory.NewDailyBarStore()
	p := NewCachedProvider(upstream, archive, WithClock(func() time.Time { return now }), WithCalendar(calendar.New(nil)))

	if _, err := p.DailyBars(ctx, "TSLA", 5); err != nil {
		t.Fatalf("DailyBars: %v", err)
	}

	archived, _ := archive.GetLatest(ctx, "TSLA", 10)
	if len(archived) != 4 {
		t.Fatalf("expected 4 completed bars archived, got %d", len(archived))
	}
	if archived[3].Date.After(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("in-progress session was archived")
	}
}

func TestCachedProvider_SessionJudgedInExchangeZone(t *testing.T) {
	ctx := context.Background()
	newYork, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	seoul, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}

	// Monday 11:00 in New York is already Tuesday in Seoul.
	now := time.Date(2026, 3, 9, 11, 0, 0, 0, newYork).In(seoul)
	monday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	friday := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)

	upstream := &stubProvider{bars: barsThrough(monday, 10)}
	archive := memory.NewDailyBarStore()
	p := NewCachedProvider(upstream, archive,
		WithClock(func() time.Time { return now }),
		WithLocation(newYork),
		WithCalendar(calendar.New(nil)),
	)

	if _, err := p.DailyBars(ctx, "TSLA", 10); err != nil {
		t.Fatalf("DailyBars: %v", err)
	}

	archived, _ := archive.GetLatest(ctx, "TSLA", 10)
	if len(archived) == 0 {
		t.Fatal("expected completed bars archived")
	}
	if last := archived[len(archived)-1].Date; !last.Equal(friday) {
		t.Errorf("expected latest archived bar %s, got %s", friday.Format(domain.DateLayout), last.Format(domain.DateLayout))
	}
}

func TestCachedProvider_StaleArchiveRefetches(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	archive := memory.NewDailyBarStore()
	_ = archive.InsertBulk(ctx, "TSLA", barsThrough(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), 10))

	upstream := &stubProvider{bars: barsThrough(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), 10)}
	p := NewCachedProvider(upstream, archive, WithClock(func() time.Time { return now }), WithCalendar(calendar.New(nil)))

	bars, err := p.DailyBars(ctx, "TSLA", 10)
	if err != nil {
		t.Fatalf("DailyBars: %v", err)
	}
	if upstream.calls != 1 {
		t.Errorf("expected upstream refetch, got %d calls", upstream.calls)
	}
	if bars[len(bars)-1].Date.Format(domain.DateLayout) != "2026-03-09" {
		t.Errorf("expected fresh bars, latest %s", bars[len(bars)-1].Date.Format(domain.DateLayout))
	}
}
