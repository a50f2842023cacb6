package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"whale-tracker/internal/baseline"
	"whale-tracker/internal/domain"
	"whale-tracker/internal/storage"
	"whale-tracker/internal/storage/memory"
)

var (
	tradeDate  = time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	fixedNow   = time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)
	tenMillion = domain.VolumeBaseline{Symbol: "TSLA", Lookback: 252, Samples: 252, Mean: 10_000_000, StdDev: 1_000_000}
)

func obs(volume int64) Observation {
	return Observation{
		Symbol:    "TSLA",
		TradeDate: tradeDate,
		Price:     decimal.RequireFromString("251.37"),
		Volume:    volume,
	}
}

func TestScore_ThresholdInclusive(t *testing.T) {
	store := memory.NewWhaleEventStore()
	scorer := NewScorer(store, WithClock(func() time.Time { return fixedNow }))

	result, err := scorer.Score(context.Background(), obs(12_000_000), tenMillion)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if result.ZScore != 2.0 {
		t.Errorf("expected z 2.0, got %f", result.ZScore)
	}
	if !result.IsWhaleDay {
		t.Error("expected whale day at z == 2.0")
	}
	if !result.Persisted {
		t.Error("expected event to be persisted")
	}
	if result.RelativeVolume != 1.2 {
		t.Errorf("expected relative volume 1.2, got %f", result.RelativeVolume)
	}

	event, err := store.Get(context.Background(), "TSLA", tradeDate)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !event.DetectedAt.Equal(fixedNow) {
		t.Errorf("expected DetectedAt %s, got %s", fixedNow, event.DetectedAt)
	}
	if !event.Price.Equal(decimal.RequireFromString("251.37")) {
		t.Errorf("unexpected price %s", event.Price)
	}
}

func TestScore_BelowThreshold(t *testing.T) {
	store := memory.NewWhaleEventStore()

	result, err := NewScorer(store).Score(context.Background(), obs(11_000_000), tenMillion)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if result.ZScore != 1.0 {
		t.Errorf("expected z 1.0, got %f", result.ZScore)
	}
	if result.IsWhaleDay || result.Persisted {
		t.Error("expected no whale day")
	}
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d", store.Len())
	}
}

func TestScore_RoundedValueIsClassified(t *testing.T) {
	// raw z = 1.996 rounds to 2.00
	result, err := NewScorer(memory.NewWhaleEventStore()).Score(context.Background(), obs(11_996_000), tenMillion)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if result.ZScore != 2.0 || !result.IsWhaleDay {
		t.Errorf("expected rounded z 2.0 whale day, got %f/%v", result.ZScore, result.IsWhaleDay)
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.996, 2.0},
		{3.414, 3.41},
		{2.125, 2.13},
		{-1.234, -1.23},
		{-2.5, -2.5},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestScore_DuplicatePersistedOnce(t *testing.T) {
	store := memory.NewWhaleEventStore()
	scorer := NewScorer(store)
	ctx := context.Background()

	first, err := scorer.Score(ctx, obs(15_000_000), tenMillion)
	if err != nil {
		t.Fatalf("first Score failed: %v", err)
	}
	second, err := scorer.Score(ctx, obs(15_000_000), tenMillion)
	if err != nil {
		t.Fatalf("second Score failed: %v", err)
	}

	if !first.Persisted {
		t.Error("expected first call to persist")
	}
	if second.Persisted {
		t.Error("expected second call to report already recorded")
	}
	if !second.IsWhaleDay {
		t.Error("duplicate must still be reported as a whale day")
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 stored event, got %d", store.Len())
	}
}

type brokenStore struct {
	storage.WhaleEventStore
}

func (brokenStore) Insert(context.Context, *domain.WhaleEvent) error {
	return errors.New("disk full")
}

func TestScore_StoreError(t *testing.T) {
	result, err := NewScorer(brokenStore{}).Score(context.Background(), obs(20_000_000), tenMillion)
	if err == nil {
		t.Fatal("expected store error")
	}
	if result == nil || !result.IsWhaleDay || result.Persisted {
		t.Errorf("expected unpersisted whale day result, got %+v", result)
	}
}

func TestScore_ZeroVarianceBaseline(t *testing.T) {
	_, err := NewScorer(memory.NewWhaleEventStore()).Score(context.Background(), obs(20_000_000), domain.VolumeBaseline{Mean: 1, StdDev: 0})
	if !errors.Is(err, baseline.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
