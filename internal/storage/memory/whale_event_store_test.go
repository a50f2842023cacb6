package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"whale-tracker/internal/domain"
	"whale-tracker/internal/storage"
)

func day(s string) time.Time {
	t, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func newEvent(symbol, date string) *domain.WhaleEvent {
	return &domain.WhaleEvent{
		Symbol:         symbol,
		TradeDate:      day(date),
		Price:          decimal.RequireFromString("251.37"),
		Volume:         12_000_000,
		ZScore:         2.0,
		RelativeVolume: 1.2,
		DetectedAt:     time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC),
	}
}

func TestWhaleEventStore_InsertAndGet(t *testing.T) {
	store := NewWhaleEventStore()
	ctx := context.Background()

	if err := store.Insert(ctx, newEvent("TSLA", "2026-03-10")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.Get(ctx, "TSLA", day("2026-03-10"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Volume != 12_000_000 {
		t.Errorf("Expected volume 12000000, got %d", got.Volume)
	}
	if !got.Price.Equal(decimal.RequireFromString("251.37")) {
		t.Errorf("Expected price 251.37, got %s", got.Price)
	}
	if got.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set by the store")
	}
}

func TestWhaleEventStore_DuplicateKey(t *testing.T) {
	store := NewWhaleEventStore()
	ctx := context.Background()

	if err := store.Insert(ctx, newEvent("TSLA", "2026-03-10")); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	dup := newEvent("TSLA", "2026-03-10")
	dup.Volume = 99
	err := store.Insert(ctx, dup)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	got, _ := store.Get(ctx, "TSLA", day("2026-03-10"))
	if got.Volume != 12_000_000 {
		t.Errorf("Duplicate insert must not overwrite, got volume %d", got.Volume)
	}
	if store.Len() != 1 {
		t.Errorf("Expected 1 event, got %d", store.Len())
	}
}

func TestWhaleEventStore_SameSymbolDifferentDays(t *testing.T) {
	store := NewWhaleEventStore()
	ctx := context.Background()

	_ = store.Insert(ctx, newEvent("TSLA", "2026-03-10"))
	_ = store.Insert(ctx, newEvent("TSLA", "2026-03-09"))
	_ = store.Insert(ctx, newEvent("NVDA", "2026-03-10"))

	events, err := store.GetBySymbol(ctx, "TSLA")
	if err != nil {
		t.Fatalf("GetBySymbol failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].TradeDate.After(events[1].TradeDate) {
		t.Error("Expected events ordered by trade_date ASC")
	}
}

func TestWhaleEventStore_InvalidInput(t *testing.T) {
	store := NewWhaleEventStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.WhaleEvent{Symbol: "TSLA"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for zero date, got %v", err)
	}
}

func TestWhaleEventStore_GetNotFound(t *testing.T) {
	store := NewWhaleEventStore()

	_, err := store.Get(context.Background(), "TSLA", day("2026-03-10"))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestWhaleEventStore_CountSince(t *testing.T) {
	store := NewWhaleEventStore()
	ctx := context.Background()

	for _, d := range []string{"2026-03-01", "2026-03-05", "2026-03-10"} {
		_ = store.Insert(ctx, newEvent("AMD", d))
	}
	_ = store.Insert(ctx, newEvent("MSFT", "2026-03-10"))

	count, err := store.CountSince(ctx, "AMD", day("2026-03-05"))
	if err != nil {
		t.Fatalf("CountSince failed: %v", err)
	}
	// Boundary is inclusive
	if count != 2 {
		t.Errorf("Expected 2 events since 2026-03-05, got %d", count)
	}
}

func TestWhaleEventStore_GetByDateRange(t *testing.T) {
	store := NewWhaleEventStore()
	ctx := context.Background()

	_ = store.Insert(ctx, newEvent("TSLA", "2026-03-02"))
	_ = store.Insert(ctx, newEvent("AAPL", "2026-03-03"))
	_ = store.Insert(ctx, newEvent("NVDA", "2026-03-03"))
	_ = store.Insert(ctx, newEvent("META", "2026-03-04"))

	events, err := store.GetByDateRange(ctx, day("2026-03-03"), day("2026-03-04"))
	if err != nil {
		t.Fatalf("GetByDateRange failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	if events[0].Symbol != "AAPL" || events[1].Symbol != "NVDA" || events[2].Symbol != "META" {
		t.Errorf("Unexpected order: %s, %s, %s", events[0].Symbol, events[1].Symbol, events[2].Symbol)
	}
}

func TestWhaleEventStore_ConcurrentInsertSameKey(t *testing.T) {
	store := NewWhaleEventStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Insert(ctx, newEvent("PLTR", "2026-03-10")); err == nil {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if inserted != 1 {
		t.Errorf("Expected exactly one successful insert, got %d", inserted)
	}
	if store.Len() != 1 {
		t.Errorf("Expected 1 stored event, got %d", store.Len())
	}
}
