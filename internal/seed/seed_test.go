package seed

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whale-tracker/internal/scoring"
	"whale-tracker/internal/storage/memory"
)

var end = time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC)

func TestGenerate_Ranges(t *testing.T) {
	events := Generate(rand.New(rand.NewSource(1)), Options{End: end})
	require.NotEmpty(t, events)

	start := end.AddDate(0, 0, -DefaultDays)
	for _, e := range events {
		assert.Contains(t, MockSymbols, e.Symbol)
		assert.False(t, e.TradeDate.Before(start))
		assert.False(t, e.TradeDate.After(end))
		assert.Equal(t, scoring.Round2(e.ZScore), e.ZScore)
		assert.Equal(t, scoring.Round2(e.RelativeVolume), e.RelativeVolume)
		assert.GreaterOrEqual(t, e.ZScore, minZScore)
		assert.LessOrEqual(t, e.ZScore, maxZScore)
		assert.GreaterOrEqual(t, e.RelativeVolume, minRelVol)
		assert.LessOrEqual(t, e.RelativeVolume, maxRelVol)
		assert.GreaterOrEqual(t, e.Volume, int64(minVolume))
		assert.LessOrEqual(t, e.Volume, int64(maxVolume))
		assert.True(t, e.Price.Equal(e.Price.Round(2)))
		assert.True(t, e.Price.GreaterThanOrEqual(decimal.NewFromInt(minPrice)))
	}

	// 366 days * 10 symbols * 5% is about 183.
	assert.InDelta(t, 183, len(events), 60)
}

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(rand.New(rand.NewSource(7)), Options{End: end, Days: 30})
	b := Generate(rand.New(rand.NewSource(7)), Options{End: end, Days: 30})

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Key(), b[i].Key())
		assert.Equal(t, a[i].ZScore, b[i].ZScore)
	}
}

func TestGenerate_AlwaysFires(t *testing.T) {
	events := Generate(rand.New(rand.NewSource(1)), Options{
		Symbols:     []string{"TSLA", "AMD"},
		End:         end,
		Days:        2,
		Probability: 1,
	})

	require.Len(t, events, 6)
	assert.Equal(t, "TSLA", events[0].Symbol)
	assert.Equal(t, end.AddDate(0, 0, -2), events[0].TradeDate)
	assert.Equal(t, "AMD", events[5].Symbol)
	assert.Equal(t, end, events[5].TradeDate)
}

func TestInsert_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewWhaleEventStore()
	events := Generate(rand.New(rand.NewSource(3)), Options{End: end, Days: 60, Probability: 0.5})

	inserted, skipped, err := Insert(ctx, store, events)
	require.NoError(t, err)
	assert.Equal(t, len(events), inserted)
	assert.Zero(t, skipped)

	inserted, skipped, err = Insert(ctx, store, events)
	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.Equal(t, len(events), skipped)
	assert.Equal(t, len(events), store.Len())
}
