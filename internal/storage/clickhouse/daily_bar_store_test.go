package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whale-tracker/internal/domain"
)

func bar(date string, volume int64) domain.DailyBar {
	d, _ := domain.ParseDate(date)
	return domain.DailyBar{Date: d, Open: 10, Close: 11, Volume: volume}
}

func TestDailyBarStore_InsertBulkAndGetLatest(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDailyBarStore(conn)
	ctx := context.Background()

	assert.NoError(t, store.InsertBulk(ctx, "TSLA", nil))

	err := store.InsertBulk(ctx, "TSLA", []domain.DailyBar{
		bar("2026-03-02", 100),
		bar("2026-03-03", 200),
		bar("2026-03-04", 300),
	})
	require.NoError(t, err)

	got, err := store.GetLatest(ctx, "TSLA", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2026-03-03", got[0].Date.Format(domain.DateLayout))
	assert.Equal(t, int64(300), got[1].Volume)
	assert.Equal(t, time.UTC, got[1].Date.Location())
}

func TestDailyBarStore_OverlapIsSkipped(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDailyBarStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, "NVDA", []domain.DailyBar{bar("2026-03-02", 100)}))
	require.NoError(t, store.InsertBulk(ctx, "NVDA", []domain.DailyBar{
		bar("2026-03-02", 999),
		bar("2026-03-03", 200),
	}))

	got, err := store.GetLatest(ctx, "NVDA", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(100), got[0].Volume)
}
