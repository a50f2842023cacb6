package storage

import (
	"context"
	"time"

	"whale-tracker/internal/domain"
)

// WhaleEventStore provides access to whale_events storage.
// The store is append-only: events are never updated or deleted.
type WhaleEventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if (symbol, trade_date) exists.
	// Implementations must decide uniqueness atomically so concurrent writers are safe.
	Insert(ctx context.Context, e *domain.WhaleEvent) error

	// Get retrieves the event for (symbol, tradeDate). Returns ErrNotFound if not exists.
	Get(ctx context.Context, symbol string, tradeDate time.Time) (*domain.WhaleEvent, error)

	// GetBySymbol retrieves all events for a symbol, ordered by trade_date ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.WhaleEvent, error)

	// GetByDateRange retrieves events with trade_date within [start, end] (inclusive),
	// ordered by trade_date ASC, symbol ASC.
	GetByDateRange(ctx context.Context, start, end time.Time) ([]*domain.WhaleEvent, error)

	// CountSince counts events for a symbol with trade_date >= since.
	CountSince(ctx context.Context, symbol string, since time.Time) (int, error)
}

// DailyBarStore archives end-of-day bars so repeated baselines do not refetch history.
type DailyBarStore interface {
	// InsertBulk archives bars for a symbol. Bars whose (symbol, date) is already
	// archived are skipped, so re-archiving an overlapping window is safe.
	InsertBulk(ctx context.Context, symbol string, bars []domain.DailyBar) error

	// GetLatest retrieves the most recent n bars for a symbol, ordered by date ASC.
	GetLatest(ctx context.Context, symbol string, n int) ([]domain.DailyBar, error)
}
