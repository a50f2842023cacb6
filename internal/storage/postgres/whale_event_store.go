package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"whale-tracker/internal/domain"
	"whale-tracker/internal/storage"
)

// WhaleEventStore implements storage.WhaleEventStore using PostgreSQL.
type WhaleEventStore struct {
	pool *Pool
}

// NewWhaleEventStore creates a new WhaleEventStore.
func NewWhaleEventStore(pool *Pool) *WhaleEventStore {
	return &WhaleEventStore{pool: pool}
}

const whaleEventColumns = `symbol, trade_date, price::text, volume, z_score, rel_volume, detected_at, created_at`

// Insert adds a new event. Returns ErrDuplicateKey if (symbol, trade_date) exists.
// The conflict check and the write happen in one statement.
func (s *WhaleEventStore) Insert(ctx context.Context, e *domain.WhaleEvent) error {
	if e == nil || e.Symbol == "" || e.TradeDate.IsZero() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO whale_events (symbol, trade_date, price, volume, z_score, rel_volume, detected_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)
		ON CONFLICT (symbol, trade_date) DO NOTHING
	`

	tag, err := s.pool.Exec(ctx, query,
		e.Symbol,
		domain.Date(e.TradeDate),
		e.Price.String(),
		e.Volume,
		e.ZScore,
		e.RelativeVolume,
		e.DetectedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert whale event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrDuplicateKey
	}

	return nil
}

// Get retrieves the event for (symbol, tradeDate). Returns ErrNotFound if not exists.
func (s *WhaleEventStore) Get(ctx context.Context, symbol string, tradeDate time.Time) (*domain.WhaleEvent, error) {
	query := `SELECT ` + whaleEventColumns + ` FROM whale_events WHERE symbol = $1 AND trade_date = $2`

	e, err := scanWhaleEvent(s.pool.QueryRow(ctx, query, symbol, domain.Date(tradeDate)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get whale event: %w", err)
	}
	return e, nil
}

// GetBySymbol retrieves all events for a symbol, ordered by trade_date ASC.
func (s *WhaleEventStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.WhaleEvent, error) {
	query := `SELECT ` + whaleEventColumns + ` FROM whale_events WHERE symbol = $1 ORDER BY trade_date ASC`
	return s.queryEvents(ctx, query, symbol)
}

// GetByDateRange retrieves events with trade_date within [start, end] (inclusive).
func (s *WhaleEventStore) GetByDateRange(ctx context.Context, start, end time.Time) ([]*domain.WhaleEvent, error) {
	query := `
		SELECT ` + whaleEventColumns + `
		FROM whale_events
		WHERE trade_date >= $1 AND trade_date <= $2
		ORDER BY trade_date ASC, symbol ASC
	`
	return s.queryEvents(ctx, query, domain.Date(start), domain.Date(end))
}

// CountSince counts events for a symbol with trade_date >= since.
func (s *WhaleEventStore) CountSince(ctx context.Context, symbol string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM whale_events WHERE symbol = $1 AND trade_date >= $2`

	var count int
	if err := s.pool.QueryRow(ctx, query, symbol, domain.Date(since)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count whale events: %w", err)
	}
	return count, nil
}

func (s *WhaleEventStore) queryEvents(ctx context.Context, query string, args ...any) ([]*domain.WhaleEvent, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query whale events: %w", err)
	}
	defer rows.Close()

	var result []*domain.WhaleEvent
	for rows.Next() {
		e, err := scanWhaleEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan whale event: %w", err)
		}
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate whale events: %w", err)
	}

	return result, nil
}

func scanWhaleEvent(row pgx.Row) (*domain.WhaleEvent, error) {
	var (
		e     domain.WhaleEvent
		price string
	)
	err := row.Scan(
		&e.Symbol,
		&e.TradeDate,
		&price,
		&e.Volume,
		&e.ZScore,
		&e.RelativeVolume,
		&e.DetectedAt,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	e.TradeDate = domain.Date(e.TradeDate)
	return &e, nil
}

// Verify interface compliance at compile time.
var _ storage.WhaleEventStore = (*WhaleEventStore)(nil)
