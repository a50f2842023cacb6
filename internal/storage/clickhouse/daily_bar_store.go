package clickhouse

import (
	"context"
	"fmt"
	"time"

	"whale-tracker/internal/domain"
	"whale-tracker/internal/storage"
)

// DailyBarStore implements storage.DailyBarStore using ClickHouse.
type DailyBarStore struct {
	conn *Conn
}

// NewDailyBarStore creates a new DailyBarStore.
func NewDailyBarStore(conn *Conn) *DailyBarStore {
	return &DailyBarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DailyBarStore = (*DailyBarStore)(nil)

// InsertBulk archives bars for a symbol. Dates already archived are skipped.
func (s *DailyBarStore) InsertBulk(ctx context.Context, symbol string, bars []domain.DailyBar) error {
	if symbol == "" {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	existing, err := s.archivedDates(ctx, symbol)
	if err != nil {
		return fmt.Errorf("load archived dates: %w", err)
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO daily_bars (symbol, date, open, close, volume)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	appended := 0
	for _, b := range bars {
		key := b.Date.Format(domain.DateLayout)
		if _, ok := existing[key]; ok {
			continue
		}
		existing[key] = struct{}{}

		if b.Volume < 0 {
			return fmt.Errorf("bar %s: negative volume: %w", key, storage.ErrInvalidInput)
		}
		if err := batch.Append(symbol, domain.Date(b.Date), b.Open, b.Close, uint64(b.Volume)); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
		appended++
	}

	if appended == 0 {
		return batch.Abort()
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetLatest retrieves the most recent n bars for a symbol, ordered by date ASC.
func (s *DailyBarStore) GetLatest(ctx context.Context, symbol string, n int) ([]domain.DailyBar, error) {
	query := `
		SELECT date, open, close, volume
		FROM daily_bars FINAL
		WHERE symbol = ?
		ORDER BY date DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, symbol, uint64(n))
	if err != nil {
		return nil, fmt.Errorf("query latest bars: %w", err)
	}
	defer rows.Close()

	var result []domain.DailyBar
	for rows.Next() {
		var (
			date   time.Time
			open   float64
			close  float64
			volume uint64
		)
		if err := rows.Scan(&date, &open, &close, &volume); err != nil {
			return nil, fmt.Errorf("scan daily bar: %w", err)
		}
		result = append(result, domain.DailyBar{
			Date:   domain.Date(date),
			Open:   open,
			Close:  close,
			Volume: int64(volume),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily bars: %w", err)
	}

	// Reverse to ascending order.
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

func (s *DailyBarStore) archivedDates(ctx context.Context, symbol string) (map[string]struct{}, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT date FROM daily_bars WHERE symbol = ?`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dates := make(map[string]struct{})
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates[d.Format(domain.DateLayout)] = struct{}{}
	}
	return dates, rows.Err()
}
