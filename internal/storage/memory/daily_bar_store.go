package memory

import (
	"context"
	"sort"
	"sync"

	"whale-tracker/internal/domain"
	"whale-tracker/internal/storage"
)

// DailyBarStore is an in-memory implementation of storage.DailyBarStore.
type DailyBarStore struct {
	mu   sync.RWMutex
	data map[string]map[string]domain.DailyBar // symbol -> date -> bar
}

// NewDailyBarStore creates a new in-memory daily bar store.
func NewDailyBarStore() *DailyBarStore {
	return &DailyBarStore{
		data: make(map[string]map[string]domain.DailyBar),
	}
}

// InsertBulk archives bars for a symbol, skipping dates already archived.
func (s *DailyBarStore) InsertBulk(_ context.Context, symbol string, bars []domain.DailyBar) error {
	if symbol == "" {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bySymbol, ok := s.data[symbol]
	if !ok {
		bySymbol = make(map[string]domain.DailyBar)
		s.data[symbol] = bySymbol
	}
	for _, b := range bars {
		key := b.Date.Format(domain.DateLayout)
		if _, exists := bySymbol[key]; exists {
			continue
		}
		bySymbol[key] = b
	}
	return nil
}

// GetLatest retrieves the most recent n bars for a symbol, ordered by date ASC.
func (s *DailyBarStore) GetLatest(_ context.Context, symbol string, n int) ([]domain.DailyBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bySymbol := s.data[symbol]
	result := make([]domain.DailyBar, 0, len(bySymbol))
	for _, b := range bySymbol {
		result = append(result, b)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	if n > 0 && len(result) > n {
		result = result[len(result)-n:]
	}
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.DailyBarStore = (*DailyBarStore)(nil)
