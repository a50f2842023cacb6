package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"whale-tracker/internal/domain"
	"whale-tracker/internal/storage"
)

// WhaleEventStore is an in-memory implementation of storage.WhaleEventStore.
type WhaleEventStore struct {
	mu    sync.RWMutex
	data  map[domain.EventKey]*domain.WhaleEvent
	clock func() time.Time
}

// NewWhaleEventStore creates a new in-memory whale event store.
func NewWhaleEventStore() *WhaleEventStore {
	return &WhaleEventStore{
		data:  make(map[domain.EventKey]*domain.WhaleEvent),
		clock: time.Now,
	}
}

// Insert adds a new event. Returns ErrDuplicateKey if (symbol, trade_date) exists.
func (s *WhaleEventStore) Insert(_ context.Context, e *domain.WhaleEvent) error {
	if e == nil || e.Symbol == "" || e.TradeDate.IsZero() {
		return storage.ErrInvalidInput
	}

	key := e.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	eventCopy := *e
	eventCopy.TradeDate = domain.Date(e.TradeDate)
	if eventCopy.CreatedAt.IsZero() {
		eventCopy.CreatedAt = s.clock()
	}
	s.data[key] = &eventCopy
	return nil
}

// Get retrieves the event for (symbol, tradeDate). Returns ErrNotFound if not exists.
func (s *WhaleEventStore) Get(_ context.Context, symbol string, tradeDate time.Time) (*domain.WhaleEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[domain.EventKey{Symbol: symbol, TradeDate: tradeDate.Format(domain.DateLayout)}]
	if !exists {
		return nil, storage.ErrNotFound
	}

	eventCopy := *e
	return &eventCopy, nil
}

// GetBySymbol retrieves all events for a symbol, ordered by trade_date ASC.
func (s *WhaleEventStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.WhaleEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.WhaleEvent
	for _, e := range s.data {
		if e.Symbol == symbol {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sortEvents(result)
	return result, nil
}

// GetByDateRange retrieves events with trade_date within [start, end] (inclusive).
func (s *WhaleEventStore) GetByDateRange(_ context.Context, start, end time.Time) ([]*domain.WhaleEvent, error) {
	start, end = domain.Date(start), domain.Date(end)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.WhaleEvent
	for _, e := range s.data {
		if !e.TradeDate.Before(start) && !e.TradeDate.After(end) {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sortEvents(result)
	return result, nil
}

// CountSince counts events for a symbol with trade_date >= since.
func (s *WhaleEventStore) CountSince(_ context.Context, symbol string, since time.Time) (int, error) {
	since = domain.Date(since)

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.data {
		if e.Symbol == symbol && !e.TradeDate.Before(since) {
			count++
		}
	}
	return count, nil
}

// Len returns the number of stored events.
func (s *WhaleEventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// sortEvents orders by trade_date ASC, symbol ASC.
func sortEvents(events []*domain.WhaleEvent) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].TradeDate.Equal(events[j].TradeDate) {
			return events[i].TradeDate.Before(events[j].TradeDate)
		}
		return events[i].Symbol < events[j].Symbol
	})
}

// Verify interface compliance at compile time.
var _ storage.WhaleEventStore = (*WhaleEventStore)(nil)
