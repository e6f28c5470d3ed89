package memory

import (
	"context"
	"sort"
	"sync"

	"whale-activity-lab/internal/domain"
	"whale-activity-lab/internal/storage"
)

// WhaleEventStore is an in-memory implementation of storage.WhaleEventStore.
type WhaleEventStore struct {
	mu   sync.RWMutex
	data map[string][]domain.WhaleEvent // keyed by symbol
}

// NewWhaleEventStore creates a new in-memory whale event store.
func NewWhaleEventStore() *WhaleEventStore {
	return &WhaleEventStore{
		data: make(map[string][]domain.WhaleEvent),
	}
}

var _ storage.WhaleEventStore = (*WhaleEventStore)(nil)

// InsertBulk adds a batch of events.
func (s *WhaleEventStore) InsertBulk(_ context.Context, events []domain.WhaleEvent) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if e.Symbol == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		s.data[e.Symbol] = append(s.data[e.Symbol], e)
	}
	return nil
}

// GetByTimeRange retrieves events within [start, end] (inclusive) with
// usd_value >= minUSD, ordered by timestamp ASC.
func (s *WhaleEventStore) GetByTimeRange(_ context.Context, symbol string, start, end int64, minUSD float64) ([]domain.WhaleEvent, error) {
	return s.filter(symbol, func(e domain.WhaleEvent) bool {
		return e.TimestampMs >= start && e.TimestampMs <= end && e.USDValue >= minUSD
	}), nil
}

// GetSince retrieves events with timestamp > sinceMs and usd_value >= minUSD.
func (s *WhaleEventStore) GetSince(_ context.Context, symbol string, sinceMs int64, minUSD float64) ([]domain.WhaleEvent, error) {
	return s.filter(symbol, func(e domain.WhaleEvent) bool {
		return e.TimestampMs > sinceMs && e.USDValue >= minUSD
	}), nil
}

func (s *WhaleEventStore) filter(symbol string, keep func(domain.WhaleEvent) bool) []domain.WhaleEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.WhaleEvent
	for _, e := range s.data[symbol] {
		if keep(e) {
			result = append(result, e)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result
}
