package memory

import (
	"context"
	"sort"
	"sync"

	"whale-activity-lab/internal/domain"
	"whale-activity-lab/internal/storage"
)

// PriceTickStore is an in-memory implementation of storage.PriceTickStore.
type PriceTickStore struct {
	mu   sync.RWMutex
	data map[string][]domain.PricePoint // keyed by symbol
}

// NewPriceTickStore creates a new in-memory price tick store.
func NewPriceTickStore() *PriceTickStore {
	return &PriceTickStore{
		data: make(map[string][]domain.PricePoint),
	}
}

var _ storage.PriceTickStore = (*PriceTickStore)(nil)

// InsertBulk adds a batch of price points.
func (s *PriceTickStore) InsertBulk(_ context.Context, points []domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}
	for _, p := range points {
		if p.Symbol == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		s.data[p.Symbol] = append(s.data[p.Symbol], p)
	}
	return nil
}

// GetByTimeRange retrieves points within [start, end] (inclusive), ordered
// by timestamp ASC.
func (s *PriceTickStore) GetByTimeRange(_ context.Context, symbol string, start, end int64) ([]domain.PricePoint, error) {
	return s.filter(symbol, func(p domain.PricePoint) bool {
		return p.TimestampMs >= start && p.TimestampMs <= end
	}), nil
}

// GetSince retrieves points with timestamp > sinceMs.
func (s *PriceTickStore) GetSince(_ context.Context, symbol string, sinceMs int64) ([]domain.PricePoint, error) {
	return s.filter(symbol, func(p domain.PricePoint) bool {
		return p.TimestampMs > sinceMs
	}), nil
}

func (s *PriceTickStore) filter(symbol string, keep func(domain.PricePoint) bool) []domain.PricePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.PricePoint
	for _, p := range s.data[symbol] {
		if keep(p) {
			result = append(result, p)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result
}
