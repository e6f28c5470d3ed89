package memory

import (
	"context"
	"sort"
	"sync"

	"whale-activity-lab/internal/domain"
	"whale-activity-lab/internal/storage"
)

// AnalysisStore is an in-memory implementation of storage.AnalysisStore.
type AnalysisStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Analysis // keyed by id
}

// NewAnalysisStore creates a new in-memory analysis store.
func NewAnalysisStore() *AnalysisStore {
	return &AnalysisStore{
		data: make(map[string]*domain.Analysis),
	}
}

var _ storage.AnalysisStore = (*AnalysisStore)(nil)

// Insert adds a new analysis. Returns ErrDuplicateKey if the id exists.
func (s *AnalysisStore) Insert(_ context.Context, a *domain.Analysis) error {
	if a == nil || a.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *a
	s.data[a.ID] = &copy
	return nil
}

// GetByID retrieves an analysis by id. Returns ErrNotFound if not exists.
func (s *AnalysisStore) GetByID(_ context.Context, id string) (*domain.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *a
	return &copy, nil
}

// List returns metadata for all analyses, newest first.
func (s *AnalysisStore) List(_ context.Context) ([]domain.AnalysisInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]domain.AnalysisInfo, 0, len(s.data))
	for _, a := range s.data {
		infos = append(infos, domain.AnalysisInfo{
			ID:        a.ID,
			Symbol:    a.Symbol,
			FromTime:  a.FromTimeMs,
			ToTime:    a.ToTimeMs,
			CreatedAt: a.CreatedAt,
			Intervals: len(a.Intervals),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt != infos[j].CreatedAt {
			return infos[i].CreatedAt > infos[j].CreatedAt
		}
		return infos[i].ID < infos[j].ID
	})
	return infos, nil
}

// Delete removes an analysis by id. Returns ErrNotFound if not exists.
func (s *AnalysisStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.data, id)
	return nil
}
