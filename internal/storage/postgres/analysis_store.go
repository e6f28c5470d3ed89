package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"whale-activity-lab/internal/domain"
	"whale-activity-lab/internal/storage"
)

// AnalysisStore implements storage.AnalysisStore using PostgreSQL.
// Interval payloads are stored as JSONB next to the run metadata: the
// API always serves a run whole, so there is nothing to gain from
// normalizing intervals into their own table.
type AnalysisStore struct {
	pool *Pool
}

// NewAnalysisStore creates a new AnalysisStore.
func NewAnalysisStore(pool *Pool) *AnalysisStore {
	return &AnalysisStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AnalysisStore = (*AnalysisStore)(nil)

// Insert adds a new analysis. Returns ErrDuplicateKey if the id exists.
func (s *AnalysisStore) Insert(ctx context.Context, a *domain.Analysis) error {
	if a == nil || a.ID == "" {
		return storage.ErrInvalidInput
	}

	params, err := json.Marshal(a.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	intervals, err := json.Marshal(a.Intervals)
	if err != nil {
		return fmt.Errorf("marshal intervals: %w", err)
	}

	query := `
		INSERT INTO analyses (id, symbol, params, from_time, to_time, created_at, intervals)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.pool.Exec(ctx, query,
		a.ID, a.Symbol, params, a.FromTimeMs, a.ToTimeMs, a.CreatedAt, intervals,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// GetByID retrieves an analysis by id. Returns ErrNotFound if not exists.
func (s *AnalysisStore) GetByID(ctx context.Context, id string) (*domain.Analysis, error) {
	query := `
		SELECT id, symbol, params, from_time, to_time, created_at, intervals
		FROM analyses
		WHERE id = $1
	`

	var (
		a         domain.Analysis
		params    []byte
		intervals []byte
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Symbol, &params, &a.FromTimeMs, &a.ToTimeMs, &a.CreatedAt, &intervals,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get analysis by id: %w", err)
	}

	if err := json.Unmarshal(params, &a.Params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	if err := json.Unmarshal(intervals, &a.Intervals); err != nil {
		return nil, fmt.Errorf("unmarshal intervals: %w", err)
	}
	return &a, nil
}

// List returns metadata for all analyses, newest first.
func (s *AnalysisStore) List(ctx context.Context) ([]domain.AnalysisInfo, error) {
	query := `
		SELECT id, symbol, from_time, to_time, created_at, jsonb_array_length(intervals)
		FROM analyses
		ORDER BY created_at DESC, id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var infos []domain.AnalysisInfo
	for rows.Next() {
		var info domain.AnalysisInfo
		if err := rows.Scan(&info.ID, &info.Symbol, &info.FromTime, &info.ToTime, &info.CreatedAt, &info.Intervals); err != nil {
			return nil, fmt.Errorf("scan analysis info: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return infos, nil
}

// Delete removes an analysis by id. Returns ErrNotFound if not exists.
func (s *AnalysisStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM analyses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
