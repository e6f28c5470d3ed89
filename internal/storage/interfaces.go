package storage

import (
	"context"

	"whale-activity-lab/internal/domain"
)

// WhaleEventStore provides access to whale_events storage.
// Results are always ordered by timestamp ASC.
type WhaleEventStore interface {
	// InsertBulk adds a batch of events.
	InsertBulk(ctx context.Context, events []domain.WhaleEvent) error

	// GetByTimeRange retrieves events for a symbol within [start, end]
	// (inclusive) with usd_value >= minUSD.
	GetByTimeRange(ctx context.Context, symbol string, start, end int64, minUSD float64) ([]domain.WhaleEvent, error)

	// GetSince retrieves events for a symbol with timestamp > sinceMs and
	// usd_value >= minUSD. Used by incremental live queries.
	GetSince(ctx context.Context, symbol string, sinceMs int64, minUSD float64) ([]domain.WhaleEvent, error)
}

// PriceTickStore provides access to price_ticks storage.
// Results are always ordered by timestamp ASC.
type PriceTickStore interface {
	// InsertBulk adds a batch of price points.
	InsertBulk(ctx context.Context, points []domain.PricePoint) error

	// GetByTimeRange retrieves points for a symbol within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]domain.PricePoint, error)

	// GetSince retrieves points for a symbol with timestamp > sinceMs.
	GetSince(ctx context.Context, symbol string, sinceMs int64) ([]domain.PricePoint, error)
}

// AnalysisStore provides access to completed analysis runs.
type AnalysisStore interface {
	// Insert adds a new analysis. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, a *domain.Analysis) error

	// GetByID retrieves an analysis by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Analysis, error)

	// List returns metadata for all analyses, newest first.
	List(ctx context.Context) ([]domain.AnalysisInfo, error)

	// Delete removes an analysis by id. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, id string) error
}
