package clickhouse

import (
	"context"
	"fmt"

	"whale-activity-lab/internal/domain"
	"whale-activity-lab/internal/storage"
)

// PriceTickStore implements storage.PriceTickStore using ClickHouse.
type PriceTickStore struct {
	conn *Conn
}

// NewPriceTickStore creates a new PriceTickStore.
func NewPriceTickStore(conn *Conn) *PriceTickStore {
	return &PriceTickStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceTickStore = (*PriceTickStore)(nil)

// chRows abstracts driver rows for the scan helpers.
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// InsertBulk adds multiple points using a prepared batch.
func (s *PriceTickStore) InsertBulk(ctx context.Context, points []domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	for _, p := range points {
		if p.Symbol == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_ticks (symbol, timestamp_ms, mid_price)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err := batch.Append(p.Symbol, uint64(p.TimestampMs), p.MidPrice); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves points for a symbol within [start, end] (inclusive),
// ordered by timestamp ASC.
func (s *PriceTickStore) GetByTimeRange(ctx context.Context, symbol string, startMs, endMs int64) ([]domain.PricePoint, error) {
	if symbol == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT symbol, timestamp_ms, mid_price
		FROM price_ticks
		WHERE symbol = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, uint64(startMs), uint64(endMs))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanPriceTicks(rows)
}

// GetSince retrieves points for a symbol with timestamp strictly greater than
// sinceMs, ordered by timestamp ASC.
func (s *PriceTickStore) GetSince(ctx context.Context, symbol string, sinceMs int64) ([]domain.PricePoint, error) {
	if symbol == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT symbol, timestamp_ms, mid_price
		FROM price_ticks
		WHERE symbol = ? AND timestamp_ms > ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, uint64(sinceMs))
	if err != nil {
		return nil, fmt.Errorf("query since: %w", err)
	}
	defer rows.Close()

	return scanPriceTicks(rows)
}

// scanPriceTicks scans multiple rows.
func scanPriceTicks(rows chRows) ([]domain.PricePoint, error) {
	var points []domain.PricePoint

	for rows.Next() {
		var p domain.PricePoint
		var timestampMs uint64

		if err := rows.Scan(&p.Symbol, &timestampMs, &p.MidPrice); err != nil {
			return nil, fmt.Errorf("scan price tick row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price tick rows: %w", err)
	}

	return points, nil
}
