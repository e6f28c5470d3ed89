package clickhouse

import (
	"context"
	"fmt"

	"whale-activity-lab/internal/domain"
	"whale-activity-lab/internal/storage"
)

// WhaleEventStore implements storage.WhaleEventStore using ClickHouse.
// It handles the high-volume append-only feed of detected whale events.
type WhaleEventStore struct {
	conn *Conn
}

// NewWhaleEventStore creates a new WhaleEventStore.
func NewWhaleEventStore(conn *Conn) *WhaleEventStore {
	return &WhaleEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.WhaleEventStore = (*WhaleEventStore)(nil)

// InsertBulk adds multiple events using a prepared batch.
func (s *WhaleEventStore) InsertBulk(ctx context.Context, events []domain.WhaleEvent) error {
	if len(events) == 0 {
		return nil
	}

	for _, e := range events {
		if e.Symbol == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO whale_events (
			symbol, timestamp_ms, event_type, side,
			price, volume, usd_value, distance_from_mid_pct
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.Symbol, uint64(e.TimestampMs), e.EventType, e.Side,
			e.Price, e.Volume, e.USDValue, e.DistanceFromMidPct,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves events for a symbol within [start, end] (inclusive)
// with usd_value >= minUSD, ordered by timestamp ASC.
func (s *WhaleEventStore) GetByTimeRange(ctx context.Context, symbol string, startMs, endMs int64, minUSD float64) ([]domain.WhaleEvent, error) {
	if symbol == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT symbol, timestamp_ms, event_type, side,
		       price, volume, usd_value, distance_from_mid_pct
		FROM whale_events
		WHERE symbol = ? AND timestamp_ms >= ? AND timestamp_ms <= ? AND usd_value >= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, uint64(startMs), uint64(endMs), minUSD)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanWhaleEvents(rows)
}

// GetSince retrieves events for a symbol with timestamp strictly greater than
// sinceMs, ordered by timestamp ASC. Used by the live polling endpoints.
func (s *WhaleEventStore) GetSince(ctx context.Context, symbol string, sinceMs int64, minUSD float64) ([]domain.WhaleEvent, error) {
	if symbol == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT symbol, timestamp_ms, event_type, side,
		       price, volume, usd_value, distance_from_mid_pct
		FROM whale_events
		WHERE symbol = ? AND timestamp_ms > ? AND usd_value >= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, uint64(sinceMs), minUSD)
	if err != nil {
		return nil, fmt.Errorf("query since: %w", err)
	}
	defer rows.Close()

	return scanWhaleEvents(rows)
}

// scanWhaleEvents scans multiple rows.
func scanWhaleEvents(rows chRows) ([]domain.WhaleEvent, error) {
	var events []domain.WhaleEvent

	for rows.Next() {
		var e domain.WhaleEvent
		var timestampMs uint64

		err := rows.Scan(
			&e.Symbol, &timestampMs, &e.EventType, &e.Side,
			&e.Price, &e.Volume, &e.USDValue, &e.DistanceFromMidPct,
		)
		if err != nil {
			return nil, fmt.Errorf("scan whale event row: %w", err)
		}

		e.TimestampMs = int64(timestampMs)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate whale event rows: %w", err)
	}

	return events, nil
}
