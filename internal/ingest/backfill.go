package ingest

import (
	"context"
	"fmt"

	"whale-activity-lab/internal/domain"
	"whale-activity-lab/internal/exchange"
	"whale-activity-lab/internal/storage"
)

// backfillPageLimit is the kline page size requested per REST call.
const backfillPageLimit = 1000

// Backfill fills the price-tick store from historical klines so an
// analysis can run before the live collector has accumulated enough data.
// Each kline contributes one tick at its close. Returns the number of
// ticks written.
func Backfill(ctx context.Context, rest exchange.RESTClient, tickStore storage.PriceTickStore, symbol, interval string, startMs, endMs int64) (int, error) {
	total := 0
	cursor := startMs

	for cursor <= endMs {
		klines, err := rest.GetKlines(ctx, symbol, interval, cursor, endMs, backfillPageLimit)
		if err != nil {
			return total, fmt.Errorf("fetch klines from %d: %w", cursor, err)
		}
		if len(klines) == 0 {
			break
		}

		ticks := make([]domain.PricePoint, 0, len(klines))
		for _, k := range klines {
			ticks = append(ticks, domain.PricePoint{
				Symbol:      symbol,
				TimestampMs: k.CloseTimeMs,
				MidPrice:    k.Close,
			})
		}
		if err := tickStore.InsertBulk(ctx, ticks); err != nil {
			return total, fmt.Errorf("insert %d ticks: %w", len(ticks), err)
		}
		total += len(ticks)

		next := klines[len(klines)-1].CloseTimeMs + 1
		if next <= cursor {
			break // server returned no forward progress
		}
		cursor = next
	}

	return total, nil
}
