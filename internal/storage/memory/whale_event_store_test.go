package memory

import (
	"context"
	"errors"
	"testing"

	"whale-activity-lab/internal/domain"
	"whale-activity-lab/internal/storage"
)

func TestWhaleEventStore_InsertAndGet(t *testing.T) {
	store := NewWhaleEventStore()
	ctx := context.Background()

	events := []domain.WhaleEvent{
		{Symbol: "BTCUSDT", TimestampMs: 3000, EventType: "market_buy", USDValue: 5000},
		{Symbol: "BTCUSDT", TimestampMs: 1000, EventType: "new_bid", Side: "bid", USDValue: 2000},
		{Symbol: "ETHUSDT", TimestampMs: 2000, EventType: "market_sell", USDValue: 9000},
	}

	if err := store.InsertBulk(ctx, events); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByTimeRange(ctx, "BTCUSDT", 0, 10_000, 0)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("expected 2 BTCUSDT events, got %d", len(result))
	}
	if result[0].TimestampMs != 1000 || result[1].TimestampMs != 3000 {
		t.Errorf("events not ordered by timestamp: %v", result)
	}
}

func TestWhaleEventStore_MinUSDFilter(t *testing.T) {
	store := NewWhaleEventStore()
	ctx := context.Background()

	store.InsertBulk(ctx, []domain.WhaleEvent{
		{Symbol: "BTCUSDT", TimestampMs: 1000, USDValue: 500},
		{Symbol: "BTCUSDT", TimestampMs: 2000, USDValue: 1500},
	})

	result, _ := store.GetByTimeRange(ctx, "BTCUSDT", 0, 10_000, 1000)
	if len(result) != 1 || result[0].USDValue != 1500 {
		t.Errorf("min_usd filter failed: %v", result)
	}
}

func TestWhaleEventStore_GetSinceIsExclusive(t *testing.T) {
	store := NewWhaleEventStore()
	ctx := context.Background()

	store.InsertBulk(ctx, []domain.WhaleEvent{
		{Symbol: "BTCUSDT", TimestampMs: 1000, USDValue: 100},
		{Symbol: "BTCUSDT", TimestampMs: 2000, USDValue: 100},
	})

	// Incremental polls pass the last seen timestamp back; the event at
	// that exact timestamp must not be returned again.
	result, _ := store.GetSince(ctx, "BTCUSDT", 1000, 0)
	if len(result) != 1 || result[0].TimestampMs != 2000 {
		t.Errorf("GetSince(1000) = %v, want only the 2000 event", result)
	}
}

func TestWhaleEventStore_RejectsMissingSymbol(t *testing.T) {
	store := NewWhaleEventStore()
	err := store.InsertBulk(context.Background(), []domain.WhaleEvent{{TimestampMs: 1}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
