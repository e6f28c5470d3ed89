package ingest

import (
	"context"
	"testing"

	"whale-activity-lab/internal/exchange"
	"whale-activity-lab/internal/storage/memory"
)

// fakeREST serves klines in pages keyed by start time.
type fakeREST struct {
	pages map[int64][]exchange.Kline
	calls int
}

func (f *fakeREST) GetKlines(ctx context.Context, symbol, interval string, startMs, endMs int64, limit int) ([]exchange.Kline, error) {
	f.calls++
	return f.pages[startMs], nil
}

func TestBackfill_Paginates(t *testing.T) {
	rest := &fakeREST{
		pages: map[int64][]exchange.Kline{
			0: {
				{OpenTimeMs: 0, Close: 100, CloseTimeMs: 999},
				{OpenTimeMs: 1000, Close: 101, CloseTimeMs: 1999},
			},
			2000: {
				{OpenTimeMs: 2000, Close: 102, CloseTimeMs: 2999},
			},
			3000: nil, // no more data
		},
	}
	tickStore := memory.NewPriceTickStore()

	n, err := Backfill(context.Background(), rest, tickStore, "BTCUSDT", "1s", 0, 10000)
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if n != 3 {
		t.Errorf("wrote %d ticks, want 3", n)
	}
	if rest.calls != 3 {
		t.Errorf("made %d REST calls, want 3", rest.calls)
	}

	ticks, err := tickStore.GetByTimeRange(context.Background(), "BTCUSDT", 0, 10000)
	if err != nil {
		t.Fatalf("GetByTimeRange: %v", err)
	}
	if len(ticks) != 3 {
		t.Fatalf("got %d ticks, want 3", len(ticks))
	}
	if ticks[0].TimestampMs != 999 || ticks[0].MidPrice != 100 {
		t.Errorf("first tick = %+v", ticks[0])
	}
	if ticks[2].TimestampMs != 2999 || ticks[2].MidPrice != 102 {
		t.Errorf("last tick = %+v", ticks[2])
	}
}

func TestBackfill_EmptyRange(t *testing.T) {
	rest := &fakeREST{pages: map[int64][]exchange.Kline{}}
	tickStore := memory.NewPriceTickStore()

	n, err := Backfill(context.Background(), rest, tickStore, "BTCUSDT", "1s", 5000, 6000)
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if n != 0 {
		t.Errorf("wrote %d ticks, want 0", n)
	}
}
