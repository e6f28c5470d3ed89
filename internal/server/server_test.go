package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"whale-activity-lab/internal/analysis"
	"whale-activity-lab/internal/domain"
	"whale-activity-lab/internal/scale"
	"whale-activity-lab/internal/storage/memory"
)

type fixture struct {
	events   *memory.WhaleEventStore
	ticks    *memory.PriceTickStore
	analyses *memory.AnalysisStore
	srv      *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		events:   memory.NewWhaleEventStore(),
		ticks:    memory.NewPriceTickStore(),
		analyses: memory.NewAnalysisStore(),
	}
	svc := analysis.NewService(f.ticks, f.events, f.analyses)
	s := New(Options{
		EventStore:    f.events,
		TickStore:     f.ticks,
		AnalysisStore: f.analyses,
		Analysis:      svc,
	})
	f.srv = httptest.NewServer(s.Handler())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) get(t *testing.T, path string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestFiles_Empty(t *testing.T) {
	f := newFixture(t)

	var resp FilesResponse
	code := f.get(t, "/api/files", &resp)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, resp.Files)
	require.Empty(t, resp.Files)
}

func TestData_NotFound(t *testing.T) {
	f := newFixture(t)

	var resp errorResponse
	code := f.get(t, "/api/data/no-such-id", &resp)
	require.Equal(t, http.StatusNotFound, code)
	require.Contains(t, resp.Error, "no-such-id")
}

func TestRunAnalysis_EndToEnd(t *testing.T) {
	f := newFixture(t)

	// 120 ticks one second apart ending now, with a +10% step at the
	// 60th tick so the detector finds at least one interval.
	now := time.Now().UnixMilli()
	points := make([]domain.PricePoint, 0, 120)
	for i := 0; i < 120; i++ {
		price := 100.0
		if i >= 60 {
			price = 110.0
		}
		points = append(points, domain.PricePoint{
			Symbol:      "BTCUSDT",
			TimestampMs: now - int64(120-i)*1000,
			MidPrice:    price,
		})
	}
	require.NoError(t, f.ticks.InsertBulk(context.Background(), points))

	body := []byte(`{"symbol":"BTCUSDT","lookback":10,"interval":10,"top":3,"min_change":1.0}`)
	resp, err := http.Post(f.srv.URL+"/api/run-analysis", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var run RunAnalysisResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	require.NotEmpty(t, run.ID)
	require.Equal(t, "BTCUSDT", run.Symbol)
	require.Greater(t, run.Intervals, 0)

	// The run is immediately visible in the files list and by id.
	var files FilesResponse
	require.Equal(t, http.StatusOK, f.get(t, "/api/files", &files))
	require.Len(t, files.Files, 1)
	require.Equal(t, run.ID, files.Files[0].ID)

	var data DataResponse
	require.Equal(t, http.StatusOK, f.get(t, "/api/data/"+run.ID, &data))
	require.Equal(t, run.ID, data.Metadata.ID)
	require.Equal(t, "BTCUSDT", data.Metadata.Symbol)
	require.Equal(t, 10, data.Metadata.Params.LookbackMinutes)
	require.Len(t, data.Intervals, run.Intervals)
	require.Equal(t, 1, data.Intervals[0].Rank)
}

func TestRunAnalysis_InvalidParams(t *testing.T) {
	f := newFixture(t)

	body := []byte(`{"symbol":"","lookback":10,"interval":10,"top":3}`)
	resp, err := http.Post(f.srv.URL+"/api/run-analysis", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var e errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	require.Contains(t, e.Error, "symbol")
	require.NotEmpty(t, e.Hint)
}

func TestRunAnalysis_BadBody(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Post(f.srv.URL+"/api/run-analysis", "application/json", bytes.NewReader([]byte("not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHistoricalPrices_WindowInclusive(t *testing.T) {
	f := newFixture(t)

	// Window centered on 100000 with interval=2 minutes covers
	// [40000, 160000] inclusive on both ends.
	require.NoError(t, f.ticks.InsertBulk(context.Background(), []domain.PricePoint{
		{Symbol: "BTCUSDT", TimestampMs: 39999, MidPrice: 1},
		{Symbol: "BTCUSDT", TimestampMs: 40000, MidPrice: 2},
		{Symbol: "BTCUSDT", TimestampMs: 100000, MidPrice: 3},
		{Symbol: "BTCUSDT", TimestampMs: 160000, MidPrice: 4},
		{Symbol: "BTCUSDT", TimestampMs: 160001, MidPrice: 5},
	}))

	var resp HistoricalPricesResponse
	code := f.get(t, "/api/historical/price-history?symbol=BTCUSDT&timestamp=100000&interval=2", &resp)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, int64(40000), resp.FromTimeMs)
	require.Equal(t, int64(160000), resp.ToTimeMs)
	require.Len(t, resp.PriceHistory, 3)
	require.Equal(t, float64(2), resp.PriceHistory[0].MidPrice)
	require.Equal(t, float64(4), resp.PriceHistory[2].MidPrice)
}

func TestHistoricalPrices_MissingSymbol(t *testing.T) {
	f := newFixture(t)

	var e errorResponse
	code := f.get(t, "/api/historical/price-history?timestamp=100000", &e)
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, e.Error, "symbol")
}

func TestHistoricalEvents_MinUSDFilter(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.events.InsertBulk(context.Background(), []domain.WhaleEvent{
		{Symbol: "BTCUSDT", TimestampMs: 90000, EventType: domain.EventTypeMarketBuy, Side: domain.SideBid, USDValue: 5000},
		{Symbol: "BTCUSDT", TimestampMs: 95000, EventType: domain.EventTypeNewBid, Side: domain.SideBid, USDValue: 50000},
	}))

	var resp HistoricalEventsResponse
	code := f.get(t, "/api/historical/whale-events?symbol=BTCUSDT&timestamp=100000&interval=2&min_usd=10000", &resp)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.WhaleEvents, 1)
	require.Equal(t, float64(50000), resp.WhaleEvents[0].USDValue)
	require.Equal(t, float64(10000), resp.MinUSDValue)
	// A single-event batch gets the base marker size.
	require.Equal(t, scale.DefaultConfig().BaseSize, resp.WhaleEvents[0].MarkerSize)
}

func TestHistoricalStats(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.events.InsertBulk(context.Background(), []domain.WhaleEvent{
		{Symbol: "BTCUSDT", TimestampMs: 90000, EventType: domain.EventTypeMarketBuy, Side: domain.SideBuy, USDValue: 1000},
		{Symbol: "BTCUSDT", TimestampMs: 91000, EventType: domain.EventTypeMarketBuy, Side: domain.SideBuy, USDValue: 3000},
		{Symbol: "BTCUSDT", TimestampMs: 92000, EventType: domain.EventTypeNewBid, Side: domain.SideBid, USDValue: 500},
	}))

	var resp HistoricalStatsResponse
	code := f.get(t, "/api/historical/stats?symbol=BTCUSDT&timestamp=100000&interval=2", &resp)
	require.Equal(t, http.StatusOK, code)

	mb := resp.ByCategory[domain.CategoryMarketBuy]
	require.Equal(t, 2, mb.Count)
	require.Equal(t, float64(4000), mb.Volume)
	require.Equal(t, float64(2000), mb.Avg)

	nb := resp.ByCategory[domain.CategoryNewBid]
	require.Equal(t, 1, nb.Count)
	require.Equal(t, float64(500), nb.Volume)

	require.Equal(t, 3, resp.Total.Count)
	require.Equal(t, float64(4500), resp.Total.Volume)
}

func TestLiveEvents_Incremental(t *testing.T) {
	f := newFixture(t)

	now := time.Now().UnixMilli()
	require.NoError(t, f.events.InsertBulk(context.Background(), []domain.WhaleEvent{
		{Symbol: "BTCUSDT", TimestampMs: now - 3000, EventType: domain.EventTypeMarketBuy, Side: domain.SideBuy, USDValue: 20000},
		{Symbol: "BTCUSDT", TimestampMs: now - 2000, EventType: domain.EventTypeNewAsk, Side: domain.SideAsk, USDValue: 30000},
		{Symbol: "BTCUSDT", TimestampMs: now - 1000, EventType: domain.EventTypeMarketSell, Side: domain.SideSell, USDValue: 40000},
	}))

	// Full window first.
	var full LiveEventsResponse
	code := f.get(t, "/api/live/whale-events?symbol=BTCUSDT&lookback=60", &full)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, full.WhaleEvents, 3)
	require.Equal(t, now-1000, full.LastTimestamp)

	// Marker sizes span the configured band: batch min and max usd values
	// map to the band edges.
	cfg := scale.DefaultConfig()
	require.Equal(t, cfg.MinSize, full.WhaleEvents[0].MarkerSize)
	require.Equal(t, cfg.MaxSize, full.WhaleEvents[2].MarkerSize)

	// Incremental fetch returns only rows strictly newer than last_timestamp.
	var inc LiveEventsResponse
	url := fmt.Sprintf("/api/live/whale-events?symbol=BTCUSDT&last_timestamp=%d", now-2000)
	require.Equal(t, http.StatusOK, f.get(t, url, &inc))
	require.Len(t, inc.WhaleEvents, 1)
	require.Equal(t, now-1000, inc.WhaleEvents[0].TimestampMs)
	require.Equal(t, now-1000, inc.LastTimestamp)

	// Nothing new: last_timestamp is echoed back unchanged.
	var empty LiveEventsResponse
	url = fmt.Sprintf("/api/live/whale-events?symbol=BTCUSDT&last_timestamp=%d", now-1000)
	require.Equal(t, http.StatusOK, f.get(t, url, &empty))
	require.Empty(t, empty.WhaleEvents)
	require.Equal(t, now-1000, empty.LastTimestamp)
}

func TestLivePrices_Incremental(t *testing.T) {
	f := newFixture(t)

	now := time.Now().UnixMilli()
	require.NoError(t, f.ticks.InsertBulk(context.Background(), []domain.PricePoint{
		{Symbol: "BTCUSDT", TimestampMs: now - 2000, MidPrice: 100},
		{Symbol: "BTCUSDT", TimestampMs: now - 1000, MidPrice: 101},
	}))

	var inc LivePricesResponse
	url := fmt.Sprintf("/api/live/price-history?symbol=BTCUSDT&last_timestamp=%d", now-2000)
	require.Equal(t, http.StatusOK, f.get(t, url, &inc))
	require.Len(t, inc.PriceHistory, 1)
	require.Equal(t, float64(101), inc.PriceHistory[0].MidPrice)
	require.Equal(t, now-1000, inc.LastTimestamp)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)

	a := &domain.Analysis{
		ID:        "del-1",
		Symbol:    "BTCUSDT",
		CreatedAt: time.Now().UnixMilli(),
	}
	require.NoError(t, f.analyses.Insert(context.Background(), a))

	req, err := http.NewRequest(http.MethodDelete, f.srv.URL+"/api/delete/del-1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var del DeleteResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&del))
	require.Equal(t, "deleted", del.Status)
	require.Equal(t, "del-1", del.ID)

	// Second delete is a 404.
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestExport(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.ticks.InsertBulk(context.Background(), []domain.PricePoint{
		{Symbol: "BTCUSDT", TimestampMs: 95000, MidPrice: 100},
	}))
	require.NoError(t, f.events.InsertBulk(context.Background(), []domain.WhaleEvent{
		{Symbol: "BTCUSDT", TimestampMs: 96000, EventType: domain.EventTypeMarketBuy, Side: domain.SideBuy, USDValue: 25000},
	}))

	resp, err := http.Get(f.srv.URL + "/api/export?symbol=BTCUSDT&timestamp=100000&interval=2&min_usd=10000")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	require.Contains(t, resp.Header.Get("Content-Disposition"), "BTCUSDT")

	var artifact map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&artifact))
	require.Contains(t, artifact, "_README")
	require.Contains(t, artifact, "field_definitions")
	require.Contains(t, artifact, "price_history")
	require.Contains(t, artifact, "whale_events")
}

func TestHealthAndStatus(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status StatusResponse
	require.Equal(t, http.StatusOK, f.get(t, "/status", &status))
	require.Equal(t, "running", status.Status)
	require.Equal(t, 0, status.AnalysesRun)
}
