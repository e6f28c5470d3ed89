package aggregate

import (
	"math"
	"testing"

	"whale-activity-lab/internal/domain"
)

func TestStats_Empty(t *testing.T) {
	s := Stats(nil)
	if s.Count != 0 || s.Volume != 0 || s.Avg != 0 || s.Largest != 0 {
		t.Errorf("empty stats not zeroed: %+v", s)
	}
	if math.IsNaN(s.Avg) || math.IsInf(s.Avg, 0) {
		t.Errorf("avg must be 0 on empty input, got %f", s.Avg)
	}
}

func TestForPeriod_ExampleBreakdown(t *testing.T) {
	// Two market buys of $1000 and $3000 plus one $500 new bid.
	events := []domain.WhaleEvent{
		{EventType: "market_buy", USDValue: 1000},
		{EventType: "market_buy", USDValue: 3000},
		{EventType: "new_bid", Side: "bid", USDValue: 500},
	}

	ps := ForPeriod(domain.PeriodDuring, events)

	buys := ps.ByCategory[domain.CategoryMarketBuy]
	if buys.Count != 2 || buys.Volume != 4000 || buys.Avg != 2000 {
		t.Errorf("market_buy = %+v, want count 2, volume 4000, avg 2000", buys)
	}
	if buys.Largest != 3000 {
		t.Errorf("market_buy largest = %f, want 3000", buys.Largest)
	}

	bids := ps.ByCategory[domain.CategoryNewBid]
	if bids.Count != 1 || bids.Volume != 500 {
		t.Errorf("new_bid = %+v, want count 1, volume 500", bids)
	}

	if ps.Total.Count != 3 || ps.Total.Volume != 4500 {
		t.Errorf("total = %+v, want count 3, volume 4500", ps.Total)
	}
}

func TestForPeriod_PartitionInvariant(t *testing.T) {
	events := []domain.WhaleEvent{
		{EventType: "market_buy", USDValue: 100},
		{EventType: "market_sell", USDValue: 200},
		{EventType: "increase", Side: "bid", USDValue: 300},
		{EventType: "increase", Side: "ask", USDValue: 400},
		{EventType: "decrease", Side: "bid", USDValue: 500},
		{EventType: "decrease", Side: "ask", USDValue: 600},
		{EventType: "new_bid", Side: "bid", USDValue: 700},
		{EventType: "new_ask", Side: "ask", USDValue: 800},
		{EventType: "unknowable", USDValue: 900},
	}

	ps := ForPeriod(domain.PeriodDuring, events)

	countSum := 0
	volumeSum := 0.0
	percentSum := 0.0
	for _, cs := range ps.ByCategory {
		countSum += cs.Count
		volumeSum += cs.Volume
		percentSum += cs.Percent
	}

	if countSum != ps.Total.Count {
		t.Errorf("category counts sum to %d, total is %d", countSum, ps.Total.Count)
	}
	if volumeSum != ps.Total.Volume {
		t.Errorf("category volumes sum to %f, total is %f", volumeSum, ps.Total.Volume)
	}
	if math.Abs(percentSum-100) > 1e-9 {
		t.Errorf("percentages sum to %f, want 100", percentSum)
	}
}

func TestForPeriod_ZeroTotalYieldsZeroPercent(t *testing.T) {
	ps := ForPeriod(domain.PeriodBefore, nil)

	if ps.Total.Count != 0 {
		t.Fatalf("expected empty period, got %d events", ps.Total.Count)
	}
	for c, cs := range ps.ByCategory {
		if cs.Percent != 0 {
			t.Errorf("category %s percent = %f, want 0 when total is 0", c, cs.Percent)
		}
		if math.IsNaN(cs.Percent) || math.IsInf(cs.Percent, 0) {
			t.Errorf("category %s percent is not finite: %f", c, cs.Percent)
		}
	}
}

func TestForInterval_SplitsAndAggregates(t *testing.T) {
	iv := domain.Interval{
		StartTimeMs: 1000,
		EndTimeMs:   2000,
		WhaleEvents: []domain.WhaleEvent{
			{TimestampMs: 500, EventType: "market_buy", USDValue: 100},
			{TimestampMs: 1500, EventType: "market_buy", USDValue: 200},
			{TimestampMs: 1600, EventType: "market_sell", USDValue: 300},
			{TimestampMs: 2500, EventType: "new_ask", Side: "ask", USDValue: 400},
		},
	}

	b := ForInterval(iv)

	if b.Before.Total.Count != 1 || b.During.Total.Count != 2 || b.After.Total.Count != 1 {
		t.Errorf("period totals = %d/%d/%d, want 1/2/1",
			b.Before.Total.Count, b.During.Total.Count, b.After.Total.Count)
	}
	if b.During.Total.Volume != 500 {
		t.Errorf("during volume = %f, want 500", b.During.Total.Volume)
	}
}

func TestSideVolumes(t *testing.T) {
	events := []domain.WhaleEvent{
		{EventType: "market_buy", USDValue: 100},
		{EventType: "new_bid", Side: "bid", USDValue: 200},
		{EventType: "decrease", Side: "bid", USDValue: 50},
		{EventType: "market_sell", USDValue: 400},
		{EventType: "increase", Side: "ask", USDValue: 100},
		{EventType: "mystery", USDValue: 999}, // other: counts toward neither side
	}

	ps := ForPeriod(domain.PeriodDuring, events)
	bid, ask := SideVolumes(ps)

	if bid != 350 {
		t.Errorf("bid volume = %f, want 350", bid)
	}
	if ask != 500 {
		t.Errorf("ask volume = %f, want 500", ask)
	}
}
