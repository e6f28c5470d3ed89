package domain

// WhaleEvent represents a single large order-book or trade event detected
// on an exchange feed. Events are immutable once recorded; downstream
// components filter and copy them, never mutate them in place.
type WhaleEvent struct {
	Symbol             string  `json:"symbol"`
	TimestampMs        int64   `json:"time"`                  // Unix timestamp in milliseconds
	EventType          string  `json:"event_type"`            // raw type from the detector
	Side               string  `json:"side"`                  // "bid" | "ask" | "buy" | "sell"
	Price              float64 `json:"price"`                 // order/trade price
	Volume             float64 `json:"volume"`                // base asset quantity
	USDValue           float64 `json:"usd_value"`             // price * volume
	DistanceFromMidPct float64 `json:"distance_from_mid_pct"` // order distance from mid price
	Period             Period  `json:"period,omitempty"`      // set only on copies tagged for display
}

// Raw event types produced by the whale-event detector.
const (
	EventTypeNewBid     = "new_bid"
	EventTypeNewAsk     = "new_ask"
	EventTypeMarketBuy  = "market_buy"
	EventTypeMarketSell = "market_sell"
	EventTypeIncrease   = "increase"
	EventTypeDecrease   = "decrease"
)

// Event sides.
const (
	SideBid  = "bid"
	SideAsk  = "ask"
	SideBuy  = "buy"
	SideSell = "sell"
)

// Category is the visual category an event is classified into.
type Category string

// The eight display categories plus the explicit overflow bucket.
// CategoryOther replaces the silent drop of unrecognized event types:
// every event lands in exactly one category, so per-period totals always
// equal the sum over categories.
const (
	CategoryNewBid      Category = "new_bid"
	CategoryNewAsk      Category = "new_ask"
	CategoryMarketBuy   Category = "market_buy"
	CategoryMarketSell  Category = "market_sell"
	CategoryBidIncrease Category = "bid_increase"
	CategoryAskIncrease Category = "ask_increase"
	CategoryBidDecrease Category = "bid_decrease"
	CategoryAskDecrease Category = "ask_decrease"
	CategoryOther       Category = "other"
)

// Categories lists all categories in display order.
var Categories = []Category{
	CategoryNewBid,
	CategoryNewAsk,
	CategoryMarketBuy,
	CategoryMarketSell,
	CategoryBidIncrease,
	CategoryAskIncrease,
	CategoryBidDecrease,
	CategoryAskDecrease,
	CategoryOther,
}

// Period identifies an event's position relative to an interval window.
type Period string

// Periods. Boundary timestamps are inclusive to "during".
const (
	PeriodBefore Period = "before"
	PeriodDuring Period = "during"
	PeriodAfter  Period = "after"
)

// Periods lists all periods in chronological order.
var Periods = []Period{PeriodBefore, PeriodDuring, PeriodAfter}
