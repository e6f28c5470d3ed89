package domain

// PricePoint is one sample of the mid price for a symbol.
// Corresponds to price_ticks table in ClickHouse.
type PricePoint struct {
	Symbol      string  `json:"symbol,omitempty"`
	TimestampMs int64   `json:"time"` // Unix timestamp in milliseconds
	MidPrice    float64 `json:"mid_price"`
}

// Interval is one detected price-change spike plus its surrounding
// context window: the price path through the window and the whale
// events split into before/during/after relative to [start, end].
type Interval struct {
	Rank              int          `json:"rank"`
	Symbol            string       `json:"symbol"`
	StartTimeMs       int64        `json:"start_time"`
	EndTimeMs         int64        `json:"end_time"`
	StartPrice        float64      `json:"start_price"`
	EndPrice          float64      `json:"end_price"`
	ChangePct         float64      `json:"change_pct"`
	PriceData         []PricePoint `json:"price_data"`
	WhaleEvents       []WhaleEvent `json:"whale_events"`
	WhaleEventsBefore []WhaleEvent `json:"whale_events_before"`
	WhaleEventsAfter  []WhaleEvent `json:"whale_events_after"`
}

// Direction reports whether price rose, fell, or was flat over the interval.
func (iv *Interval) Direction() int {
	switch {
	case iv.ChangePct > 0:
		return 1
	case iv.ChangePct < 0:
		return -1
	default:
		return 0
	}
}
