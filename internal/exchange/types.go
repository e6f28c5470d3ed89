package exchange

// Trade is one executed aggregate trade from the exchange stream.
type Trade struct {
	Symbol       string
	TimestampMs  int64
	Price        float64
	Quantity     float64
	IsBuyerMaker bool // true means the aggressor sold into the bid
}

// PriceLevel is one order-book level.
type PriceLevel struct {
	Price    float64
	Quantity float64
}

// DepthUpdate is a partial order-book snapshot from the depth stream.
type DepthUpdate struct {
	Symbol      string
	TimestampMs int64
	Bids        []PriceLevel // best bid first
	Asks        []PriceLevel // best ask first
}

// MidPrice returns the midpoint of the best bid and ask, or 0 if either
// side is empty.
func (d *DepthUpdate) MidPrice() float64 {
	if len(d.Bids) == 0 || len(d.Asks) == 0 {
		return 0
	}
	return (d.Bids[0].Price + d.Asks[0].Price) / 2
}

// Kline is one candlestick returned by the REST backfill endpoint.
type Kline struct {
	OpenTimeMs  int64
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	CloseTimeMs int64
}
