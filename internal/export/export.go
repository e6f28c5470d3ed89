// Package export builds the downloadable JSON artifact: a filtered slice
// of price and whale data with a self-describing header.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"whale-activity-lab/internal/domain"
)

// Artifact is the exported JSON document. The _README and
// field_definitions blocks make the file readable without this codebase.
type Artifact struct {
	README           string              `json:"_README"`
	FieldDefinitions map[string]string   `json:"field_definitions"`
	Symbol           string              `json:"symbol"`
	FromTimeMs       int64               `json:"from_time"`
	ToTimeMs         int64               `json:"to_time"`
	MinUSDValue      float64             `json:"min_usd"`
	ExportedAt       int64               `json:"exported_at"`
	PriceHistory     []domain.PricePoint `json:"price_history"`
	WhaleEvents      []domain.WhaleEvent `json:"whale_events"`
}

// fieldDefinitions documents every field appearing in the data arrays.
var fieldDefinitions = map[string]string{
	"symbol":                "Trading pair the data was collected for",
	"time":                  "Unix timestamp in milliseconds",
	"mid_price":             "Midpoint of best bid and best ask",
	"event_type":            "Raw detector event type: new_bid, new_ask, market_buy, market_sell, increase, decrease",
	"side":                  "Book side or trade direction: bid, ask, buy, sell",
	"price":                 "Order or trade price",
	"volume":                "Base asset quantity",
	"usd_value":             "Notional value in USD (price * volume)",
	"distance_from_mid_pct": "Order price distance from mid price, in percent",
}

// Build assembles an artifact from already-filtered data.
func Build(symbol string, fromMs, toMs int64, minUSD float64, points []domain.PricePoint, events []domain.WhaleEvent) *Artifact {
	if points == nil {
		points = []domain.PricePoint{}
	}
	if events == nil {
		events = []domain.WhaleEvent{}
	}

	return &Artifact{
		README: fmt.Sprintf(
			"Whale activity export for %s covering %d..%d (Unix ms). "+
				"price_history holds mid-price ticks; whale_events holds order-book and trade events with usd_value >= %.0f. "+
				"See field_definitions for per-field descriptions.",
			symbol, fromMs, toMs, minUSD),
		FieldDefinitions: fieldDefinitions,
		Symbol:           symbol,
		FromTimeMs:       fromMs,
		ToTimeMs:         toMs,
		MinUSDValue:      minUSD,
		ExportedAt:       time.Now().UnixMilli(),
		PriceHistory:     points,
		WhaleEvents:      events,
	}
}

// Write encodes the artifact as indented JSON.
func Write(w io.Writer, a *Artifact) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("encode export artifact: %w", err)
	}
	return nil
}
