package ingest

import (
	"context"
	"log"
	"os"
	"time"

	"whale-activity-lab/internal/domain"
	"whale-activity-lab/internal/exchange"
	"whale-activity-lab/internal/observability"
	"whale-activity-lab/internal/storage"
)

// Config holds whale-event detection parameters.
type Config struct {
	// MinUSDValue is the notional threshold an order-book change or trade
	// must reach to be recorded as a whale event.
	MinUSDValue float64
	// TickIntervalMs is the minimum spacing between recorded price ticks.
	TickIntervalMs int64
	// FlushInterval is how often buffered events and ticks are written out.
	FlushInterval time.Duration
	// MaxBatch flushes early once this many events or ticks are buffered.
	MaxBatch int
}

// DefaultConfig returns default collector configuration.
func DefaultConfig() Config {
	return Config{
		MinUSDValue:    10000,
		TickIntervalMs: 1000,
		FlushInterval:  2 * time.Second,
		MaxBatch:       500,
	}
}

// Collector consumes the exchange stream for one symbol, detects whale
// events from trades and order-book deltas, and writes events and price
// ticks to storage in batches.
type Collector struct {
	config     Config
	stream     exchange.Stream
	eventStore storage.WhaleEventStore
	tickStore  storage.PriceTickStore
	logger     *log.Logger
	metrics    *observability.Metrics

	// book diff state, touched only by Run's goroutine
	prevBids   map[float64]float64
	prevAsks   map[float64]float64
	lastMid    float64
	lastTickMs int64

	events []domain.WhaleEvent
	ticks  []domain.PricePoint
}

// NewCollector creates a collector for one symbol's feed.
func NewCollector(config Config, stream exchange.Stream, eventStore storage.WhaleEventStore, tickStore storage.PriceTickStore) *Collector {
	return &Collector{
		config:     config,
		stream:     stream,
		eventStore: eventStore,
		tickStore:  tickStore,
		logger:     log.New(os.Stdout, "[collector] ", log.LstdFlags|log.Lshortfile),
		prevBids:   make(map[float64]float64),
		prevAsks:   make(map[float64]float64),
	}
}

// WithMetrics attaches a metrics instance.
func (c *Collector) WithMetrics(m *observability.Metrics) *Collector {
	c.metrics = m
	return c
}

// Run subscribes to the symbol's trade and depth streams and processes
// them until ctx is cancelled. Buffered data is flushed before returning.
func (c *Collector) Run(ctx context.Context, symbol string) error {
	trades, err := c.stream.SubscribeTrades(ctx, symbol)
	if err != nil {
		return err
	}
	depth, err := c.stream.SubscribeDepth(ctx, symbol)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(c.config.FlushInterval)
	defer ticker.Stop()

	c.logger.Printf("collecting %s (min notional %.0f USD)", symbol, c.config.MinUSDValue)

	for {
		select {
		case <-ctx.Done():
			c.flush(context.Background())
			return ctx.Err()

		case trade, ok := <-trades:
			if !ok {
				trades = nil // keep draining the other channel
				break
			}
			c.handleTrade(trade)
			c.maybeFlush(ctx)

		case update, ok := <-depth:
			if !ok {
				depth = nil
				break
			}
			c.handleDepth(update)
			c.maybeFlush(ctx)

		case <-ticker.C:
			c.flush(ctx)
		}

		if trades == nil && depth == nil {
			c.flush(ctx)
			return nil
		}
	}
}

// handleTrade records a market buy/sell whale event when the trade's
// notional clears the threshold.
func (c *Collector) handleTrade(trade exchange.Trade) {
	usd := trade.Price * trade.Quantity
	if usd < c.config.MinUSDValue {
		return
	}

	// The aggressor bought when the buyer was not the maker
	eventType, side := domain.EventTypeMarketBuy, domain.SideBid
	if trade.IsBuyerMaker {
		eventType, side = domain.EventTypeMarketSell, domain.SideAsk
	}

	c.events = append(c.events, domain.WhaleEvent{
		Symbol:             trade.Symbol,
		TimestampMs:        trade.TimestampMs,
		EventType:          eventType,
		Side:               side,
		Price:              trade.Price,
		Volume:             trade.Quantity,
		USDValue:           usd,
		DistanceFromMidPct: distanceFromMid(trade.Price, c.lastMid),
	})
	if c.metrics != nil {
		c.metrics.WhaleEventsRecorded.WithLabelValues(eventType).Inc()
	}
}

// handleDepth diffs the new book snapshot against the previous one and
// records new/increase/decrease whale events, plus a price tick.
func (c *Collector) handleDepth(update exchange.DepthUpdate) {
	mid := update.MidPrice()
	if mid > 0 {
		c.lastMid = mid
		if update.TimestampMs-c.lastTickMs >= c.config.TickIntervalMs {
			c.lastTickMs = update.TimestampMs
			c.ticks = append(c.ticks, domain.PricePoint{
				Symbol:      update.Symbol,
				TimestampMs: update.TimestampMs,
				MidPrice:    mid,
			})
			if c.metrics != nil {
				c.metrics.PriceTicksRecorded.Inc()
			}
		}
	}

	c.prevBids = c.diffSide(update, update.Bids, c.prevBids, domain.SideBid, domain.EventTypeNewBid)
	c.prevAsks = c.diffSide(update, update.Asks, c.prevAsks, domain.SideAsk, domain.EventTypeNewAsk)
}

// diffSide compares one side of the book against its previous snapshot and
// returns the new snapshot map. Levels that fall out of the partial book
// are not reported; only visible quantity changes are.
func (c *Collector) diffSide(update exchange.DepthUpdate, levels []exchange.PriceLevel, prev map[float64]float64, side, newType string) map[float64]float64 {
	next := make(map[float64]float64, len(levels))

	for _, lvl := range levels {
		next[lvl.Price] = lvl.Quantity

		prevQty, existed := prev[lvl.Price]
		switch {
		case !existed:
			if usd := lvl.Price * lvl.Quantity; usd >= c.config.MinUSDValue {
				c.record(update, lvl.Price, lvl.Quantity, usd, side, newType)
			}
		case lvl.Quantity > prevQty:
			delta := lvl.Quantity - prevQty
			if usd := lvl.Price * delta; usd >= c.config.MinUSDValue {
				c.record(update, lvl.Price, delta, usd, side, domain.EventTypeIncrease)
			}
		case lvl.Quantity < prevQty:
			delta := prevQty - lvl.Quantity
			if usd := lvl.Price * delta; usd >= c.config.MinUSDValue {
				c.record(update, lvl.Price, delta, usd, side, domain.EventTypeDecrease)
			}
		}
	}

	return next
}

func (c *Collector) record(update exchange.DepthUpdate, price, volume, usd float64, side, eventType string) {
	c.events = append(c.events, domain.WhaleEvent{
		Symbol:             update.Symbol,
		TimestampMs:        update.TimestampMs,
		EventType:          eventType,
		Side:               side,
		Price:              price,
		Volume:             volume,
		USDValue:           usd,
		DistanceFromMidPct: distanceFromMid(price, c.lastMid),
	})
	if c.metrics != nil {
		c.metrics.WhaleEventsRecorded.WithLabelValues(eventType).Inc()
	}
}

func distanceFromMid(price, mid float64) float64 {
	if mid == 0 {
		return 0
	}
	return (price - mid) / mid * 100
}

func (c *Collector) maybeFlush(ctx context.Context) {
	if len(c.events) >= c.config.MaxBatch || len(c.ticks) >= c.config.MaxBatch {
		c.flush(ctx)
	}
}

// flush writes buffered events and ticks. A failed write keeps the batch
// for the next attempt rather than dropping it.
func (c *Collector) flush(ctx context.Context) {
	ok := true
	if len(c.events) > 0 {
		if err := c.eventStore.InsertBulk(ctx, c.events); err != nil {
			c.logger.Printf("flush %d events: %v", len(c.events), err)
			ok = false
			if c.metrics != nil {
				c.metrics.DBQueryErrors.WithLabelValues("whale_events", "insert_bulk").Inc()
			}
		} else {
			c.events = c.events[:0]
		}
	}
	if len(c.ticks) > 0 {
		if err := c.tickStore.InsertBulk(ctx, c.ticks); err != nil {
			c.logger.Printf("flush %d ticks: %v", len(c.ticks), err)
			ok = false
			if c.metrics != nil {
				c.metrics.DBQueryErrors.WithLabelValues("price_ticks", "insert_bulk").Inc()
			}
		} else {
			c.ticks = c.ticks[:0]
		}
	}
	if c.metrics != nil {
		c.metrics.EventBufferSize.Set(float64(len(c.events)))
		if ok {
			c.metrics.LastSuccessfulFlush.SetToCurrentTime()
		}
	}
}
