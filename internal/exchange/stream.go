package exchange

import "context"

// Stream defines the market-data subscription interface.
type Stream interface {
	// SubscribeTrades subscribes to aggregate trades for a symbol.
	SubscribeTrades(ctx context.Context, symbol string) (<-chan Trade, error)

	// SubscribeDepth subscribes to partial order-book snapshots for a symbol.
	SubscribeDepth(ctx context.Context, symbol string) (<-chan DepthUpdate, error)

	// Close closes the stream connection.
	Close() error
}

// RESTClient defines the historical backfill interface.
type RESTClient interface {
	// GetKlines retrieves candlesticks for a symbol within [startMs, endMs].
	GetKlines(ctx context.Context, symbol, interval string, startMs, endMs int64, limit int) ([]Kline, error)
}
