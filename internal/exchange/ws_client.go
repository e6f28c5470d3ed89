package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSConfig configures WebSocket stream behavior.
type WSConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// DepthLevels is how many book levels the depth stream carries.
	DepthLevels int
	// OnReconnect, when set, is called on every reconnect attempt.
	OnReconnect func()
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		DepthLevels:       20,
	}
}

// WSStream implements Stream over a combined market-data WebSocket using
// gorilla/websocket. Stream names are subscribed dynamically and restored
// after a reconnect.
type WSStream struct {
	endpoint string
	config   WSConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// tradeSubs and depthSubs map lowercase symbol to consumer channel
	tradeSubs map[string]chan Trade
	depthSubs map[string]chan DepthUpdate
	subsMu    sync.RWMutex

	// activeStreams stores stream names for resubscription after reconnect
	activeStreams   map[string]struct{}
	activeStreamsMu sync.Mutex

	// pendingSubs maps request ID to channel waiting for the ack
	pendingSubs   map[uint64]chan struct{}
	pendingSubsMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewWSStream creates a stream client and connects to the endpoint.
func NewWSStream(ctx context.Context, endpoint string, config *WSConfig) (*WSStream, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	c := &WSStream{
		endpoint:      endpoint,
		config:        cfg,
		tradeSubs:     make(map[string]chan Trade),
		depthSubs:     make(map[string]chan DepthUpdate),
		activeStreams: make(map[string]struct{}),
		pendingSubs:   make(map[uint64]chan struct{}),
		done:          make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// Compile-time interface check.
var _ Stream = (*WSStream)(nil)

func (c *WSStream) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

func (c *WSStream) tradeStreamName(symbol string) string {
	return strings.ToLower(symbol) + "@aggTrade"
}

func (c *WSStream) depthStreamName(symbol string) string {
	return fmt.Sprintf("%s@depth%d@100ms", strings.ToLower(symbol), c.config.DepthLevels)
}

// SubscribeTrades subscribes to aggregate trades for a symbol.
func (c *WSStream) SubscribeTrades(ctx context.Context, symbol string) (<-chan Trade, error) {
	if err := c.subscribe(ctx, c.tradeStreamName(symbol)); err != nil {
		return nil, err
	}

	// Blocking send on the consumer side would stall dispatch; the buffer
	// absorbs bursts.
	ch := make(chan Trade, 10000)
	c.subsMu.Lock()
	c.tradeSubs[strings.ToLower(symbol)] = ch
	c.subsMu.Unlock()
	return ch, nil
}

// SubscribeDepth subscribes to partial order-book snapshots for a symbol.
func (c *WSStream) SubscribeDepth(ctx context.Context, symbol string) (<-chan DepthUpdate, error) {
	if err := c.subscribe(ctx, c.depthStreamName(symbol)); err != nil {
		return nil, err
	}

	ch := make(chan DepthUpdate, 10000)
	c.subsMu.Lock()
	c.depthSubs[strings.ToLower(symbol)] = ch
	c.subsMu.Unlock()
	return ch, nil
}

// subscribe sends a SUBSCRIBE request and waits for the ack.
func (c *WSStream) subscribe(ctx context.Context, stream string) error {
	if c.closed.Load() {
		return fmt.Errorf("client closed")
	}

	reqID := c.requestID.Add(1)
	req := wsRequest{
		Method: "SUBSCRIBE",
		Params: []string{stream},
		ID:     reqID,
	}

	confirmCh := make(chan struct{}, 1)
	c.pendingSubsMu.Lock()
	c.pendingSubs[reqID] = confirmCh
	c.pendingSubsMu.Unlock()

	removePending := func() {
		c.pendingSubsMu.Lock()
		delete(c.pendingSubs, reqID)
		c.pendingSubsMu.Unlock()
	}

	c.connMu.Lock()
	if c.conn == nil {
		c.connMu.Unlock()
		removePending()
		return fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.connMu.Unlock()

	if err != nil {
		removePending()
		return fmt.Errorf("write subscribe: %w", err)
	}

	select {
	case <-confirmCh:
	case <-time.After(30 * time.Second):
		removePending()
		return fmt.Errorf("subscription timeout after 30s")
	case <-c.done:
		return fmt.Errorf("client closed")
	case <-ctx.Done():
		removePending()
		return ctx.Err()
	}

	c.activeStreamsMu.Lock()
	c.activeStreams[stream] = struct{}{}
	c.activeStreamsMu.Unlock()

	return nil
}

// Close closes the WebSocket connection.
func (c *WSStream) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.subsMu.Lock()
	for sym, ch := range c.tradeSubs {
		close(ch)
		delete(c.tradeSubs, sym)
	}
	for sym, ch := range c.depthSubs {
		close(ch)
		delete(c.depthSubs, sym)
	}
	c.subsMu.Unlock()

	c.pendingSubsMu.Lock()
	for id, ch := range c.pendingSubs {
		close(ch)
		delete(c.pendingSubs, id)
	}
	c.pendingSubsMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop reads messages from the WebSocket and dispatches to subscribers.
func (c *WSStream) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// reconnect attempts to reconnect and resubscribe.
func (c *WSStream) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	if c.config.OnReconnect != nil {
		c.config.OnReconnect()
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}

	c.resubscribeAll()
}

// resubscribeAll restores all active streams after a reconnect. Acks are
// handled by the read loop; consumer channels are keyed by symbol and stay
// valid across reconnects.
func (c *WSStream) resubscribeAll() {
	c.activeStreamsMu.Lock()
	streams := make([]string, 0, len(c.activeStreams))
	for s := range c.activeStreams {
		streams = append(streams, s)
	}
	c.activeStreamsMu.Unlock()

	if len(streams) == 0 {
		return
	}

	reqID := c.requestID.Add(1)
	req := wsRequest{
		Method: "SUBSCRIBE",
		Params: streams,
		ID:     reqID,
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
		c.conn.WriteJSON(req)
	}
	c.connMu.Unlock()
}

// handleMessage processes an incoming WebSocket message.
func (c *WSStream) handleMessage(message []byte) {
	// Combined-stream payloads carry the originating stream name
	var frame wsStreamFrame
	if err := json.Unmarshal(message, &frame); err == nil && frame.Stream != "" {
		c.dispatch(frame.Stream, frame.Data)
		return
	}

	// Subscription ack
	var ack wsAck
	if err := json.Unmarshal(message, &ack); err == nil && ack.ID > 0 {
		c.pendingSubsMu.Lock()
		ch, ok := c.pendingSubs[ack.ID]
		if ok {
			delete(c.pendingSubs, ack.ID)
		}
		c.pendingSubsMu.Unlock()
		if ok {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}

// dispatch routes a stream payload to the matching subscriber channel.
func (c *WSStream) dispatch(stream string, data json.RawMessage) {
	symbol, _, found := strings.Cut(stream, "@")
	if !found {
		return
	}

	switch {
	case strings.HasSuffix(stream, "@aggTrade"):
		trade, err := parseTrade(data)
		if err != nil {
			return
		}
		c.subsMu.RLock()
		ch, ok := c.tradeSubs[symbol]
		c.subsMu.RUnlock()
		if ok {
			select {
			case ch <- trade:
			case <-c.done:
			}
		}
	case strings.Contains(stream, "@depth"):
		update, err := parseDepth(symbol, data)
		if err != nil {
			return
		}
		c.subsMu.RLock()
		ch, ok := c.depthSubs[symbol]
		c.subsMu.RUnlock()
		if ok {
			select {
			case ch <- update:
			case <-c.done:
			}
		}
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *WSStream) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			c.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     uint64   `json:"id"`
}

type wsAck struct {
	Result json.RawMessage `json:"result"`
	ID     uint64          `json:"id"`
}

type wsStreamFrame struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type wsTradePayload struct {
	EventType   string `json:"e"`
	EventTimeMs int64  `json:"E"`
	Symbol      string `json:"s"`
	Price       string `json:"p"`
	Quantity    string `json:"q"`
	TradeTimeMs int64  `json:"T"`
	BuyerMaker  bool   `json:"m"`
}

type wsDepthPayload struct {
	LastUpdateID int64       `json:"lastUpdateId"`
	Bids         [][2]string `json:"bids"`
	Asks         [][2]string `json:"asks"`
}

func parseTrade(data json.RawMessage) (Trade, error) {
	var p wsTradePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return Trade{}, fmt.Errorf("unmarshal trade: %w", err)
	}

	price, err := strconv.ParseFloat(p.Price, 64)
	if err != nil {
		return Trade{}, fmt.Errorf("parse trade price %q: %w", p.Price, err)
	}
	qty, err := strconv.ParseFloat(p.Quantity, 64)
	if err != nil {
		return Trade{}, fmt.Errorf("parse trade quantity %q: %w", p.Quantity, err)
	}

	return Trade{
		Symbol:       p.Symbol,
		TimestampMs:  p.TradeTimeMs,
		Price:        price,
		Quantity:     qty,
		IsBuyerMaker: p.BuyerMaker,
	}, nil
}

func parseDepth(symbol string, data json.RawMessage) (DepthUpdate, error) {
	var p wsDepthPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return DepthUpdate{}, fmt.Errorf("unmarshal depth: %w", err)
	}

	update := DepthUpdate{
		Symbol:      strings.ToUpper(symbol),
		TimestampMs: time.Now().UnixMilli(),
	}

	var err error
	if update.Bids, err = parseLevels(p.Bids); err != nil {
		return DepthUpdate{}, fmt.Errorf("parse bids: %w", err)
	}
	if update.Asks, err = parseLevels(p.Asks); err != nil {
		return DepthUpdate{}, fmt.Errorf("parse asks: %w", err)
	}
	return update, nil
}

func parseLevels(raw [][2]string) ([]PriceLevel, error) {
	levels := make([]PriceLevel, 0, len(raw))
	for _, pair := range raw {
		price, err := strconv.ParseFloat(pair[0], 64)
		if err != nil {
			return nil, fmt.Errorf("parse level price %q: %w", pair[0], err)
		}
		qty, err := strconv.ParseFloat(pair[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parse level quantity %q: %w", pair[1], err)
		}
		levels = append(levels, PriceLevel{Price: price, Quantity: qty})
	}
	return levels, nil
}
