package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements RESTClient against the exchange REST API.
type HTTPClient struct {
	baseURL     string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new exchange REST client.
func NewHTTPClient(baseURL string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ RESTClient = (*HTTPClient)(nil)

// GetKlines retrieves candlesticks for a symbol within [startMs, endMs].
// interval uses exchange notation ("1s", "1m", ...).
func (c *HTTPClient) GetKlines(ctx context.Context, symbol, interval string, startMs, endMs int64, limit int) ([]Kline, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("startTime", strconv.FormatInt(startMs, 10))
	q.Set("endTime", strconv.FormatInt(endMs, 10))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var raw [][]json.RawMessage
	if err := c.get(ctx, "/api/v3/klines", q, &raw); err != nil {
		return nil, err
	}

	klines := make([]Kline, 0, len(raw))
	for _, row := range raw {
		k, err := parseKlineRow(row)
		if err != nil {
			return nil, err
		}
		klines = append(klines, k)
	}
	return klines, nil
}

// get performs a GET request with retries and exponential backoff.
func (c *HTTPClient) get(ctx context.Context, path string, q url.Values, result interface{}) error {
	endpoint := c.baseURL + path + "?" + q.Encode()

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("http status %d: %s", resp.StatusCode, body)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("http status %d: %s", resp.StatusCode, body)
		}

		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("request failed after %d retries: %w", c.maxRetries, lastErr)
}

// parseKlineRow decodes one kline array:
// [openTime, open, high, low, close, volume, closeTime, ...]
// where prices and volume arrive as strings.
func parseKlineRow(row []json.RawMessage) (Kline, error) {
	if len(row) < 7 {
		return Kline{}, fmt.Errorf("kline row has %d fields, want at least 7", len(row))
	}

	var k Kline
	if err := json.Unmarshal(row[0], &k.OpenTimeMs); err != nil {
		return Kline{}, fmt.Errorf("parse open time: %w", err)
	}
	if err := json.Unmarshal(row[6], &k.CloseTimeMs); err != nil {
		return Kline{}, fmt.Errorf("parse close time: %w", err)
	}

	fields := []struct {
		idx  int
		dst  *float64
		name string
	}{
		{1, &k.Open, "open"},
		{2, &k.High, "high"},
		{3, &k.Low, "low"},
		{4, &k.Close, "close"},
		{5, &k.Volume, "volume"},
	}
	for _, f := range fields {
		var s string
		if err := json.Unmarshal(row[f.idx], &s); err != nil {
			return Kline{}, fmt.Errorf("parse %s: %w", f.name, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Kline{}, fmt.Errorf("parse %s %q: %w", f.name, s, err)
		}
		*f.dst = v
	}

	return k, nil
}
