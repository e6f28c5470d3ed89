// Package main runs the unified whale-activity service:
// - Collection (continuous): exchange WebSocket feeds → whale events + price ticks
// - Analysis (scheduled or on demand via the API): interval detection
// - API: dashboard JSON endpoints, health, status, Prometheus metrics
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"whale-activity-lab/internal/analysis"
	"whale-activity-lab/internal/domain"
	"whale-activity-lab/internal/exchange"
	"whale-activity-lab/internal/ingest"
	"whale-activity-lab/internal/observability"
	"whale-activity-lab/internal/server"
	"whale-activity-lab/internal/storage"
	chstore "whale-activity-lab/internal/storage/clickhouse"
	"whale-activity-lab/internal/storage/memory"
	"whale-activity-lab/internal/storage/migrations"
	pgstore "whale-activity-lab/internal/storage/postgres"
)

// Default exchange endpoints (Binance spot).
const (
	defaultWSEndpoint   = "wss://stream.binance.com:9443/stream"
	defaultRESTEndpoint = "https://api.binance.com"
)

// allStores holds all storage implementations.
type allStores struct {
	eventStore    storage.WhaleEventStore
	tickStore     storage.PriceTickStore
	analysisStore storage.AnalysisStore
}

func main() {
	// Load .env file if exists
	godotenv.Load()

	// Parse flags (env vars as defaults)
	wsEndpoint := flag.String("ws-endpoint", envOr("EXCHANGE_WS_ENDPOINT", defaultWSEndpoint), "Exchange WebSocket endpoint")
	restEndpoint := flag.String("rest-endpoint", envOr("EXCHANGE_REST_ENDPOINT", defaultRESTEndpoint), "Exchange REST endpoint")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	symbols := flag.String("symbols", envOr("SYMBOLS", "BTCUSDT"), "Comma-separated symbols to collect")
	minUSD := flag.Float64("min-usd", 10000, "Whale event notional threshold in USD")
	addr := flag.String("addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	analysisInterval := flag.Duration("analysis-interval", 0, "Scheduled analysis interval (0 disables)")
	analysisLookback := flag.Int("analysis-lookback", 60, "Scheduled analysis lookback in minutes")
	analysisWindow := flag.Int("analysis-window", 300, "Scheduled analysis detection window in seconds")
	analysisTop := flag.Int("analysis-top", 5, "Scheduled analysis interval count")
	analysisMinChange := flag.Float64("analysis-min-change", 1.0, "Scheduled analysis minimum |change %|")
	backfillMinutes := flag.Int("backfill", 0, "Backfill this many minutes of price history on start (0 disables)")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	symbolList := splitSymbols(*symbols)
	if len(symbolList) == 0 {
		logger.Fatal("No symbols specified. Use --symbols")
	}
	logger.Printf("Collecting symbols: %v", symbolList)

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	metrics := observability.NewMetrics("")

	svc := analysis.NewService(stores.tickStore, stores.eventStore, stores.analysisStore).
		WithMetrics(metrics)

	// Optional price-history backfill before live collection starts.
	if *backfillMinutes > 0 {
		rest := exchange.NewHTTPClient(*restEndpoint)
		endMs := time.Now().UnixMilli()
		startMs := endMs - int64(*backfillMinutes)*60_000
		for _, symbol := range symbolList {
			n, err := ingest.Backfill(ctx, rest, stores.tickStore, symbol, "1s", startMs, endMs)
			if err != nil {
				logger.Printf("Backfill %s: %v", symbol, err)
				continue
			}
			logger.Printf("Backfilled %d price points for %s", n, symbol)
		}
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	errCh := make(chan error, len(symbolList)+2)

	// Start one collector per symbol
	for _, symbol := range symbolList {
		go func(symbol string) {
			err := runCollector(ctx, *wsEndpoint, symbol, *minUSD, stores, metrics)
			if err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("collector %s: %w", symbol, err)
			}
		}(symbol)
	}

	// Start scheduled analysis if enabled
	if *analysisInterval > 0 {
		params := domain.AnalysisParams{
			LookbackMinutes: *analysisLookback,
			IntervalSeconds: *analysisWindow,
			Top:             *analysisTop,
			MinChangePct:    *analysisMinChange,
		}
		go runAnalysisScheduler(ctx, svc, symbolList, params, *analysisInterval, logger)
	}

	// Start HTTP API
	api := server.New(server.Options{
		EventStore:    stores.eventStore,
		TickStore:     stores.tickStore,
		AnalysisStore: stores.analysisStore,
		Analysis:      svc,
		Metrics:       metrics,
	})
	httpServer := &http.Server{Addr: *addr, Handler: api.Handler()}

	go func() {
		logger.Printf("Starting HTTP server on %s", *addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Wait for cancellation or a fatal component error
	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case runErr = <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)

	done <- runErr

	if runErr != nil && runErr != context.Canceled {
		logger.Fatalf("Server error: %v", runErr)
	}

	logger.Println("Shutdown complete")
}

// runCollector connects one symbol's feed and collects until ctx ends.
func runCollector(ctx context.Context, wsEndpoint, symbol string, minUSD float64, stores *allStores, metrics *observability.Metrics) error {
	cfg := exchange.DefaultWSConfig()
	cfg.OnReconnect = metrics.StreamReconnects.Inc

	stream, err := exchange.NewWSStream(ctx, wsEndpoint, &cfg)
	if err != nil {
		return fmt.Errorf("connect stream: %w", err)
	}
	defer stream.Close()

	collectorCfg := ingest.DefaultConfig()
	collectorCfg.MinUSDValue = minUSD

	collector := ingest.NewCollector(collectorCfg, stream, stores.eventStore, stores.tickStore).
		WithMetrics(metrics)
	return collector.Run(ctx, symbol)
}

// runAnalysisScheduler runs an analysis per symbol on a fixed interval.
func runAnalysisScheduler(ctx context.Context, svc *analysis.Service, symbols []string, params domain.AnalysisParams, interval time.Duration, logger *log.Logger) {
	logger.Printf("Starting analysis scheduler (interval: %v)...", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, symbol := range symbols {
				p := params
				p.Symbol = symbol
				if _, err := svc.Run(ctx, p); err != nil {
					logger.Printf("Scheduled analysis %s: %v", symbol, err)
				}
			}
		}
	}
}

// createStores creates all required stores, running migrations first.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			eventStore:    memory.NewWhaleEventStore(),
			tickStore:     memory.NewPriceTickStore(),
			analysisStore: memory.NewAnalysisStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		eventStore:    chstore.NewWhaleEventStore(chConn),
		tickStore:     chstore.NewPriceTickStore(chConn),
		analysisStore: pgstore.NewAnalysisStore(pool),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitSymbols(raw string) []string {
	var list []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			list = append(list, s)
		}
	}
	return list
}
