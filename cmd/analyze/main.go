// Package main runs a one-shot analysis against stored market data and
// writes the markdown report, interval CSV, and optionally the JSON
// export artifact.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"whale-activity-lab/internal/analysis"
	"whale-activity-lab/internal/domain"
	"whale-activity-lab/internal/export"
	"whale-activity-lab/internal/insight"
	"whale-activity-lab/internal/reporting"
	"whale-activity-lab/internal/storage"
	chstore "whale-activity-lab/internal/storage/clickhouse"
	"whale-activity-lab/internal/storage/migrations"
	pgstore "whale-activity-lab/internal/storage/postgres"
)

func main() {
	godotenv.Load()

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	id := flag.String("id", "", "Report an existing analysis instead of running a new one")
	symbol := flag.String("symbol", "BTCUSDT", "Symbol to analyze")
	lookback := flag.Int("lookback", 60, "Lookback window in minutes")
	window := flag.Int("interval", 300, "Detection window in seconds")
	top := flag.Int("top", 5, "Number of intervals to keep")
	minChange := flag.Float64("min-change", 1.0, "Minimum |change %| to qualify")
	minUSD := flag.Float64("min-usd", 0, "Export notional filter in USD")
	outputDir := flag.String("output-dir", "output", "Output directory for report files")
	withExport := flag.Bool("export", false, "Also write the JSON export artifact")
	flag.Parse()

	ctx := context.Background()

	if *postgresDSN == "" || *clickhouseDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn and --clickhouse-dsn are required")
		os.Exit(1)
	}

	eventStore, tickStore, analysisStore, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to databases: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	var a *domain.Analysis
	if *id != "" {
		a, err = analysisStore.GetByID(ctx, *id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading analysis %s: %v\n", *id, err)
			os.Exit(1)
		}
	} else {
		svc := analysis.NewService(tickStore, eventStore, analysisStore)
		a, err = svc.Run(ctx, domain.AnalysisParams{
			Symbol:          *symbol,
			LookbackMinutes: *lookback,
			IntervalSeconds: *window,
			Top:             *top,
			MinChangePct:    *minChange,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running analysis: %v\n", err)
			os.Exit(1)
		}
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	report := reporting.BuildReport(a, insight.NewGenerator(insight.DefaultConfig()))

	mdPath := filepath.Join(*outputDir, fmt.Sprintf("report_%s.md", a.ID))
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", mdPath, err)
		os.Exit(1)
	}

	csvPath := filepath.Join(*outputDir, fmt.Sprintf("intervals_%s.csv", a.ID))
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.Intervals)), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", csvPath, err)
		os.Exit(1)
	}

	fmt.Printf("Analysis %s: %d intervals\n", a.ID, len(a.Intervals))
	fmt.Printf("Wrote %s and %s\n", mdPath, csvPath)

	if *withExport {
		if err := writeExport(ctx, a, *minUSD, *outputDir, tickStore, eventStore); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing export: %v\n", err)
			os.Exit(1)
		}
	}
}

// writeExport builds the JSON artifact over the analysis window.
func writeExport(ctx context.Context, a *domain.Analysis, minUSD float64, outputDir string, tickStore storage.PriceTickStore, eventStore storage.WhaleEventStore) error {
	points, err := tickStore.GetByTimeRange(ctx, a.Symbol, a.FromTimeMs, a.ToTimeMs)
	if err != nil {
		return fmt.Errorf("load price ticks: %w", err)
	}
	events, err := eventStore.GetByTimeRange(ctx, a.Symbol, a.FromTimeMs, a.ToTimeMs, minUSD)
	if err != nil {
		return fmt.Errorf("load whale events: %w", err)
	}

	artifact := export.Build(a.Symbol, a.FromTimeMs, a.ToTimeMs, minUSD, points, events)

	path := filepath.Join(outputDir, fmt.Sprintf("export_%s.json", a.ID))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := export.Write(f, artifact); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

// createStores connects both databases and runs migrations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string) (storage.WhaleEventStore, storage.PriceTickStore, storage.AnalysisStore, func(), error) {
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return chstore.NewWhaleEventStore(chConn), chstore.NewPriceTickStore(chConn), pgstore.NewAnalysisStore(pool), cleanup, nil
}
