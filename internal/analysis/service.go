// Package analysis orchestrates a full analysis run: load the window's
// ticks and events, detect intervals, persist the result.
package analysis

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"whale-activity-lab/internal/detect"
	"whale-activity-lab/internal/domain"
	"whale-activity-lab/internal/observability"
	"whale-activity-lab/internal/storage"
)

// Params validation bounds.
const (
	MaxLookbackMinutes = 24 * 60
	MaxTop             = 50
)

// Service runs analyses over stored market data.
type Service struct {
	tickStore     storage.PriceTickStore
	eventStore    storage.WhaleEventStore
	analysisStore storage.AnalysisStore
	detector      *detect.Detector
	logger        *log.Logger
	metrics       *observability.Metrics
}

// NewService creates an analysis service.
func NewService(tickStore storage.PriceTickStore, eventStore storage.WhaleEventStore, analysisStore storage.AnalysisStore) *Service {
	return &Service{
		tickStore:     tickStore,
		eventStore:    eventStore,
		analysisStore: analysisStore,
		detector:      detect.NewDetector(),
		logger:        log.New(os.Stdout, "[analysis] ", log.LstdFlags|log.Lshortfile),
	}
}

// WithMetrics attaches a metrics instance.
func (s *Service) WithMetrics(m *observability.Metrics) *Service {
	s.metrics = m
	return s
}

// ValidateParams normalizes and checks run parameters.
func ValidateParams(p *domain.AnalysisParams) error {
	if p.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if p.LookbackMinutes <= 0 || p.LookbackMinutes > MaxLookbackMinutes {
		return fmt.Errorf("lookback must be in (0, %d] minutes", MaxLookbackMinutes)
	}
	if p.IntervalSeconds <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if p.Top <= 0 || p.Top > MaxTop {
		return fmt.Errorf("top must be in (0, %d]", MaxTop)
	}
	if p.MinChangePct < 0 {
		return fmt.Errorf("min_change must not be negative")
	}
	return nil
}

// Run executes one analysis over the lookback window ending now and
// persists the result.
func (s *Service) Run(ctx context.Context, params domain.AnalysisParams) (*domain.Analysis, error) {
	if err := ValidateParams(&params); err != nil {
		return nil, err
	}

	started := time.Now()
	toMs := started.UnixMilli()
	fromMs := toMs - int64(params.LookbackMinutes)*60_000

	a, err := s.runWindow(ctx, params, fromMs, toMs)

	if s.metrics != nil {
		s.metrics.AnalysisDuration.Observe(time.Since(started).Seconds())
		if err != nil {
			s.metrics.AnalysesRun.WithLabelValues("error").Inc()
		} else {
			s.metrics.AnalysesRun.WithLabelValues("ok").Inc()
			s.metrics.IntervalsDetected.Add(float64(len(a.Intervals)))
			s.metrics.LastSuccessfulAnalysis.SetToCurrentTime()
		}
	}
	return a, err
}

func (s *Service) runWindow(ctx context.Context, params domain.AnalysisParams, fromMs, toMs int64) (*domain.Analysis, error) {
	points, err := s.tickStore.GetByTimeRange(ctx, params.Symbol, fromMs, toMs)
	if err != nil {
		return nil, fmt.Errorf("load price ticks: %w", err)
	}
	events, err := s.eventStore.GetByTimeRange(ctx, params.Symbol, fromMs, toMs, 0)
	if err != nil {
		return nil, fmt.Errorf("load whale events: %w", err)
	}

	intervals := s.detector.Detect(points, events, params)

	a := &domain.Analysis{
		ID:         uuid.NewString(),
		Symbol:     params.Symbol,
		Params:     params,
		FromTimeMs: fromMs,
		ToTimeMs:   toMs,
		CreatedAt:  time.Now().UnixMilli(),
		Intervals:  intervals,
	}

	if err := s.analysisStore.Insert(ctx, a); err != nil {
		return nil, fmt.Errorf("store analysis: %w", err)
	}

	s.logger.Printf("analysis %s: %s, %d ticks, %d events, %d intervals",
		a.ID, params.Symbol, len(points), len(events), len(intervals))
	return a, nil
}
