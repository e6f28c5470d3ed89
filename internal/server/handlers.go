package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"whale-activity-lab/internal/aggregate"
	"whale-activity-lab/internal/analysis"
	"whale-activity-lab/internal/domain"
	"whale-activity-lab/internal/export"
	"whale-activity-lab/internal/scale"
	"whale-activity-lab/internal/storage"
)

// FilesResponse lists stored analyses, newest first.
type FilesResponse struct {
	Files []domain.AnalysisInfo `json:"files"`
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	infos, err := s.analysisStore.List(r.Context())
	if err != nil {
		s.logger.Printf("list analyses: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list analyses")
		return
	}
	if infos == nil {
		infos = []domain.AnalysisInfo{}
	}
	writeJSON(w, http.StatusOK, FilesResponse{Files: infos})
}

// AnalysisMetadata is the metadata half of a DataResponse: the analysis
// record without its interval payload.
type AnalysisMetadata struct {
	ID         string                `json:"id"`
	Symbol     string                `json:"symbol"`
	Params     domain.AnalysisParams `json:"params"`
	FromTimeMs int64                 `json:"from_time"`
	ToTimeMs   int64                 `json:"to_time"`
	CreatedAt  int64                 `json:"created_at"`
}

// DataResponse is the wrapped form of one analysis. Older readers
// expected a bare interval array; the wrapped form is what this server
// produces, with intervals always present as an array.
type DataResponse struct {
	Metadata  AnalysisMetadata  `json:"metadata"`
	Intervals []domain.Interval `json:"intervals"`
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	a, err := s.analysisStore.GetByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("analysis %s not found", id))
		return
	}
	if err != nil {
		s.logger.Printf("get analysis %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to load analysis")
		return
	}

	intervals := a.Intervals
	if intervals == nil {
		intervals = []domain.Interval{}
	}
	writeJSON(w, http.StatusOK, DataResponse{
		Metadata: AnalysisMetadata{
			ID:         a.ID,
			Symbol:     a.Symbol,
			Params:     a.Params,
			FromTimeMs: a.FromTimeMs,
			ToTimeMs:   a.ToTimeMs,
			CreatedAt:  a.CreatedAt,
		},
		Intervals: intervals,
	})
}

// historicalWindow resolves the symbol/timestamp/interval query parameters
// into a time range centered on timestamp: half the window on each side.
func historicalWindow(r *http.Request) (symbol string, fromMs, toMs int64, err error) {
	symbol = r.URL.Query().Get("symbol")
	if symbol == "" {
		return "", 0, 0, fmt.Errorf("symbol is required")
	}
	center, err := queryInt64(r, "timestamp", 0)
	if err != nil || center <= 0 {
		return "", 0, 0, fmt.Errorf("timestamp must be a positive unix millisecond value")
	}
	windowMinutes, err := queryInt(r, "interval", DefaultWindowMinutes)
	if err != nil || windowMinutes <= 0 {
		return "", 0, 0, fmt.Errorf("interval must be a positive number of minutes")
	}
	half := int64(windowMinutes) * 60_000 / 2
	return symbol, center - half, center + half, nil
}

// HistoricalPricesResponse is the price history for a historical window.
type HistoricalPricesResponse struct {
	Symbol       string              `json:"symbol"`
	FromTimeMs   int64               `json:"from_time"`
	ToTimeMs     int64               `json:"to_time"`
	PriceHistory []domain.PricePoint `json:"price_history"`
}

func (s *Server) handleHistoricalPrices(w http.ResponseWriter, r *http.Request) {
	symbol, fromMs, toMs, err := historicalWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	points, err := s.tickStore.GetByTimeRange(r.Context(), symbol, fromMs, toMs)
	if err != nil {
		s.logger.Printf("historical price-history %s: %v", symbol, err)
		writeError(w, http.StatusInternalServerError, "failed to load price history")
		return
	}
	if points == nil {
		points = []domain.PricePoint{}
	}
	writeJSON(w, http.StatusOK, HistoricalPricesResponse{
		Symbol:       symbol,
		FromTimeMs:   fromMs,
		ToTimeMs:     toMs,
		PriceHistory: points,
	})
}

// MarkerEvent pairs a whale event with its chart marker size, so every
// consumer renders the same scaling instead of re-deriving it per page.
type MarkerEvent struct {
	domain.WhaleEvent
	MarkerSize float64 `json:"marker_size"`
}

// withMarkerSizes computes batch-normalized marker sizes for an event list.
func withMarkerSizes(events []domain.WhaleEvent) []MarkerEvent {
	sizes := scale.Sizes(events, scale.DefaultConfig())
	out := make([]MarkerEvent, len(events))
	for i, e := range events {
		out[i] = MarkerEvent{WhaleEvent: e, MarkerSize: sizes[i]}
	}
	return out
}

// HistoricalEventsResponse is the whale-event list for a historical window.
type HistoricalEventsResponse struct {
	Symbol      string        `json:"symbol"`
	FromTimeMs  int64         `json:"from_time"`
	ToTimeMs    int64         `json:"to_time"`
	MinUSDValue float64       `json:"min_usd"`
	WhaleEvents []MarkerEvent `json:"whale_events"`
}

func (s *Server) handleHistoricalEvents(w http.ResponseWriter, r *http.Request) {
	symbol, fromMs, toMs, err := historicalWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	minUSD, err := queryFloat(r, "min_usd", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "min_usd must be a number")
		return
	}

	events, err := s.eventStore.GetByTimeRange(r.Context(), symbol, fromMs, toMs, minUSD)
	if err != nil {
		s.logger.Printf("historical whale-events %s: %v", symbol, err)
		writeError(w, http.StatusInternalServerError, "failed to load whale events")
		return
	}
	writeJSON(w, http.StatusOK, HistoricalEventsResponse{
		Symbol:      symbol,
		FromTimeMs:  fromMs,
		ToTimeMs:    toMs,
		MinUSDValue: minUSD,
		WhaleEvents: withMarkerSizes(events),
	})
}

// HistoricalStatsResponse is the category breakdown for a historical window.
type HistoricalStatsResponse struct {
	Symbol      string                                   `json:"symbol"`
	FromTimeMs  int64                                    `json:"from_time"`
	ToTimeMs    int64                                    `json:"to_time"`
	MinUSDValue float64                                  `json:"min_usd"`
	ByCategory  map[domain.Category]domain.CategoryStats `json:"by_category"`
	Total       domain.CategoryStats                     `json:"total"`
}

func (s *Server) handleHistoricalStats(w http.ResponseWriter, r *http.Request) {
	symbol, fromMs, toMs, err := historicalWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	minUSD, err := queryFloat(r, "min_usd", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "min_usd must be a number")
		return
	}

	events, err := s.eventStore.GetByTimeRange(r.Context(), symbol, fromMs, toMs, minUSD)
	if err != nil {
		s.logger.Printf("historical stats %s: %v", symbol, err)
		writeError(w, http.StatusInternalServerError, "failed to load whale events")
		return
	}

	ps := aggregate.ForPeriod(domain.PeriodDuring, events)
	writeJSON(w, http.StatusOK, HistoricalStatsResponse{
		Symbol:      symbol,
		FromTimeMs:  fromMs,
		ToTimeMs:    toMs,
		MinUSDValue: minUSD,
		ByCategory:  ps.ByCategory,
		Total:       ps.Total,
	})
}

// liveWindow resolves symbol/lookback/last_timestamp. When lastTimestamp
// is > 0 the caller wants an incremental fetch: only rows strictly newer
// than it, so a rapid reselection can never resurrect stale rows.
func liveWindow(r *http.Request) (symbol string, sinceMs, fromMs, toMs int64, err error) {
	symbol = r.URL.Query().Get("symbol")
	if symbol == "" {
		return "", 0, 0, 0, fmt.Errorf("symbol is required")
	}
	lookback, err := queryInt(r, "lookback", DefaultLookbackMinutes)
	if err != nil || lookback <= 0 {
		return "", 0, 0, 0, fmt.Errorf("lookback must be a positive number of minutes")
	}
	sinceMs, err = queryInt64(r, "last_timestamp", 0)
	if err != nil {
		return "", 0, 0, 0, fmt.Errorf("last_timestamp must be a unix millisecond value")
	}
	toMs = time.Now().UnixMilli()
	fromMs = toMs - int64(lookback)*60_000
	return symbol, sinceMs, fromMs, toMs, nil
}

// LivePricesResponse is the live price history. LastTimestamp is the
// newest returned timestamp, for use as last_timestamp on the next poll;
// it echoes the request's value when nothing new arrived.
type LivePricesResponse struct {
	Symbol        string              `json:"symbol"`
	PriceHistory  []domain.PricePoint `json:"price_history"`
	LastTimestamp int64               `json:"last_timestamp"`
}

func (s *Server) handleLivePrices(w http.ResponseWriter, r *http.Request) {
	symbol, sinceMs, fromMs, _, err := liveWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var points []domain.PricePoint
	if sinceMs > 0 {
		points, err = s.tickStore.GetSince(r.Context(), symbol, sinceMs)
	} else {
		points, err = s.tickStore.GetByTimeRange(r.Context(), symbol, fromMs, time.Now().UnixMilli())
	}
	if err != nil {
		s.logger.Printf("live price-history %s: %v", symbol, err)
		writeError(w, http.StatusInternalServerError, "failed to load price history")
		return
	}
	if points == nil {
		points = []domain.PricePoint{}
	}

	last := sinceMs
	if len(points) > 0 {
		last = points[len(points)-1].TimestampMs
	}
	writeJSON(w, http.StatusOK, LivePricesResponse{
		Symbol:        symbol,
		PriceHistory:  points,
		LastTimestamp: last,
	})
}

// LiveEventsResponse is the live whale-event list, incremental like
// LivePricesResponse.
type LiveEventsResponse struct {
	Symbol        string        `json:"symbol"`
	WhaleEvents   []MarkerEvent `json:"whale_events"`
	LastTimestamp int64         `json:"last_timestamp"`
}

func (s *Server) handleLiveEvents(w http.ResponseWriter, r *http.Request) {
	symbol, sinceMs, fromMs, _, err := liveWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	minUSD, err := queryFloat(r, "min_usd", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "min_usd must be a number")
		return
	}

	var events []domain.WhaleEvent
	if sinceMs > 0 {
		events, err = s.eventStore.GetSince(r.Context(), symbol, sinceMs, minUSD)
	} else {
		events, err = s.eventStore.GetByTimeRange(r.Context(), symbol, fromMs, time.Now().UnixMilli(), minUSD)
	}
	if err != nil {
		s.logger.Printf("live whale-events %s: %v", symbol, err)
		writeError(w, http.StatusInternalServerError, "failed to load whale events")
		return
	}
	last := sinceMs
	if len(events) > 0 {
		last = events[len(events)-1].TimestampMs
	}
	writeJSON(w, http.StatusOK, LiveEventsResponse{
		Symbol:        symbol,
		WhaleEvents:   withMarkerSizes(events),
		LastTimestamp: last,
	})
}

// RunAnalysisResponse acknowledges a completed analysis run.
type RunAnalysisResponse struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol"`
	Intervals int    `json:"intervals"`
	CreatedAt int64  `json:"created_at"`
}

func (s *Server) handleRunAnalysis(w http.ResponseWriter, r *http.Request) {
	var params domain.AnalysisParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "invalid request body",
			Hint:  `expected JSON like {"symbol":"BTCUSDT","lookback":60,"interval":300,"top":5,"min_change":1.0}`,
		})
		return
	}

	if err := analysis.ValidateParams(&params); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: err.Error(),
			Hint:  "lookback is in minutes, interval in seconds, min_change in percent",
		})
		return
	}

	a, err := s.analysis.Run(r.Context(), params)
	if err != nil {
		s.logger.Printf("run analysis %s: %v", params.Symbol, err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	s.mu.Lock()
	s.analysesRun++
	s.lastAnalysisRun = time.Now()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, RunAnalysisResponse{
		ID:        a.ID,
		Symbol:    a.Symbol,
		Intervals: len(a.Intervals),
		CreatedAt: a.CreatedAt,
	})
}

// DeleteResponse acknowledges a deleted analysis.
type DeleteResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	err := s.analysisStore.Delete(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("analysis %s not found", id))
		return
	}
	if err != nil {
		s.logger.Printf("delete analysis %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to delete analysis")
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Status: "deleted", ID: id})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	symbol, fromMs, toMs, err := historicalWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	minUSD, err := queryFloat(r, "min_usd", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "min_usd must be a number")
		return
	}

	points, err := s.tickStore.GetByTimeRange(r.Context(), symbol, fromMs, toMs)
	if err != nil {
		s.logger.Printf("export price-history %s: %v", symbol, err)
		writeError(w, http.StatusInternalServerError, "failed to load price history")
		return
	}
	events, err := s.eventStore.GetByTimeRange(r.Context(), symbol, fromMs, toMs, minUSD)
	if err != nil {
		s.logger.Printf("export whale-events %s: %v", symbol, err)
		writeError(w, http.StatusInternalServerError, "failed to load whale events")
		return
	}

	artifact := export.Build(symbol, fromMs, toMs, minUSD, points, events)

	filename := fmt.Sprintf("%s_%d_%d.json", symbol, fromMs, toMs)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := export.Write(w, artifact); err != nil {
		s.logger.Printf("write export %s: %v", symbol, err)
	}
}
