// Package server exposes the dashboard HTTP JSON API: analysis files,
// interval data, historical and live market-data queries, on-demand
// analysis runs, and the JSON export artifact.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"whale-activity-lab/internal/analysis"
	"whale-activity-lab/internal/observability"
	"whale-activity-lab/internal/storage"
)

// Query parameter defaults.
const (
	DefaultLookbackMinutes = 60
	DefaultWindowMinutes   = 60
)

// Options configures a Server.
type Options struct {
	EventStore    storage.WhaleEventStore
	TickStore     storage.PriceTickStore
	AnalysisStore storage.AnalysisStore
	Analysis      *analysis.Service

	// Metrics is optional; when nil no API metrics are recorded.
	Metrics *observability.Metrics

	Logger *log.Logger
}

// Server handles the dashboard API. All state it serves lives in the
// stores; the only mutable server state is the run counters for /status.
type Server struct {
	eventStore    storage.WhaleEventStore
	tickStore     storage.PriceTickStore
	analysisStore storage.AnalysisStore
	analysis      *analysis.Service
	metrics       *observability.Metrics
	logger        *log.Logger

	startedAt time.Time

	mu              sync.Mutex
	analysesRun     int
	lastAnalysisRun time.Time
}

// New creates a Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lshortfile)
	}
	return &Server{
		eventStore:    opts.EventStore,
		tickStore:     opts.TickStore,
		analysisStore: opts.AnalysisStore,
		analysis:      opts.Analysis,
		metrics:       opts.Metrics,
		logger:        logger,
		startedAt:     time.Now(),
	}
}

// Handler returns the routed HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/files", s.instrument("/api/files", s.handleFiles))
	mux.HandleFunc("GET /api/data/{id}", s.instrument("/api/data", s.handleData))
	mux.HandleFunc("GET /api/historical/price-history", s.instrument("/api/historical/price-history", s.handleHistoricalPrices))
	mux.HandleFunc("GET /api/historical/whale-events", s.instrument("/api/historical/whale-events", s.handleHistoricalEvents))
	mux.HandleFunc("GET /api/historical/stats", s.instrument("/api/historical/stats", s.handleHistoricalStats))
	mux.HandleFunc("GET /api/live/price-history", s.instrument("/api/live/price-history", s.handleLivePrices))
	mux.HandleFunc("GET /api/live/whale-events", s.instrument("/api/live/whale-events", s.handleLiveEvents))
	mux.HandleFunc("POST /api/run-analysis", s.instrument("/api/run-analysis", s.handleRunAnalysis))
	mux.HandleFunc("DELETE /api/delete/{id}", s.instrument("/api/delete", s.handleDelete))
	mux.HandleFunc("GET /api/export", s.instrument("/api/export", s.handleExport))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)

	return mux
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument wraps a handler with request count and latency metrics.
func (s *Server) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			h(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.metrics.HTTPRequestLatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status          string    `json:"status"`
	Uptime          string    `json:"uptime"`
	StartedAt       time.Time `json:"started_at"`
	AnalysesRun     int       `json:"analyses_run"`
	LastAnalysisRun time.Time `json:"last_analysis_run,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:          "running",
		Uptime:          time.Since(s.startedAt).String(),
		StartedAt:       s.startedAt,
		AnalysesRun:     s.analysesRun,
		LastAnalysisRun: s.lastAnalysisRun,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// errorResponse is the uniform error payload. Every failure mode (bad
// input, missing record, storage error) degrades to this shape so clients
// have one thing to handle.
type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// queryInt reads an integer query parameter, falling back to def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// queryInt64 reads an int64 query parameter, falling back to def when absent.
func queryInt64(r *http.Request, name string, def int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// queryFloat reads a float query parameter, falling back to def when absent.
func queryFloat(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseFloat(raw, 64)
}
