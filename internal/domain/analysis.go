package domain

// AnalysisParams are the request parameters for an analysis run.
type AnalysisParams struct {
	Symbol          string  `json:"symbol"`
	LookbackMinutes int     `json:"lookback"`   // how far back to scan, in minutes
	IntervalSeconds int     `json:"interval"`   // detection window length, in seconds
	Top             int     `json:"top"`        // number of intervals to keep
	MinChangePct    float64 `json:"min_change"` // minimum |change %| to qualify
}

// Analysis is one completed analysis run: the detected price-change
// intervals for a symbol over a lookback window.
// Metadata corresponds to the analyses table in PostgreSQL; intervals are
// stored as a JSON document alongside it.
type Analysis struct {
	ID         string         `json:"id"` // UUID
	Symbol     string         `json:"symbol"`
	Params     AnalysisParams `json:"params"`
	FromTimeMs int64          `json:"from_time"`
	ToTimeMs   int64          `json:"to_time"`
	CreatedAt  int64          `json:"created_at"` // Unix timestamp in milliseconds
	Intervals  []Interval     `json:"intervals"`
}

// AnalysisInfo is the listing entry served by the files endpoint.
type AnalysisInfo struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol"`
	FromTime  int64  `json:"from_time"`
	ToTime    int64  `json:"to_time"`
	CreatedAt int64  `json:"created_at"`
	Intervals int    `json:"intervals"`
}
