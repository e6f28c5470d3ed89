package reporting

import "time"

// Report is the rendered summary of one analysis run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	AnalysisID  string
	Symbol      string

	// Data Summary
	Summary DataSummary

	// Interval table (sorted by start time)
	Intervals []IntervalRow

	// Category breakdown aggregated across all intervals
	Categories []CategoryRow

	// Insights per interval
	Insights []InsightRow
}

// DataSummary describes the analyzed window.
type DataSummary struct {
	LookbackMinutes int
	IntervalSeconds int
	MinChangePct    float64
	FromTimeMs      int64
	ToTimeMs        int64
	IntervalCount   int
	EventCount      int
}

// IntervalRow is one row in the interval table.
type IntervalRow struct {
	Rank         int
	StartTimeMs  int64
	EndTimeMs    int64
	ChangePct    float64
	EventsBefore int
	EventsDuring int
	EventsAfter  int
	USDDuring    float64
}

// CategoryRow aggregates one category within one period.
type CategoryRow struct {
	Period   string
	Category string
	Count    int
	Volume   float64
	Percent  float64
}

// InsightRow is one generated insight attributed to its interval.
type InsightRow struct {
	IntervalRank int
	Type         string
	Text         string
}
