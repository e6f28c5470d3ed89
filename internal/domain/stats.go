package domain

// CategoryStats holds the aggregate for one category within one period.
// Derived, never stored: recomputed from the event list on every request.
type CategoryStats struct {
	Count   int     `json:"count"`
	Volume  float64 `json:"volume"`  // sum of usd_value
	Avg     float64 `json:"avg"`     // Volume / Count, 0 when Count == 0
	Largest float64 `json:"largest"` // max usd_value, 0 when empty
	Percent float64 `json:"percent"` // Count / period total * 100, 0 when total == 0
}

// PeriodStats is the full category breakdown for one period.
// Invariant: Total.Count and Total.Volume equal the sums over ByCategory,
// and the category Percent values sum to 100 (within rounding) when
// Total.Count > 0.
type PeriodStats struct {
	Period     Period                     `json:"period"`
	ByCategory map[Category]CategoryStats `json:"by_category"`
	Total      CategoryStats              `json:"total"`
}

// IntervalBreakdown is the aggregate view of one interval: one PeriodStats
// per period, recomputed from the interval's event lists.
type IntervalBreakdown struct {
	Before PeriodStats `json:"before"`
	During PeriodStats `json:"during"`
	After  PeriodStats `json:"after"`
}
