package domain

// InsightType colors an insight for display.
type InsightType string

// Insight types.
const (
	InsightPositive InsightType = "positive"
	InsightNegative InsightType = "negative"
	InsightWarning  InsightType = "warning"
	InsightInfo     InsightType = "info"
)

// Insight is one canned natural-language observation about an interval,
// produced by fixed-threshold rules over the period aggregates.
type Insight struct {
	Type  InsightType `json:"type"`
	Icon  string      `json:"icon"`
	Text  string      `json:"text"`
	Value float64     `json:"value,omitempty"`
}
