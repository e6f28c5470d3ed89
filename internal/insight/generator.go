// Package insight derives canned natural-language observations from an
// interval's period aggregates using fixed numeric thresholds.
package insight

import (
	"fmt"
	"math"

	"whale-activity-lab/internal/aggregate"
	"whale-activity-lab/internal/classify"
	"whale-activity-lab/internal/domain"
)

// Config holds the insight thresholds. The dashboard variants disagreed on
// whether the insight list is capped, so the cap is explicit here:
// MaxInsights == 0 means uncapped.
type Config struct {
	ActivityChangePct  float64 // |count change %| that makes activity notable
	PreSpikeUSD        float64 // minimum usd_value for a pre-spike whale
	PreSpikeWindowMs   int64   // how close to the spike start the whale must be
	ConcentrationPct   float64 // during-volume share that counts as concentrated
	DominanceRatio     float64 // side volume ratio that counts as dominant
	FollowThroughRatio float64 // after/during count ratio for follow-through
	MaxInsights        int     // 0 = uncapped
}

// DefaultConfig returns the thresholds used by the dashboards.
func DefaultConfig() Config {
	return Config{
		ActivityChangePct:  20,
		PreSpikeUSD:        1000,
		PreSpikeWindowMs:   10_000,
		ConcentrationPct:   40,
		DominanceRatio:     1.5,
		FollowThroughRatio: 1.3,
	}
}

// Generator produces insights for intervals.
type Generator struct {
	config Config
}

// NewGenerator creates a generator with the given thresholds.
func NewGenerator(config Config) *Generator {
	return &Generator{config: config}
}

// Generate evaluates every rule independently against the interval's
// breakdown and returns the insights in rule order. Returns nil when the
// during period has no events: with an empty spike window there is
// nothing to observe.
func (g *Generator) Generate(iv domain.Interval, b domain.IntervalBreakdown) []domain.Insight {
	if b.During.Total.Count == 0 {
		return nil
	}

	var insights []domain.Insight

	if ins, ok := g.activityChange(b); ok {
		insights = append(insights, ins)
	}
	if ins, ok := g.preSpikeWhale(iv); ok {
		insights = append(insights, ins)
	}
	if ins, ok := g.volumeConcentration(b); ok {
		insights = append(insights, ins)
	}
	if ins, ok := g.sideDominance(iv, b); ok {
		insights = append(insights, ins)
	}
	if ins, ok := g.followThrough(b); ok {
		insights = append(insights, ins)
	}

	if g.config.MaxInsights > 0 && len(insights) > g.config.MaxInsights {
		insights = insights[:g.config.MaxInsights]
	}
	return insights
}

// activityChange compares during-period event count against the average
// of the surrounding periods.
func (g *Generator) activityChange(b domain.IntervalBreakdown) (domain.Insight, bool) {
	baseline := float64(b.Before.Total.Count+b.After.Total.Count) / 2
	if baseline == 0 {
		return domain.Insight{}, false
	}

	changePct := (float64(b.During.Total.Count) - baseline) / baseline * 100
	if math.Abs(changePct) <= g.config.ActivityChangePct {
		return domain.Insight{}, false
	}

	if changePct > 0 {
		return domain.Insight{
			Type:  domain.InsightPositive,
			Icon:  "📈",
			Text:  fmt.Sprintf("Whale activity increased %.0f%% during the price move", changePct),
			Value: changePct,
		}, true
	}
	return domain.Insight{
		Type:  domain.InsightNegative,
		Icon:  "📉",
		Text:  fmt.Sprintf("Whale activity dropped %.0f%% during the price move", -changePct),
		Value: changePct,
	}, true
}

// preSpikeWhale looks for the most recent large event shortly before the
// interval starts.
func (g *Generator) preSpikeWhale(iv domain.Interval) (domain.Insight, bool) {
	before, _, _ := classify.SplitInterval(iv)

	var latest *domain.WhaleEvent
	for i := range before {
		e := &before[i]
		if e.USDValue <= g.config.PreSpikeUSD {
			continue
		}
		if iv.StartTimeMs-e.TimestampMs > g.config.PreSpikeWindowMs {
			continue
		}
		if latest == nil || e.TimestampMs > latest.TimestampMs {
			latest = e
		}
	}
	if latest == nil {
		return domain.Insight{}, false
	}

	secondsBefore := float64(iv.StartTimeMs-latest.TimestampMs) / 1000
	return domain.Insight{
		Type:  domain.InsightWarning,
		Icon:  "⏱️",
		Text:  fmt.Sprintf("$%.0f whale event %.1fs before the spike started", latest.USDValue, secondsBefore),
		Value: latest.USDValue,
	}, true
}

// volumeConcentration checks whether whale volume clustered inside the
// spike window.
func (g *Generator) volumeConcentration(b domain.IntervalBreakdown) (domain.Insight, bool) {
	total := b.Before.Total.Volume + b.During.Total.Volume + b.After.Total.Volume
	if total == 0 {
		return domain.Insight{}, false
	}

	share := b.During.Total.Volume / total * 100
	if share <= g.config.ConcentrationPct {
		return domain.Insight{}, false
	}
	return domain.Insight{
		Type:  domain.InsightInfo,
		Icon:  "🎯",
		Text:  fmt.Sprintf("%.0f%% of whale volume concentrated during the move", share),
		Value: share,
	}, true
}

// sideDominance compares bid-side and ask-side volume during the move and
// reads it against the price direction. Dominance that matches the
// direction is a conviction signal; dominance against it is a warning
// that the pressure was absorbed.
func (g *Generator) sideDominance(iv domain.Interval, b domain.IntervalBreakdown) (domain.Insight, bool) {
	bidVolume, askVolume := aggregate.SideVolumes(b.During)
	rose := iv.Direction() > 0
	fell := iv.Direction() < 0

	switch {
	case bidVolume > askVolume*g.config.DominanceRatio && rose:
		return domain.Insight{
			Type: domain.InsightPositive,
			Icon: "🐂",
			Text: fmt.Sprintf("Bid-side volume dominated %.1fx while price rose", ratio(bidVolume, askVolume)),
		}, true
	case bidVolume > askVolume*g.config.DominanceRatio && fell:
		return domain.Insight{
			Type: domain.InsightWarning,
			Icon: "⚠️",
			Text: "Heavy bid-side volume but price fell: buying was absorbed",
		}, true
	case askVolume > bidVolume*g.config.DominanceRatio && fell:
		return domain.Insight{
			Type: domain.InsightNegative,
			Icon: "🐻",
			Text: fmt.Sprintf("Ask-side volume dominated %.1fx while price fell", ratio(askVolume, bidVolume)),
		}, true
	case askVolume > bidVolume*g.config.DominanceRatio && rose:
		return domain.Insight{
			Type: domain.InsightWarning,
			Icon: "⚠️",
			Text: "Heavy ask-side volume but price rose: selling was absorbed",
		}, true
	}
	return domain.Insight{}, false
}

// followThrough checks whether activity kept building after the move.
func (g *Generator) followThrough(b domain.IntervalBreakdown) (domain.Insight, bool) {
	if float64(b.After.Total.Count) <= float64(b.During.Total.Count)*g.config.FollowThroughRatio {
		return domain.Insight{}, false
	}
	return domain.Insight{
		Type: domain.InsightInfo,
		Icon: "🔄",
		Text: fmt.Sprintf("Whale activity kept building after the move (%d events vs %d during)", b.After.Total.Count, b.During.Total.Count),
	}, true
}

// ratio divides a by b, treating a zero denominator as an effectively
// infinite dominance capped for display.
func ratio(a, b float64) float64 {
	if b == 0 {
		return 99
	}
	return a / b
}
