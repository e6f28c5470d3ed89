package reporting

import (
	"sort"
	"time"

	"whale-activity-lab/internal/aggregate"
	"whale-activity-lab/internal/domain"
	"whale-activity-lab/internal/insight"
)

// BuildReport assembles a report from a stored analysis.
func BuildReport(a *domain.Analysis, gen *insight.Generator) *Report {
	r := &Report{
		GeneratedAt: time.Now().UTC(),
		AnalysisID:  a.ID,
		Symbol:      a.Symbol,
		Summary: DataSummary{
			LookbackMinutes: a.Params.LookbackMinutes,
			IntervalSeconds: a.Params.IntervalSeconds,
			MinChangePct:    a.Params.MinChangePct,
			FromTimeMs:      a.FromTimeMs,
			ToTimeMs:        a.ToTimeMs,
			IntervalCount:   len(a.Intervals),
		},
	}

	// Pool events by period across all intervals for the category table
	var before, during, after []domain.WhaleEvent

	for i := range a.Intervals {
		iv := a.Intervals[i]
		b := aggregate.ForInterval(iv)

		r.Summary.EventCount += len(iv.WhaleEventsBefore) + len(iv.WhaleEvents) + len(iv.WhaleEventsAfter)
		r.Intervals = append(r.Intervals, IntervalRow{
			Rank:         iv.Rank,
			StartTimeMs:  iv.StartTimeMs,
			EndTimeMs:    iv.EndTimeMs,
			ChangePct:    iv.ChangePct,
			EventsBefore: b.Before.Total.Count,
			EventsDuring: b.During.Total.Count,
			EventsAfter:  b.After.Total.Count,
			USDDuring:    b.During.Total.Volume,
		})

		before = append(before, iv.WhaleEventsBefore...)
		during = append(during, iv.WhaleEvents...)
		after = append(after, iv.WhaleEventsAfter...)

		for _, ins := range gen.Generate(iv, b) {
			r.Insights = append(r.Insights, InsightRow{
				IntervalRank: iv.Rank,
				Type:         string(ins.Type),
				Text:         ins.Text,
			})
		}
	}

	sort.Slice(r.Intervals, func(i, j int) bool {
		return r.Intervals[i].StartTimeMs < r.Intervals[j].StartTimeMs
	})

	periodEvents := map[domain.Period][]domain.WhaleEvent{
		domain.PeriodBefore: before,
		domain.PeriodDuring: during,
		domain.PeriodAfter:  after,
	}
	for _, period := range domain.Periods {
		stats := aggregate.ForPeriod(period, periodEvents[period])
		for _, cat := range domain.Categories {
			cs, ok := stats.ByCategory[cat]
			if !ok || cs.Count == 0 {
				continue
			}
			r.Categories = append(r.Categories, CategoryRow{
				Period:   string(period),
				Category: string(cat),
				Count:    cs.Count,
				Volume:   cs.Volume,
				Percent:  cs.Percent,
			})
		}
	}

	return r
}
