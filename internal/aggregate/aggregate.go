// Package aggregate computes per-category and per-period statistics from
// classified whale events. All denominators are guarded: an empty list
// yields zeroes, never NaN or Inf.
package aggregate

import (
	"whale-activity-lab/internal/classify"
	"whale-activity-lab/internal/domain"
)

// Stats computes the aggregate for a single event list (one category or
// one period): count, usd volume, average, and largest single event.
// Percent is left to the caller since it needs the period total.
func Stats(events []domain.WhaleEvent) domain.CategoryStats {
	s := domain.CategoryStats{Count: len(events)}
	for _, e := range events {
		s.Volume += e.USDValue
		if e.USDValue > s.Largest {
			s.Largest = e.USDValue
		}
	}
	if s.Count > 0 {
		s.Avg = s.Volume / float64(s.Count)
	}
	return s
}

// ForPeriod computes the full category breakdown for one period's events.
// The categories partition the input, so Total equals the sum of the
// category rows and the Percent values sum to 100 when Count > 0.
func ForPeriod(period domain.Period, events []domain.WhaleEvent) domain.PeriodStats {
	ps := domain.PeriodStats{
		Period:     period,
		ByCategory: make(map[domain.Category]domain.CategoryStats, len(domain.Categories)),
		Total:      Stats(events),
	}

	groups := classify.ByCategory(events)
	for _, c := range domain.Categories {
		cs := Stats(groups[c])
		if ps.Total.Count > 0 {
			cs.Percent = float64(cs.Count) / float64(ps.Total.Count) * 100
		}
		ps.ByCategory[c] = cs
	}
	if ps.Total.Count > 0 {
		ps.Total.Percent = 100
	}
	return ps
}

// ForInterval computes the before/during/after breakdown for an interval.
func ForInterval(iv domain.Interval) domain.IntervalBreakdown {
	before, during, after := classify.SplitInterval(iv)
	return domain.IntervalBreakdown{
		Before: ForPeriod(domain.PeriodBefore, before),
		During: ForPeriod(domain.PeriodDuring, during),
		After:  ForPeriod(domain.PeriodAfter, after),
	}
}

// SideVolumes sums usd volume on the bid-flavored and ask-flavored
// categories of one period. Market buys count toward bids (buy pressure),
// market sells toward asks. CategoryOther contributes to neither.
func SideVolumes(ps domain.PeriodStats) (bidVolume, askVolume float64) {
	for c, cs := range ps.ByCategory {
		switch c {
		case domain.CategoryNewBid, domain.CategoryBidIncrease, domain.CategoryBidDecrease, domain.CategoryMarketBuy:
			bidVolume += cs.Volume
		case domain.CategoryNewAsk, domain.CategoryAskIncrease, domain.CategoryAskDecrease, domain.CategoryMarketSell:
			askVolume += cs.Volume
		}
	}
	return bidVolume, askVolume
}
