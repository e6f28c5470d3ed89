package classify

import "whale-activity-lab/internal/domain"

// PeriodOf places an event relative to [startMs, endMs].
// Boundary timestamps belong to "during": an event at exactly start_time
// or end_time is during, not before/after.
func PeriodOf(timestampMs, startMs, endMs int64) domain.Period {
	switch {
	case timestampMs < startMs:
		return domain.PeriodBefore
	case timestampMs > endMs:
		return domain.PeriodAfter
	default:
		return domain.PeriodDuring
	}
}

// SplitByPeriod partitions events into before/during/after relative to
// [startMs, endMs] and tags each copied event with its period.
// The returned slices preserve input order.
func SplitByPeriod(events []domain.WhaleEvent, startMs, endMs int64) (before, during, after []domain.WhaleEvent) {
	for _, e := range events {
		e.Period = PeriodOf(e.TimestampMs, startMs, endMs)
		switch e.Period {
		case domain.PeriodBefore:
			before = append(before, e)
		case domain.PeriodDuring:
			during = append(during, e)
		case domain.PeriodAfter:
			after = append(after, e)
		}
	}
	return before, during, after
}

// SplitInterval returns the interval's event lists tagged with their
// periods. When the interval already carries pre-split lists they are
// used as-is (tags applied); an interval with all events merged into
// WhaleEvents is re-split with SplitByPeriod. Both paths agree on
// boundary inclusivity.
func SplitInterval(iv domain.Interval) (before, during, after []domain.WhaleEvent) {
	if len(iv.WhaleEventsBefore) == 0 && len(iv.WhaleEventsAfter) == 0 {
		return SplitByPeriod(iv.WhaleEvents, iv.StartTimeMs, iv.EndTimeMs)
	}

	before = tagged(iv.WhaleEventsBefore, domain.PeriodBefore)
	during = tagged(iv.WhaleEvents, domain.PeriodDuring)
	after = tagged(iv.WhaleEventsAfter, domain.PeriodAfter)
	return before, during, after
}

func tagged(events []domain.WhaleEvent, p domain.Period) []domain.WhaleEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]domain.WhaleEvent, len(events))
	for i, e := range events {
		e.Period = p
		out[i] = e
	}
	return out
}
