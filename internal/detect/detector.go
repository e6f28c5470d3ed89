package detect

import (
	"math"
	"sort"

	"whale-activity-lab/internal/classify"
	"whale-activity-lab/internal/domain"
)

// Detector finds the strongest price-change intervals in a tick series and
// attaches the surrounding whale-event context to each.
type Detector struct {
	// ContextWindows is how many interval lengths of context to attach on
	// each side of a detected interval.
	ContextWindows int
}

// NewDetector creates a Detector with one context window on each side.
func NewDetector() *Detector {
	return &Detector{ContextWindows: 1}
}

// candidate is a window under consideration before ranking.
type candidate struct {
	startIdx  int
	endIdx    int
	changePct float64
}

// Detect scans price points for windows of params.IntervalSeconds whose
// relative price change meets params.MinChangePct, ranks them by |change %|
// descending and keeps the top params.Top non-overlapping windows.
//
// Points must be ordered by timestamp ASC. Events may arrive in any order;
// each selected interval gets the events inside its context range split
// into before/during/after.
func (d *Detector) Detect(points []domain.PricePoint, events []domain.WhaleEvent, params domain.AnalysisParams) []domain.Interval {
	if len(points) < 2 || params.IntervalSeconds <= 0 || params.Top <= 0 {
		return nil
	}

	windowMs := int64(params.IntervalSeconds) * 1000
	candidates := d.findCandidates(points, windowMs, params.MinChangePct)
	if len(candidates) == 0 {
		return nil
	}

	// Strongest first; earlier window wins a tie so reruns are deterministic.
	sort.Slice(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if math.Abs(ci.changePct) != math.Abs(cj.changePct) {
			return math.Abs(ci.changePct) > math.Abs(cj.changePct)
		}
		return ci.startIdx < cj.startIdx
	})

	selected := selectNonOverlapping(candidates, params.Top)

	// Present intervals in chronological order, ranked by strength.
	rankOf := make(map[int]int, len(selected))
	for rank, c := range selected {
		rankOf[c.startIdx] = rank + 1
	}
	sort.Slice(selected, func(i, j int) bool {
		return selected[i].startIdx < selected[j].startIdx
	})

	intervals := make([]domain.Interval, 0, len(selected))
	for _, c := range selected {
		intervals = append(intervals, d.buildInterval(points, events, c, rankOf[c.startIdx], windowMs, params.Symbol))
	}
	return intervals
}

// findCandidates computes the price change over every window of windowMs
// starting at each point and keeps those meeting the threshold.
func (d *Detector) findCandidates(points []domain.PricePoint, windowMs int64, minChangePct float64) []candidate {
	var candidates []candidate

	for i := 0; i < len(points)-1; i++ {
		if points[i].MidPrice == 0 {
			continue
		}

		// Last point inside [start, start+windowMs]
		endTime := points[i].TimestampMs + windowMs
		j := i
		for j+1 < len(points) && points[j+1].TimestampMs <= endTime {
			j++
		}
		if j == i {
			continue
		}

		changePct := (points[j].MidPrice - points[i].MidPrice) / points[i].MidPrice * 100
		if math.Abs(changePct) < minChangePct {
			continue
		}

		candidates = append(candidates, candidate{startIdx: i, endIdx: j, changePct: changePct})
	}
	return candidates
}

// selectNonOverlapping keeps up to top candidates, greedily skipping any
// window that overlaps an already-selected one. Candidates must be sorted
// strongest first.
func selectNonOverlapping(candidates []candidate, top int) []candidate {
	var selected []candidate
	for _, c := range candidates {
		if len(selected) == top {
			break
		}
		overlaps := false
		for _, s := range selected {
			if c.startIdx <= s.endIdx && s.startIdx <= c.endIdx {
				overlaps = true
				break
			}
		}
		if !overlaps {
			selected = append(selected, c)
		}
	}
	return selected
}

// buildInterval assembles the interval payload: the window's price data
// extended by the context margin, and the context's whale events split by
// period.
func (d *Detector) buildInterval(points []domain.PricePoint, events []domain.WhaleEvent, c candidate, rank int, windowMs int64, symbol string) domain.Interval {
	startMs := points[c.startIdx].TimestampMs
	endMs := points[c.endIdx].TimestampMs

	margin := windowMs * int64(d.ContextWindows)
	ctxStart := startMs - margin
	ctxEnd := endMs + margin

	var priceData []domain.PricePoint
	for _, p := range points {
		if p.TimestampMs >= ctxStart && p.TimestampMs <= ctxEnd {
			priceData = append(priceData, p)
		}
	}

	var ctxEvents []domain.WhaleEvent
	for _, e := range events {
		if e.TimestampMs >= ctxStart && e.TimestampMs <= ctxEnd {
			ctxEvents = append(ctxEvents, e)
		}
	}
	sort.Slice(ctxEvents, func(i, j int) bool {
		return ctxEvents[i].TimestampMs < ctxEvents[j].TimestampMs
	})

	before, during, after := classify.SplitByPeriod(ctxEvents, startMs, endMs)

	return domain.Interval{
		Rank:              rank,
		Symbol:            symbol,
		StartTimeMs:       startMs,
		EndTimeMs:         endMs,
		StartPrice:        points[c.startIdx].MidPrice,
		EndPrice:          points[c.endIdx].MidPrice,
		ChangePct:         c.changePct,
		PriceData:         priceData,
		WhaleEvents:       during,
		WhaleEventsBefore: before,
		WhaleEventsAfter:  after,
	}
}
