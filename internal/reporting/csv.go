package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the interval table as a CSV string.
func RenderCSV(intervals []IntervalRow) string {
	var sb strings.Builder

	sb.WriteString("rank,start_time_ms,end_time_ms,change_pct,events_before,events_during,events_after,usd_during\n")

	for _, iv := range intervals {
		sb.WriteString(fmt.Sprintf("%d,%d,%d,%.6f,%d,%d,%d,%.2f\n",
			iv.Rank,
			iv.StartTimeMs,
			iv.EndTimeMs,
			iv.ChangePct,
			iv.EventsBefore,
			iv.EventsDuring,
			iv.EventsAfter,
			iv.USDDuring,
		))
	}

	return sb.String()
}
