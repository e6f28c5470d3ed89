package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders the report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Whale Activity Report: %s\n\n", r.Symbol))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Analysis: %s\n\n", r.AnalysisID))

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Lookback (min) | %d |\n", r.Summary.LookbackMinutes))
	sb.WriteString(fmt.Sprintf("| Interval (s) | %d |\n", r.Summary.IntervalSeconds))
	sb.WriteString(fmt.Sprintf("| Min Change %% | %.2f |\n", r.Summary.MinChangePct))
	sb.WriteString(fmt.Sprintf("| Window Start (ms) | %d |\n", r.Summary.FromTimeMs))
	sb.WriteString(fmt.Sprintf("| Window End (ms) | %d |\n", r.Summary.ToTimeMs))
	sb.WriteString(fmt.Sprintf("| Intervals | %d |\n", r.Summary.IntervalCount))
	sb.WriteString(fmt.Sprintf("| Whale Events | %d |\n", r.Summary.EventCount))
	sb.WriteString("\n")

	sb.WriteString("## Intervals\n\n")
	if len(r.Intervals) > 0 {
		sb.WriteString("| Rank | Start (ms) | End (ms) | Change % | Before | During | After | USD During |\n")
		sb.WriteString("|------|-----------|----------|----------|--------|--------|-------|------------|\n")
		for _, iv := range r.Intervals {
			sb.WriteString(fmt.Sprintf("| %d | %d | %d | %+.2f | %d | %d | %d | %.0f |\n",
				iv.Rank, iv.StartTimeMs, iv.EndTimeMs, iv.ChangePct,
				iv.EventsBefore, iv.EventsDuring, iv.EventsAfter, iv.USDDuring))
		}
	} else {
		sb.WriteString("No intervals detected.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Category Breakdown\n\n")
	if len(r.Categories) > 0 {
		sb.WriteString("| Period | Category | Count | USD Volume | Share % |\n")
		sb.WriteString("|--------|----------|-------|------------|--------|\n")
		for _, c := range r.Categories {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %.0f | %.1f |\n",
				c.Period, c.Category, c.Count, c.Volume, c.Percent))
		}
	} else {
		sb.WriteString("No whale events in any interval.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Insights\n\n")
	if len(r.Insights) > 0 {
		for _, ins := range r.Insights {
			sb.WriteString(fmt.Sprintf("- [interval %d] %s: %s\n", ins.IntervalRank, ins.Type, ins.Text))
		}
	} else {
		sb.WriteString("No insights generated.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
