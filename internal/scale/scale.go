// Package scale normalizes whale-event usd values into marker sizes for
// chart overlays. The dashboards drifted between linear and logarithmic
// scaling for the same purpose; here the curve is an explicit strategy
// chosen by configuration.
package scale

import (
	"math"

	"whale-activity-lab/internal/domain"
)

// Mode selects the normalization curve.
type Mode string

// Scaling modes.
const (
	ModeLinear      Mode = "linear"
	ModeLogarithmic Mode = "log"
)

// Config bounds the produced marker sizes.
type Config struct {
	Mode     Mode
	MinSize  float64
	MaxSize  float64
	BaseSize float64 // used when all events in a batch have equal usd value
}

// DefaultConfig returns the marker band used by the charts.
func DefaultConfig() Config {
	return Config{
		Mode:     ModeLogarithmic,
		MinSize:  6,
		MaxSize:  28,
		BaseSize: 12,
	}
}

// Sizes maps each event's usd value into [MinSize, MaxSize].
// The batch minimum maps to MinSize and the maximum to MaxSize; when all
// values are equal every marker gets BaseSize. Results are positionally
// aligned with the input.
func Sizes(events []domain.WhaleEvent, cfg Config) []float64 {
	if len(events) == 0 {
		return nil
	}

	minUSD, maxUSD := events[0].USDValue, events[0].USDValue
	for _, e := range events[1:] {
		if e.USDValue < minUSD {
			minUSD = e.USDValue
		}
		if e.USDValue > maxUSD {
			maxUSD = e.USDValue
		}
	}

	sizes := make([]float64, len(events))
	if minUSD == maxUSD {
		for i := range sizes {
			sizes[i] = cfg.BaseSize
		}
		return sizes
	}

	for i, e := range events {
		t := normalize(e.USDValue, minUSD, maxUSD, cfg.Mode)
		sizes[i] = cfg.MinSize + t*(cfg.MaxSize-cfg.MinSize)
	}
	return sizes
}

// normalize maps v in [min, max] to [0, 1] with the configured curve.
func normalize(v, min, max float64, mode Mode) float64 {
	if mode == ModeLogarithmic {
		// Shift by 1 so zero usd values stay defined.
		lo := math.Log1p(min)
		hi := math.Log1p(max)
		if hi == lo {
			return 0
		}
		return (math.Log1p(v) - lo) / (hi - lo)
	}
	return (v - min) / (max - min)
}

// SpikePoint returns the index of the point with the largest absolute
// price delta strictly inside [startMs, endMs], or -1 when fewer than two
// in-window points exist. The delta at index i is price[i] - price[i-1],
// both points in-window.
func SpikePoint(points []domain.PricePoint, startMs, endMs int64) int {
	best := -1
	bestDelta := 0.0

	for i := 1; i < len(points); i++ {
		if points[i-1].TimestampMs <= startMs || points[i].TimestampMs >= endMs {
			continue
		}
		delta := math.Abs(points[i].MidPrice - points[i-1].MidPrice)
		if best == -1 || delta > bestDelta {
			best = i
			bestDelta = delta
		}
	}
	return best
}
