// Package derive computes percentages, ranges and flags from parsed values.
package derive

import (
	"math"

	"github.com/Dicklesworthstone/pi_status_agent/internal/model"
	"github.com/Dicklesworthstone/pi_status_agent/internal/parse"
)

// CoreUsage is round(100*active/total) over cumulative ticks.
func CoreUsage(t parse.CoreTicks) int {
	return ratio(float64(t.Active()), float64(t.Total()))
}

// CoreUsageDelta computes usage over the interval between two readings of
// the same core. A counter that went backwards (hotplug, wrap) yields 0.
func CoreUsageDelta(prev, cur parse.CoreTicks) int {
	if cur.Total() < prev.Total() || cur.Idle < prev.Idle || cur.IOWait < prev.IOWait {
		return 0
	}
	total := cur.Total() - prev.Total()
	idle := (cur.Idle - prev.Idle) + (cur.IOWait - prev.IOWait)
	if idle > total {
		return 0
	}
	return ratio(float64(total-idle), float64(total))
}

// Percent is round(100*used/total), 0 when total is not positive.
func Percent(used, total int64) int {
	return ratio(float64(used), float64(total))
}

func ratio(num, den float64) int {
	if den <= 0 {
		return 0
	}
	return clamp(int(math.Round(100 * num / den)))
}

func clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// FrequencyRange returns the lowest reported minimum and highest reported
// maximum. It returns nil when no core reported a bound.
func FrequencyRange(cores []model.Core) *model.FreqRange {
	var r *model.FreqRange
	for _, c := range cores {
		if c.MinFreqMHz <= 0 && c.MaxFreqMHz <= 0 {
			continue
		}
		if r == nil {
			r = &model.FreqRange{Min: c.MinFreqMHz, Max: c.MaxFreqMHz}
			continue
		}
		if c.MinFreqMHz > 0 && (r.Min <= 0 || c.MinFreqMHz < r.Min) {
			r.Min = c.MinFreqMHz
		}
		if c.MaxFreqMHz > r.Max {
			r.Max = c.MaxFreqMHz
		}
	}
	return r
}

// AverageUsage is the rounded mean of per-core usage.
func AverageUsage(cores []model.Core) int {
	if len(cores) == 0 {
		return 0
	}
	var sum int
	for _, c := range cores {
		sum += c.UsagePercent
	}
	return clamp(int(math.Round(float64(sum) / float64(len(cores)))))
}

// Throttled reports whether the raw throttling bitmask differs from 0x0.
func Throttled(raw uint64) bool {
	return raw != 0
}
