package derive

import (
	"testing"

	"github.com/Dicklesworthstone/pi_status_agent/internal/model"
	"github.com/Dicklesworthstone/pi_status_agent/internal/parse"
)

func TestCoreUsage(t *testing.T) {
	tests := []struct {
		name  string
		ticks parse.CoreTicks
		want  int
	}{
		{"busy core", parse.CoreTicks{User: 50, System: 30, Idle: 20}, 80},
		{"iowait counts as idle", parse.CoreTicks{User: 25, Idle: 50, IOWait: 25}, 25},
		{"no ticks", parse.CoreTicks{}, 0},
		{"all idle", parse.CoreTicks{Idle: 1000}, 0},
		{"rounding", parse.CoreTicks{User: 2, Idle: 1}, 67},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CoreUsage(tt.ticks); got != tt.want {
				t.Errorf("CoreUsage() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCoreUsageBounds(t *testing.T) {
	for user := uint64(0); user < 50; user += 7 {
		for idle := uint64(0); idle < 50; idle += 5 {
			got := CoreUsage(parse.CoreTicks{User: user, Idle: idle, IOWait: idle / 2})
			if got < 0 || got > 100 {
				t.Fatalf("CoreUsage(user=%d idle=%d) = %d", user, idle, got)
			}
		}
	}
}

func TestCoreUsageDelta(t *testing.T) {
	prev := parse.CoreTicks{User: 100, System: 50, Idle: 800, IOWait: 10}
	cur := parse.CoreTicks{User: 150, System: 75, Idle: 820, IOWait: 15}
	// total +100, idle+iowait +25 => 75
	if got := CoreUsageDelta(prev, cur); got != 75 {
		t.Errorf("CoreUsageDelta() = %d, want 75", got)
	}
	if got := CoreUsageDelta(cur, prev); got != 0 {
		t.Errorf("regressing counters = %d, want 0", got)
	}
	if got := CoreUsageDelta(cur, cur); got != 0 {
		t.Errorf("no change = %d, want 0", got)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		used, total int64
		want        int
	}{
		{2048, 4096, 50},
		{473, 3794, 12},
		{1, 3, 33},
		{5, 0, 0},
		{5, -1, 0},
		{-5, 10, 0},
		{20, 10, 100},
	}
	for _, tt := range tests {
		if got := Percent(tt.used, tt.total); got != tt.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tt.used, tt.total, got, tt.want)
		}
	}
}

func TestFrequencyRange(t *testing.T) {
	if r := FrequencyRange(nil); r != nil {
		t.Errorf("empty = %+v, want nil", r)
	}
	if r := FrequencyRange([]model.Core{{Index: 0}, {Index: 1}}); r != nil {
		t.Errorf("no bounds = %+v, want nil", r)
	}

	cores := []model.Core{
		{Index: 0, MinFreqMHz: 600, MaxFreqMHz: 1800},
		{Index: 1},
		{Index: 2, MinFreqMHz: 400, MaxFreqMHz: 1500},
		{Index: 3, MinFreqMHz: 700, MaxFreqMHz: 2000},
	}
	r := FrequencyRange(cores)
	if r == nil || r.Min != 400 || r.Max != 2000 {
		t.Errorf("FrequencyRange() = %+v, want {400 2000}", r)
	}
}

func TestAverageUsage(t *testing.T) {
	cores := []model.Core{{UsagePercent: 10}, {UsagePercent: 20}, {UsagePercent: 25}}
	if got := AverageUsage(cores); got != 18 {
		t.Errorf("AverageUsage() = %d, want 18", got)
	}
	if got := AverageUsage(nil); got != 0 {
		t.Errorf("AverageUsage(nil) = %d", got)
	}
}

func TestThrottled(t *testing.T) {
	if Throttled(0) {
		t.Error("Throttled(0x0) = true")
	}
	if !Throttled(0x50005) {
		t.Error("Throttled(0x50005) = false")
	}
}
