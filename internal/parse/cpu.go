package parse

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// CPUModel returns the "Model name:" value from lscpu.
func CPUModel(text string) string {
	for _, line := range lines(text) {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "Model name:"); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Temperature converts a thermal_zone reading in millidegrees to °C with one
// decimal.
func Temperature(text string) float64 {
	milli := Float(text)
	return math.Round(milli/100) / 10
}

// CoreTicks are the cumulative jiffy counters of one /proc/stat cpuN line.
type CoreTicks struct {
	Index   int
	User    uint64
	Nice    uint64
	System  uint64
	Idle    uint64
	IOWait  uint64
	IRQ     uint64
	SoftIRQ uint64
	Steal   uint64
}

// Total sums every category. Guest time is already folded into user/nice by
// the kernel and is not counted again.
func (c CoreTicks) Total() uint64 {
	return c.User + c.Nice + c.System + c.Idle + c.IOWait + c.IRQ + c.SoftIRQ + c.Steal
}

// Active is Total without idle and iowait.
func (c CoreTicks) Active() uint64 {
	return c.Total() - c.Idle - c.IOWait
}

// ProcStat extracts the per-core lines (cpu0, cpu1, ...) of /proc/stat.
// The aggregate "cpu" line is skipped.
func ProcStat(text string) []CoreTicks {
	var cores []CoreTicks
	for _, line := range lines(text) {
		f := strings.Fields(line)
		if len(f) == 0 || !strings.HasPrefix(f[0], "cpu") {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimPrefix(f[0], "cpu"))
		if err != nil {
			continue
		}
		cores = append(cores, CoreTicks{
			Index:   idx,
			User:    Uint(field(f, 1)),
			Nice:    Uint(field(f, 2)),
			System:  Uint(field(f, 3)),
			Idle:    Uint(field(f, 4)),
			IOWait:  Uint(field(f, 5)),
			IRQ:     Uint(field(f, 6)),
			SoftIRQ: Uint(field(f, 7)),
			Steal:   Uint(field(f, 8)),
		})
	}
	return cores
}

// CoreFreq is one row of `lscpu -e=CPU,MHZ,MAXMHZ,MINMHZ`.
type CoreFreq struct {
	Index  int
	CurMHz float64
	MaxMHz float64
	MinMHz float64
}

// CoreFreqs parses the lscpu extended table. Columns lscpu cannot fill are
// printed as "-" and become 0.
func CoreFreqs(text string) []CoreFreq {
	var out []CoreFreq
	for _, line := range lines(text) {
		f := strings.Fields(line)
		if len(f) == 0 || !isDigits(f[0]) {
			continue
		}
		idx, _ := strconv.Atoi(f[0])
		out = append(out, CoreFreq{
			Index:  idx,
			CurMHz: Float(field(f, 1)),
			MaxMHz: Float(field(f, 2)),
			MinMHz: Float(field(f, 3)),
		})
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
