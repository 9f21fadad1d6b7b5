package parse

import (
	"reflect"
	"testing"
)

func TestCPUModel(t *testing.T) {
	text := `Architecture:                       aarch64
CPU op-mode(s):                     32-bit, 64-bit
Vendor ID:                          ARM
Model name:                         Cortex-A72
Model:                              3`

	if got := CPUModel(text); got != "Cortex-A72" {
		t.Errorf("CPUModel() = %q", got)
	}
	if got := CPUModel("Architecture: x86_64"); got != "" {
		t.Errorf("CPUModel(no model) = %q", got)
	}
}

func TestTemperature(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"48312", 48.3},
		{"51950\n", 52},
		{"0", 0},
		{"", 0},
		{"N/A", 0},
	}
	for _, tt := range tests {
		if got := Temperature(tt.in); got != tt.want {
			t.Errorf("Temperature(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestProcStat(t *testing.T) {
	text := `cpu  1000 20 300 5000 40 0 10 0 0 0
cpu0 50 0 30 20 0 0 0 0 0 0
cpu1 250 5 75 1250 x 0 2 0 0 0
intr 12345 0 0
ctxt 999`

	got := ProcStat(text)
	want := []CoreTicks{
		{Index: 0, User: 50, System: 30, Idle: 20},
		{Index: 1, User: 250, Nice: 5, System: 75, Idle: 1250, SoftIRQ: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ProcStat() = %+v, want %+v", got, want)
	}
	if got[0].Total() != 100 || got[0].Active() != 80 {
		t.Errorf("core0 total=%d active=%d", got[0].Total(), got[0].Active())
	}
}

func TestCoreFreqs(t *testing.T) {
	text := `CPU       MHZ    MAXMHZ   MINMHZ
  0 1500.0000 1800.0000 600.0000
  1  600.0000 1800.0000 600.0000
  2         -         -        -`

	got := CoreFreqs(text)
	want := []CoreFreq{
		{Index: 0, CurMHz: 1500, MaxMHz: 1800, MinMHz: 600},
		{Index: 1, CurMHz: 600, MaxMHz: 1800, MinMHz: 600},
		{Index: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CoreFreqs() = %+v, want %+v", got, want)
	}
	if CoreFreqs("") != nil {
		t.Error("CoreFreqs(empty) != nil")
	}
}
