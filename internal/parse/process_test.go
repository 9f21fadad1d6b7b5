package parse

import (
	"strings"
	"testing"
)

const psSample = `USER         PID %CPU %MEM    VSZ   RSS TTY      STAT START   TIME COMMAND
pi          1234 25.3  4.1 512000 160000 ?       Sl   10:00   5:12 /usr/lib/chromium-browser/chromium-browser --type=renderer --lang=en
root         567 10.0  0.5  20000  8000 ?        Ss   09:00   0:30 node server.js
pi          2345  3.2  1.0  30000 40000 ?        S    10:05   0:02 python3 camera_stream.py
root           1  0.5  0.3 168000 11000 ?        Ss   09:00   0:04 /sbin/init
root           2  0.4  0.0      0     0 ?        S    09:00   0:00 [kthreadd]
root           3  0.3  0.0      0     0 ?        I<   09:00   0:00 [rcu_gp]
root           4  0.2  0.0      0     0 ?        I<   09:00   0:00 [rcu_par_gp]
root           5  0.1  0.0      0     0 ?        I    09:00   0:00 [kworker/0:0]
root           6  0.0  0.0      0     0 ?        I<   09:00   0:00 [kworker/0:0H]`

func TestProcesses(t *testing.T) {
	procs := Processes(psSample, 7)
	if len(procs) != 7 {
		t.Fatalf("len = %d, want 7", len(procs))
	}

	first := procs[0]
	if first.User != "pi" || first.PID != "1234" || first.CPU != 25.3 || first.Mem != 4.1 {
		t.Errorf("first = %+v", first)
	}
	if first.Command != "/usr/lib/chromium-browser/chro" {
		t.Errorf("command not truncated to %d: %q", CommandWidth, first.Command)
	}
	if procs[1].Command != "node server.js" {
		t.Errorf("procs[1].Command = %q", procs[1].Command)
	}

	// ps already sorted by cpu; order is preserved as printed.
	for i := 1; i < len(procs); i++ {
		if procs[i].CPU > procs[i-1].CPU {
			t.Errorf("order changed at %d", i)
		}
	}
	if procs[6].Command != "[rcu_par_gp]" {
		t.Errorf("last kept = %q", procs[6].Command)
	}
}

func TestProcessesShortRows(t *testing.T) {
	procs := Processes("USER PID\nroot 1 x", 7)
	if len(procs) != 1 {
		t.Fatalf("len = %d", len(procs))
	}
	if procs[0].CPU != 0 || procs[0].Command != "" {
		t.Errorf("short row = %+v", procs[0])
	}
	if got := Processes("", 7); got == nil || len(got) != 0 {
		t.Errorf("Processes(empty) = %#v", got)
	}
}

func TestProcessesBlankRowNotRefilled(t *testing.T) {
	rows := strings.Split(psSample, "\n")
	// A blank line as the third data row.
	text := strings.Join(append(rows[:3:3], append([]string{""}, rows[3:]...)...), "\n")

	procs := Processes(text, 7)
	if len(procs) != 6 {
		t.Fatalf("len = %d, want 6", len(procs))
	}
	if procs[5].Command != "[rcu_gp]" {
		t.Errorf("last kept = %q, want the sixth ps row", procs[5].Command)
	}
}
