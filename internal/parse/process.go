package parse

import (
	"strings"

	"github.com/Dicklesworthstone/pi_status_agent/internal/model"
)

// CommandWidth is the display width of a process command.
const CommandWidth = 30

// Processes parses `ps aux --sort=-%cpu` and keeps the first n rows after the
// header in the order ps printed them. Blank rows among those n are dropped,
// not replaced by later rows.
func Processes(text string, n int) []model.Process {
	procs := []model.Process{}
	for i, line := range lines(text) {
		if i == 0 {
			continue
		}
		if i > n {
			break
		}
		f := strings.Fields(line)
		if len(f) == 0 {
			continue
		}
		var cmd string
		if len(f) > 10 {
			cmd = strings.Join(f[10:], " ")
		}
		procs = append(procs, model.Process{
			User:    field(f, 0),
			PID:     field(f, 1),
			CPU:     Float(field(f, 2)),
			Mem:     Float(field(f, 3)),
			Command: Truncate(cmd, CommandWidth),
		})
	}
	return procs
}
