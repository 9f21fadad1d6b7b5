// Package runner executes external introspection commands with a timeout and
// an allow-list of program names.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrNotAllowed is returned for a program that is not on the allow-list.
	ErrNotAllowed = errors.New("runner: program not allowed")
	// ErrTimeout is returned when a command exceeds its deadline.
	ErrTimeout = errors.New("runner: command timed out")
)

// Command is an argument vector. Nothing is passed through a shell.
type Command struct {
	Name string
	Args []string
}

// Cmd is shorthand for building a Command.
func Cmd(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner runs a command and returns its trimmed stdout.
type Runner interface {
	Run(ctx context.Context, cmd Command) (string, error)
}

// CommandError carries the diagnostic output of a failed command.
type CommandError struct {
	Command Command
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// DefaultAllowed lists the telemetry programs the sampler invokes. Robot
// commands run through a separate Exec with its own allow-list.
var DefaultAllowed = []string{
	"uptime", "free", "df", "lscpu", "cat", "vcgencmd", "ls", "ps",
	"iwconfig", "hostname", "i2cget",
}

// DefaultWaitDelay is how long Run waits for output pipes after the
// deadline kills the process.
const DefaultWaitDelay = 500 * time.Millisecond

// Exec spawns real processes. Each command runs in its own process group,
// which is killed as a whole on timeout.
type Exec struct {
	Timeout time.Duration
	Allowed map[string]bool
	// WaitDelay bounds the wait for descendants still holding stdout or
	// stderr once the command is killed.
	WaitDelay time.Duration
}

// NewExec returns an Exec that only spawns the given programs.
func NewExec(timeout time.Duration, allowed []string) *Exec {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	set := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		set[name] = true
	}
	return &Exec{Timeout: timeout, Allowed: set, WaitDelay: DefaultWaitDelay}
}

// Run implements Runner.
func (e *Exec) Run(ctx context.Context, cmd Command) (string, error) {
	if !e.Allowed[cmd.Name] {
		return "", fmt.Errorf("%w: %q", ErrNotAllowed, cmd.Name)
	}
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Stdout = &stdout
	c.Stderr = &stderr
	c.WaitDelay = e.WaitDelay
	killGroup(c)
	err := c.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return "", &CommandError{Command: cmd, Stderr: trim(stderr.String()), Err: ErrTimeout}
	}
	if err != nil {
		return "", &CommandError{Command: cmd, Stderr: trim(stderr.String()), Err: err}
	}
	return trim(stdout.String()), nil
}

func trim(s string) string { return strings.TrimRight(s, " \t\r\n") }
