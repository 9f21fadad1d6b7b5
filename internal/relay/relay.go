// Package relay forwards validated movement commands to the robot control
// script. Commands are checked against a fixed allow-list and run as an
// argument vector, never through a shell.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/Dicklesworthstone/pi_status_agent/internal/runner"
)

const (
	MinSpeed     = 10
	MaxSpeed     = 100
	DefaultSpeed = 50
)

var (
	ErrUnknownCommand  = errors.New("relay: unknown command")
	ErrSpeedOutOfRange = errors.New("relay: speed out of range")
	// ErrDisabled is returned when no control script is configured.
	ErrDisabled = errors.New("relay: no control script configured")
)

// Commands is the allow-list of robot commands.
var Commands = []string{
	"forward", "backward", "left", "right", "stop",
	"camera_up", "camera_down", "camera_left", "camera_right", "camera_center",
	"dance", "wave", "patrol",
}

var allowed = func() map[string]bool {
	m := make(map[string]bool, len(Commands))
	for _, c := range Commands {
		m[c] = true
	}
	return m
}()

// Task identifies one dispatched command.
type Task struct {
	ID      string `json:"taskId"`
	Command string `json:"command"`
	Speed   int    `json:"speed"`
}

// Relay launches control-script invocations.
type Relay struct {
	Runner  runner.Runner
	Script  string
	Python  string
	UseSudo bool
	Logger  *slog.Logger
	NewID   func() string

	wg sync.WaitGroup
}

// Validate checks command against the allow-list and speed against
// [MinSpeed, MaxSpeed].
func Validate(command string, speed int) error {
	if !allowed[command] {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
	if speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrSpeedOutOfRange, speed, MinSpeed, MaxSpeed)
	}
	return nil
}

// Command builds the argument vector for an already validated request.
func (r *Relay) Command(command string, speed int) runner.Command {
	python := r.Python
	if python == "" {
		python = "python3"
	}
	args := []string{r.Script, command, strconv.Itoa(speed)}
	if r.UseSudo {
		return runner.Cmd("sudo", append([]string{python}, args...)...)
	}
	return runner.Cmd(python, args...)
}

// Dispatch validates the request and starts it as a detached task. It
// returns as soon as the task is started; the outcome is only logged.
func (r *Relay) Dispatch(command string, speed int) (Task, error) {
	if r.Script == "" {
		return Task{}, ErrDisabled
	}
	if err := Validate(command, speed); err != nil {
		return Task{}, err
	}
	task := Task{ID: r.newID(), Command: command, Speed: speed}
	cmd := r.Command(command, speed)
	Detached(&r.wg, r.logger(), task, func(ctx context.Context) (string, error) {
		return r.Runner.Run(ctx, cmd)
	})
	return task, nil
}

// Wait blocks until every dispatched task has finished or ctx is done.
func (r *Relay) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("relay: tasks still running: %w", ctx.Err())
	}
}

// Detached runs fn on its own goroutine under a background context, so the
// request that started it may end first. The outcome is logged.
func Detached(wg *sync.WaitGroup, logger *slog.Logger, task Task, fn func(context.Context) (string, error)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if p := recover(); p != nil {
				logger.Error("robot command panicked", "task", task.ID, "command", task.Command, "panic", p)
			}
		}()
		out, err := fn(context.Background())
		if err != nil {
			var ce *runner.CommandError
			stderr := ""
			if errors.As(err, &ce) {
				stderr = ce.Stderr
			}
			logger.Error("robot command failed", "task", task.ID, "command", task.Command, "speed", task.Speed, "error", err, "stderr", stderr)
			return
		}
		logger.Info("robot command executed", "task", task.ID, "command", task.Command, "speed", task.Speed, "stdout", out)
	}()
}

func (r *Relay) newID() string {
	if r.NewID == nil {
		return uuid.NewString()
	}
	return r.NewID()
}

func (r *Relay) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r.Logger
}
