package relay

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dicklesworthstone/pi_status_agent/internal/runner"
)

// syncBuffer is a bytes.Buffer safe for the detached goroutine to write.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestValidate(t *testing.T) {
	tests := []struct {
		command string
		speed   int
		want    error
	}{
		{"forward", 50, nil},
		{"camera_center", MinSpeed, nil},
		{"patrol", MaxSpeed, nil},
		{"forward; rm -rf /", 50, ErrUnknownCommand},
		{"$(reboot)", 50, ErrUnknownCommand},
		{"", 50, ErrUnknownCommand},
		{"FORWARD", 50, ErrUnknownCommand},
		{"forward", 9, ErrSpeedOutOfRange},
		{"forward", 101, ErrSpeedOutOfRange},
		{"stop", 0, ErrSpeedOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			err := Validate(tt.command, tt.speed)
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate(%q, %d) = %v, want %v", tt.command, tt.speed, err, tt.want)
			}
		})
	}
}

func TestCommand(t *testing.T) {
	r := &Relay{Script: "/opt/crawler/control.py", UseSudo: true}
	if got := r.Command("wave", 80).String(); got != "sudo python3 /opt/crawler/control.py wave 80" {
		t.Errorf("Command() = %q", got)
	}
	r.UseSudo = false
	r.Python = "/usr/bin/python3"
	if got := r.Command("stop", 10).String(); got != "/usr/bin/python3 /opt/crawler/control.py stop 10" {
		t.Errorf("Command() = %q", got)
	}
}

func TestDispatch(t *testing.T) {
	line := "sudo python3 /opt/crawler/control.py forward 60"
	f := runner.NewFake(map[string]string{line: "moving forward"})
	logs := &syncBuffer{}
	r := &Relay{
		Runner:  f,
		Script:  "/opt/crawler/control.py",
		UseSudo: true,
		Logger:  slog.New(slog.NewTextHandler(logs, nil)),
		NewID:   func() string { return "task-1" },
	}

	task, err := r.Dispatch("forward", 60)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if task != (Task{ID: "task-1", Command: "forward", Speed: 60}) {
		t.Errorf("task = %+v", task)
	}
	waitTasks(t, r)
	if !f.Called(line) {
		t.Errorf("calls = %v", f.Calls())
	}
	if !strings.Contains(logs.String(), "robot command executed") {
		t.Errorf("log = %q", logs.String())
	}
}

func TestDispatchRejectsBeforeRunning(t *testing.T) {
	f := runner.NewFake(nil)
	r := &Relay{Runner: f, Script: "/opt/crawler/control.py"}

	if _, err := r.Dispatch("forward && reboot", 50); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Dispatch(injection) = %v", err)
	}
	if _, err := r.Dispatch("left", 500); !errors.Is(err, ErrSpeedOutOfRange) {
		t.Errorf("Dispatch(speed) = %v", err)
	}
	waitTasks(t, r)
	if len(f.Calls()) != 0 {
		t.Errorf("rejected requests ran commands: %v", f.Calls())
	}

	r.Script = ""
	if _, err := r.Dispatch("stop", 50); !errors.Is(err, ErrDisabled) {
		t.Errorf("Dispatch(no script) = %v", err)
	}
}

func TestDetachedLogsFailure(t *testing.T) {
	f := runner.NewFake(nil)
	f.Errors["python3 /x.py dance 50"] = errors.New("exit status 1")
	logs := &syncBuffer{}
	r := &Relay{Runner: f, Script: "/x.py", Logger: slog.New(slog.NewTextHandler(logs, nil))}

	if _, err := r.Dispatch("dance", 50); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	waitTasks(t, r)
	if !strings.Contains(logs.String(), "robot command failed") {
		t.Errorf("log = %q", logs.String())
	}
}

func TestDetachedRecoversPanic(t *testing.T) {
	var wg sync.WaitGroup
	logs := &syncBuffer{}
	Detached(&wg, slog.New(slog.NewTextHandler(logs, nil)), Task{ID: "t"}, func(context.Context) (string, error) {
		panic("servo jammed")
	})
	wg.Wait()
	if !strings.Contains(logs.String(), "panicked") {
		t.Errorf("log = %q", logs.String())
	}
}

func waitTasks(t *testing.T, r *Relay) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.Wait(ctx); err != nil {
		t.Fatal(err)
	}
}

// blockingRunner holds every command until release is closed.
type blockingRunner struct {
	release chan struct{}
}

func (b blockingRunner) Run(context.Context, runner.Command) (string, error) {
	<-b.release
	return "", nil
}

func TestWaitBoundedByContext(t *testing.T) {
	br := blockingRunner{release: make(chan struct{})}
	r := &Relay{Runner: br, Script: "/x.py"}
	if _, err := r.Dispatch("patrol", 50); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := r.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() with running task = %v, want deadline exceeded", err)
	}

	close(br.release)
	waitTasks(t, r)
}
