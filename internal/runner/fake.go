package runner

import (
	"context"
	"fmt"
	"sync"
)

// Fake answers commands from a table keyed by Command.String(). Unknown
// commands fail. It records every call and is safe for concurrent use.
type Fake struct {
	Outputs map[string]string
	Errors  map[string]error

	mu    sync.Mutex
	calls []string
}

// NewFake returns a Fake seeded with outputs.
func NewFake(outputs map[string]string) *Fake {
	return &Fake{Outputs: outputs, Errors: map[string]error{}}
}

// Run implements Runner.
func (f *Fake) Run(_ context.Context, cmd Command) (string, error) {
	key := cmd.String()
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()

	if err, ok := f.Errors[key]; ok {
		return "", &CommandError{Command: cmd, Err: err}
	}
	if out, ok := f.Outputs[key]; ok {
		return out, nil
	}
	return "", &CommandError{Command: cmd, Err: fmt.Errorf("no fake output")}
}

// Calls returns the command lines seen so far.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// Called reports whether key was run.
func (f *Fake) Called(key string) bool {
	for _, c := range f.Calls() {
		if c == key {
			return true
		}
	}
	return false
}
