package sampler

import (
	"context"
	"time"

	"github.com/Dicklesworthstone/pi_status_agent/internal/model"
	"github.com/Dicklesworthstone/pi_status_agent/internal/parse"
	"github.com/Dicklesworthstone/pi_status_agent/internal/runner"
)

// DefaultInterval is the history sampling period.
const DefaultInterval = 10 * time.Second

// Sampler is the single writer of the battery and network history. It also
// streams snapshots for the terminal and NDJSON front ends.
type Sampler struct {
	Interval  time.Duration
	Assembler *Assembler
}

func New(a *Assembler, interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sampler{Interval: interval, Assembler: a}
}

// Sample appends one battery reading and one traffic reading to the history.
// A traffic source that fails adds nothing.
func (s *Sampler) Sample(ctx context.Context) {
	a := s.Assembler
	if a.Battery != nil && a.BatteryHistory != nil {
		a.BatteryHistory.Append(a.Battery.Resolve(ctx))
	}
	if a.NetworkHistory == nil {
		return
	}
	out, err := a.Runner.Run(ctx, runner.Cmd("cat", "/proc/net/dev"))
	if err != nil {
		a.logger().Debug("source unavailable", "source", "netdev", "error", err)
		return
	}
	t := parse.NetDev(out, a.iface())
	a.NetworkHistory.Append(model.TrafficSample{Timestamp: a.now(), RxMB: t.RxMB, TxMB: t.TxMB})
}

// Run samples immediately and then every Interval until ctx is done.
func (s *Sampler) Run(ctx context.Context) error {
	s.Sample(ctx)
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sample(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stream returns a channel that will receive snapshots until ctx is done.
// The first snapshot is sent without waiting for a tick.
func (s *Sampler) Stream(ctx context.Context) <-chan model.Snapshot {
	ch := make(chan model.Snapshot)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		for {
			snap, err := s.Assembler.Snapshot(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.Assembler.logger().Warn("snapshot failed", "error", err)
			} else {
				select {
				case ch <- snap:
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
