// Package battery resolves the battery level by trying hardware probes in a
// fixed priority order.
package battery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/Dicklesworthstone/pi_status_agent/internal/clock"
	"github.com/Dicklesworthstone/pi_status_agent/internal/model"
	"github.com/Dicklesworthstone/pi_status_agent/internal/runner"
)

var (
	// ErrNoReading is returned by a probe whose source produced no usable value.
	ErrNoReading = errors.New("battery: no reading")
	// ErrOutOfRange is returned when a probe reads a percentage outside [0,100].
	ErrOutOfRange = errors.New("battery: percentage out of range")
)

// Probe reads one battery source. Timestamp and Source of the returned
// sample are filled in by the Resolver.
type Probe interface {
	Source() model.BatterySource
	Read(ctx context.Context) (model.Battery, error)
}

// Options selects and addresses the probes.
type Options struct {
	I2CBus            int
	FuelGaugeAddr     string
	BusSensorAddr     string
	BusSensorRegister string
	PowerSupply       string
	Simulate          bool
}

// DefaultOptions target a MAX17048 gauge at 0x36 and a UPS HAT at 0x2d on bus 1.
func DefaultOptions() Options {
	return Options{
		I2CBus:            1,
		FuelGaugeAddr:     "0x36",
		BusSensorAddr:     "0x2d",
		BusSensorRegister: "0x2a",
		PowerSupply:       "BAT0",
	}
}

// Probes builds the probe chain in priority order:
// fuel gauge, bus sensor, power-supply class, then simulation when enabled.
func Probes(run runner.Runner, opts Options, clk clock.Clock) []Probe {
	probes := []Probe{
		&FuelGauge{Run: run, Bus: opts.I2CBus, Addr: opts.FuelGaugeAddr},
		&BusSensor{Run: run, Bus: opts.I2CBus, Addr: opts.BusSensorAddr, Register: opts.BusSensorRegister},
		&PowerSupply{Run: run, Name: opts.PowerSupply},
	}
	if opts.Simulate {
		probes = append(probes, &Simulated{Clock: clk})
	}
	return probes
}

// Resolver walks its probes until one yields a percentage in [0,100].
type Resolver struct {
	probes []Probe
	clock  clock.Clock
	logger *slog.Logger
}

// NewResolver returns a Resolver. A nil logger discards output.
func NewResolver(probes []Probe, clk clock.Clock, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Resolver{probes: probes, clock: clk, logger: logger}
}

// Resolve returns the first valid reading. Probes after the accepted one are
// not invoked. When every probe fails the default-fallback sample is returned.
func (r *Resolver) Resolve(ctx context.Context) model.Battery {
	for _, p := range r.probes {
		b, err := r.try(ctx, p)
		if err != nil {
			r.logger.Debug("battery probe failed", "source", p.Source(), "error", err)
			continue
		}
		return b
	}
	return model.Battery{Timestamp: r.clock.Now(), Source: model.SourceDefault}
}

func (r *Resolver) try(ctx context.Context, p Probe) (b model.Battery, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("battery: probe %s panicked: %v", p.Source(), rec)
		}
	}()
	b, err = p.Read(ctx)
	if err != nil {
		return b, err
	}
	if math.IsNaN(b.Percentage) || b.Percentage < 0 || b.Percentage > 100 {
		return b, fmt.Errorf("%w: %v", ErrOutOfRange, b.Percentage)
	}
	b.Timestamp = r.clock.Now()
	b.Source = p.Source()
	return b, nil
}
