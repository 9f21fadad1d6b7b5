package battery

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Dicklesworthstone/pi_status_agent/internal/clock"
	"github.com/Dicklesworthstone/pi_status_agent/internal/model"
	"github.com/Dicklesworthstone/pi_status_agent/internal/parse"
	"github.com/Dicklesworthstone/pi_status_agent/internal/runner"
)

// MAX17048 registers.
const (
	regVCell = "0x02"
	regSOC   = "0x04"
	regCRate = "0x16"

	vcellVoltsPerLSB = 78.125e-6
)

// FuelGauge reads a MAX17048-style gauge over I2C with i2cget.
type FuelGauge struct {
	Run  runner.Runner
	Bus  int
	Addr string
}

func (*FuelGauge) Source() model.BatterySource { return model.SourceFuelGauge }

func (f *FuelGauge) Read(ctx context.Context) (model.Battery, error) {
	soc, err := f.word(ctx, regSOC)
	if err != nil {
		return model.Battery{}, err
	}
	b := model.Battery{
		Percentage: derivePercent(float64(soc>>8) + float64(soc&0xff)/256),
	}
	if vcell, err := f.word(ctx, regVCell); err == nil {
		v := math.Round(float64(vcell)*vcellVoltsPerLSB*100) / 100
		b.Voltage = &v
	}
	if rate, err := f.word(ctx, regCRate); err == nil {
		b.Charging = int16(rate) > 0
	}
	return b, nil
}

// word reads a 16-bit register. i2cget returns SMBus words little-endian
// while the gauge stores them big-endian, so the bytes are swapped.
func (f *FuelGauge) word(ctx context.Context, reg string) (uint16, error) {
	out, err := f.Run.Run(ctx, runner.Cmd("i2cget", "-y", strconv.Itoa(f.Bus), f.Addr, reg, "w"))
	if err != nil {
		return 0, err
	}
	w, ok := parse.HexWord(out)
	if !ok {
		return 0, fmt.Errorf("%w: fuel gauge register %s: %q", ErrNoReading, reg, out)
	}
	return w>>8 | w<<8, nil
}

// BusSensor reads a single percentage byte from a generic I2C device.
type BusSensor struct {
	Run      runner.Runner
	Bus      int
	Addr     string
	Register string
}

func (*BusSensor) Source() model.BatterySource { return model.SourceBusSensor }

func (s *BusSensor) Read(ctx context.Context) (model.Battery, error) {
	out, err := s.Run.Run(ctx, runner.Cmd("i2cget", "-y", strconv.Itoa(s.Bus), s.Addr, s.Register, "b"))
	if err != nil {
		return model.Battery{}, err
	}
	v, ok := parse.HexByte(out)
	if !ok {
		return model.Battery{}, fmt.Errorf("%w: bus sensor: %q", ErrNoReading, out)
	}
	return model.Battery{Percentage: float64(v)}, nil
}

// PowerSupply reads the kernel power_supply class of one battery.
type PowerSupply struct {
	Run  runner.Runner
	Name string
}

func (*PowerSupply) Source() model.BatterySource { return model.SourcePowerSupply }

func (p *PowerSupply) Read(ctx context.Context) (model.Battery, error) {
	base := "/sys/class/power_supply/" + p.Name + "/"
	out, err := p.Run.Run(ctx, runner.Cmd("cat", base+"capacity"))
	if err != nil {
		return model.Battery{}, err
	}
	if strings.TrimSpace(out) == "" {
		return model.Battery{}, fmt.Errorf("%w: %scapacity empty", ErrNoReading, base)
	}
	b := model.Battery{Percentage: parse.Float(out)}
	if status, err := p.Run.Run(ctx, runner.Cmd("cat", base+"status")); err == nil {
		switch strings.TrimSpace(status) {
		case "Charging", "Full":
			b.Charging = true
		}
	}
	if uv, err := p.Run.Run(ctx, runner.Cmd("cat", base+"voltage_now")); err == nil {
		if micro := parse.Float(uv); micro > 0 {
			v := math.Round(micro/1e4) / 100
			b.Voltage = &v
		}
	}
	return b, nil
}

// simulatedPeriod is one full discharge/charge cycle of the simulation.
const simulatedPeriod = time.Hour

// Simulated produces a deterministic triangle wave between 20% and 100%,
// charging on the rising half. Used on hosts without battery hardware.
type Simulated struct {
	Clock clock.Clock
}

func (*Simulated) Source() model.BatterySource { return model.SourceSimulated }

func (s *Simulated) Read(context.Context) (model.Battery, error) {
	now := s.Clock.Now()
	phase := float64(now.UnixNano()%int64(simulatedPeriod)) / float64(simulatedPeriod)
	var pct float64
	charging := phase >= 0.5
	if charging {
		pct = 20 + 80*(phase-0.5)*2
	} else {
		pct = 100 - 80*phase*2
	}
	v := math.Round((3.3+0.9*pct/100)*100) / 100
	return model.Battery{Percentage: derivePercent(pct), Voltage: &v, Charging: charging}, nil
}

func derivePercent(p float64) float64 {
	return math.Round(p*10) / 10
}
