// Package hostinfo reads host identity, load and addresses through gopsutil.
// It backs the parts of a snapshot that have no stable command-line source
// and provides fallbacks for the ones that do.
package hostinfo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/net"

	"github.com/Dicklesworthstone/pi_status_agent/internal/model"
)

// Probe queries the local host. The function fields default to gopsutil and
// are replaced in tests.
type Probe struct {
	info       func(context.Context) (*host.InfoStat, error)
	avg        func(context.Context) (*load.AvgStat, error)
	uptime     func(context.Context) (uint64, error)
	interfaces func(context.Context) (net.InterfaceStatList, error)
	uname      func() (release, machine string)
}

// New returns a Probe backed by gopsutil and uname(2).
func New() *Probe {
	return &Probe{
		info:       host.InfoWithContext,
		avg:        load.AvgWithContext,
		uptime:     host.UptimeWithContext,
		interfaces: net.InterfacesWithContext,
		uname:      uname,
	}
}

// Host returns identity fields; anything unreadable is left empty.
func (p *Probe) Host(ctx context.Context) (model.Host, error) {
	var h model.Host
	h.Kernel, h.Arch = p.uname()
	info, err := p.info(ctx)
	if err != nil {
		return h, fmt.Errorf("hostinfo: host info: %w", err)
	}
	h.Hostname = info.Hostname
	h.OS = info.OS
	h.Platform = strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
	if h.Kernel == "" {
		h.Kernel = info.KernelVersion
	}
	if h.Arch == "" {
		h.Arch = info.KernelArch
	}
	return h, nil
}

// LoadAverage returns the 1, 5 and 15 minute load averages.
func (p *Probe) LoadAverage(ctx context.Context) ([]float64, error) {
	a, err := p.avg(ctx)
	if err != nil {
		return []float64{}, fmt.Errorf("hostinfo: load average: %w", err)
	}
	return []float64{a.Load1, a.Load5, a.Load15}, nil
}

// Uptime formats the time since boot the way `uptime -p` does, without the
// leading "up ".
func (p *Probe) Uptime(ctx context.Context) (string, error) {
	secs, err := p.uptime(ctx)
	if err != nil {
		return "", fmt.Errorf("hostinfo: uptime: %w", err)
	}
	return FormatUptime(time.Duration(secs) * time.Second), nil
}

// IPv4 returns the first IPv4 address of iface, or of any non-loopback
// interface when iface has none.
func (p *Probe) IPv4(ctx context.Context, iface string) (string, error) {
	list, err := p.interfaces(ctx)
	if err != nil {
		return "", fmt.Errorf("hostinfo: interfaces: %w", err)
	}
	var fallback string
	for _, in := range list {
		if isLoopback(in) {
			continue
		}
		for _, a := range in.Addrs {
			addr, _, _ := strings.Cut(a.Addr, "/")
			if !strings.Contains(addr, ".") {
				continue
			}
			if in.Name == iface {
				return addr, nil
			}
			if fallback == "" {
				fallback = addr
			}
		}
	}
	return fallback, nil
}

func isLoopback(in net.InterfaceStat) bool {
	for _, f := range in.Flags {
		if f == "loopback" {
			return true
		}
	}
	return in.Name == "lo"
}

// FormatUptime renders d as "2 days, 3 hours, 4 minutes".
func FormatUptime(d time.Duration) string {
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int(d / time.Minute)

	var parts []string
	add := func(n int, unit string) {
		if n == 0 {
			return
		}
		if n == 1 {
			parts = append(parts, "1 "+unit)
			return
		}
		parts = append(parts, fmt.Sprintf("%d %ss", n, unit))
	}
	add(days, "day")
	add(hours, "hour")
	add(minutes, "minute")
	if len(parts) == 0 {
		return "0 minutes"
	}
	return strings.Join(parts, ", ")
}
