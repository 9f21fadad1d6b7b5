// Package sampler builds snapshots from command output and keeps the
// battery and network history up to date.
package sampler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/pi_status_agent/internal/battery"
	"github.com/Dicklesworthstone/pi_status_agent/internal/clock"
	"github.com/Dicklesworthstone/pi_status_agent/internal/derive"
	"github.com/Dicklesworthstone/pi_status_agent/internal/history"
	"github.com/Dicklesworthstone/pi_status_agent/internal/model"
	"github.com/Dicklesworthstone/pi_status_agent/internal/parse"
	"github.com/Dicklesworthstone/pi_status_agent/internal/runner"
)

// TopProcesses is the number of processes kept in a snapshot.
const TopProcesses = 7

// AssemblyError means no snapshot could be produced at all.
type AssemblyError struct {
	Err error
}

func (e *AssemblyError) Error() string { return "assemble snapshot: " + e.Err.Error() }
func (e *AssemblyError) Unwrap() error { return e.Err }

// RawSample is the output of one source, or the reason it has none.
type RawSample struct {
	Source string
	Stdout string
	Err    error
}

// HostProbe supplies values that do not come from a command, plus
// fallbacks for those that do. *hostinfo.Probe implements it.
type HostProbe interface {
	Host(ctx context.Context) (model.Host, error)
	LoadAverage(ctx context.Context) ([]float64, error)
	Uptime(ctx context.Context) (string, error)
	IPv4(ctx context.Context, iface string) (string, error)
}

// Assembler produces snapshots. Every source is independent: a failed
// source contributes neutral defaults and never fails the snapshot.
type Assembler struct {
	Runner runner.Runner
	Host   HostProbe
	// Battery resolves the current reading; nil reports the newest history
	// entry, or default-fallback.
	Battery        *battery.Resolver
	BatteryHistory *history.Buffer[model.Battery]
	NetworkHistory *history.Buffer[model.TrafficSample]
	Clock          clock.Clock
	Logger         *slog.Logger

	Interface      string
	HomeDir        string
	Wifi           *parse.WifiMatcher
	MaxConcurrency int
	// Timeout bounds host probe calls; commands are bounded by the Runner.
	Timeout time.Duration
	// StatGap separates the two /proc/stat reads that per-core usage is
	// computed from.
	StatGap time.Duration

	NewID func() string
}

type source struct {
	name string
	cmd  runner.Command
}

func (a *Assembler) sources() []source {
	return []source{
		{"uptime", runner.Cmd("uptime", "-p")},
		{"free", runner.Cmd("free", "-m")},
		{"meminfo", runner.Cmd("cat", "/proc/meminfo")},
		{"disk", runner.Cmd("df", "-h", "/")},
		{"partitions", runner.Cmd("df", "-h")},
		{"lscpu", runner.Cmd("lscpu")},
		{"temperature", runner.Cmd("cat", "/sys/class/thermal/thermal_zone0/temp")},
		{"throttled", runner.Cmd("vcgencmd", "get_throttled")},
		{"frequencies", runner.Cmd("lscpu", "-e=CPU,MHZ,MAXMHZ,MINMHZ")},
		{"wireless", runner.Cmd("iwconfig", a.iface())},
		{"netdev", runner.Cmd("cat", "/proc/net/dev")},
		{"ip", runner.Cmd("hostname", "-I")},
		{"processes", runner.Cmd("ps", "aux", "--sort=-%cpu")},
		{"directories", runner.Cmd("ls", "-la", a.homeDir())},
	}
}

var statCmd = runner.Cmd("cat", "/proc/stat")

// probed holds the values read outside the plain command fan-out.
type probed struct {
	statPrev   string
	statCur    string
	battery    model.Battery
	host       model.Host
	load       []float64
	uptime     string
	ip         string
	hasBattery bool
}

// Snapshot runs every source concurrently and merges the results. Sources
// keep running if ctx ends first; their output is discarded and an
// AssemblyError is returned.
func (a *Assembler) Snapshot(ctx context.Context) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, &AssemblyError{Err: err}
	}
	work := context.WithoutCancel(ctx)
	srcs := a.sources()
	raw := make([]RawSample, len(srcs))
	var p probed

	var g errgroup.Group
	g.SetLimit(a.limit())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i, s := range srcs {
			g.Go(func() error {
				out, err := a.Runner.Run(work, s.cmd)
				raw[i] = RawSample{Source: s.name, Stdout: out, Err: err}
				return nil
			})
		}
		a.probe(work, &g, &p)
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return model.Snapshot{}, &AssemblyError{Err: ctx.Err()}
	}

	byName := make(map[string]RawSample, len(raw))
	for _, r := range raw {
		if r.Err != nil {
			a.logger().Debug("source unavailable", "source", r.Source, "error", r.Err)
		}
		byName[r.Source] = r
	}
	return a.merge(byName, p)
}

// probe schedules the non-command sources. Each writes its own field of p.
func (a *Assembler) probe(ctx context.Context, g *errgroup.Group, p *probed) {
	g.Go(func() error {
		prev, err := a.Runner.Run(ctx, statCmd)
		if err != nil {
			a.logger().Debug("source unavailable", "source", "stat", "error", err)
			return nil
		}
		p.statPrev = prev
		time.Sleep(a.StatGap)
		cur, err := a.Runner.Run(ctx, statCmd)
		if err != nil {
			a.logger().Debug("source unavailable", "source", "stat-second", "error", err)
			return nil
		}
		p.statCur = cur
		return nil
	})
	if a.Battery != nil {
		p.hasBattery = true
		g.Go(func() error {
			p.battery = a.Battery.Resolve(ctx)
			return nil
		})
	}
	if a.Host == nil {
		return
	}
	call := func(name string, fn func(context.Context) error) {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, a.timeout())
			defer cancel()
			if err := fn(cctx); err != nil {
				a.logger().Debug("source unavailable", "source", name, "error", err)
			}
			return nil
		})
	}
	call("host", func(ctx context.Context) (err error) {
		p.host, err = a.Host.Host(ctx)
		return err
	})
	call("load", func(ctx context.Context) (err error) {
		p.load, err = a.Host.LoadAverage(ctx)
		return err
	})
	call("boot-uptime", func(ctx context.Context) (err error) {
		p.uptime, err = a.Host.Uptime(ctx)
		return err
	})
	call("ipv4", func(ctx context.Context) (err error) {
		p.ip, err = a.Host.IPv4(ctx, a.iface())
		return err
	})
}

// merge folds the raw outputs into a snapshot in a fixed order.
func (a *Assembler) merge(raw map[string]RawSample, p probed) (snap model.Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			snap = model.Snapshot{}
			err = &AssemblyError{Err: fmt.Errorf("panic during merge: %v", r)}
		}
	}()
	out := func(name string) string { return raw[name].Stdout }

	snap = model.Zero()
	snap.ID = a.newID()
	snap.Timestamp = a.now()

	snap.Uptime = parse.Uptime(out("uptime"))
	if snap.Uptime == "" {
		snap.Uptime = p.uptime
	}
	if v, ok := parse.Throttled(out("throttled")); ok {
		snap.Throttled = derive.Throttled(v)
	}
	snap.Host = p.host

	snap.Memory = memory(parse.Free(out("free")), parse.MeminfoDetail(parse.Meminfo(out("meminfo"))))
	snap.Disk = parse.DiskRoot(out("disk"))
	snap.Storage.Partitions = parse.Partitions(out("partitions"))
	snap.CPU = cpu(out("lscpu"), out("temperature"), p.statPrev, p.statCur, out("frequencies"))
	if p.load != nil {
		snap.CPU.LoadAverage = p.load
	}
	snap.Network = a.network(out("wireless"), out("netdev"), out("ip"), p.ip)

	switch {
	case p.hasBattery:
		snap.Battery = p.battery
	default:
		snap.Battery = model.Battery{Timestamp: snap.Timestamp, Source: model.SourceDefault}
		if a.BatteryHistory != nil {
			if last, ok := a.BatteryHistory.Last(); ok {
				snap.Battery = last
			}
		}
	}
	if a.BatteryHistory != nil {
		snap.BatteryHistory = a.BatteryHistory.Snapshot()
	}
	if a.NetworkHistory != nil {
		snap.NetworkHistory = a.NetworkHistory.Snapshot()
	}

	snap.Processes = parse.Processes(out("processes"), TopProcesses)
	snap.Directories = parse.Directories(out("directories"))
	return snap, nil
}

// memory combines `free -m` with /proc/meminfo. free wins where both report
// a value; meminfo fills what free does not carry or failed to report.
func memory(f parse.FreeMem, d parse.MemDetail) model.Memory {
	m := model.Memory{
		Total:     f.Total,
		Used:      f.Used,
		Free:      f.Free,
		Available: d.Available,
		Buffers:   d.Buffers,
		Cached:    d.Cached,
		Active:    d.Active,
		Inactive:  d.Inactive,
		SwapTotal: f.SwapTotal,
		SwapUsed:  f.SwapUsed,
	}
	if m.Total == 0 && d.Total > 0 {
		m.Total = d.Total
		m.Free = d.Free
		if d.Available > 0 {
			m.Used = d.Total - d.Available
		} else {
			m.Used = d.Total - d.Free - d.Buffers - d.Cached
		}
	}
	if m.Available == 0 {
		m.Available = f.Available
	}
	if m.SwapTotal == 0 && d.SwapTotal > 0 {
		m.SwapTotal = d.SwapTotal
		m.SwapUsed = d.SwapTotal - d.SwapFree
	}
	if m.Used < 0 {
		m.Used = 0
	}
	m.UsedPercent = derive.Percent(m.Used, m.Total)
	return m
}

func cpu(lscpu, temp, statPrev, statCur, freqs string) model.CPU {
	c := model.CPU{
		Model:       parse.CPUModel(lscpu),
		Temperature: parse.Temperature(temp),
		Cores:       []model.Core{},
		Frequencies: []float64{},
		LoadAverage: []float64{},
	}
	byIndex := map[int]*model.Core{}
	at := func(i int) *model.Core {
		if core, ok := byIndex[i]; ok {
			return core
		}
		core := &model.Core{Index: i}
		byIndex[i] = core
		return core
	}
	prev := map[int]parse.CoreTicks{}
	for _, t := range parse.ProcStat(statPrev) {
		prev[t.Index] = t
	}
	cur := parse.ProcStat(statCur)
	if len(cur) == 0 {
		cur, prev = parse.ProcStat(statPrev), nil
	}
	for _, t := range cur {
		at(t.Index).UsagePercent = coreUsage(prev, t)
	}
	for _, f := range parse.CoreFreqs(freqs) {
		core := at(f.Index)
		core.FrequencyMHz = f.CurMHz
		core.MinFreqMHz = f.MinMHz
		core.MaxFreqMHz = f.MaxMHz
	}
	indexes := make([]int, 0, len(byIndex))
	for i := range byIndex {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	for _, i := range indexes {
		core := *byIndex[i]
		c.Cores = append(c.Cores, core)
		c.Frequencies = append(c.Frequencies, core.FrequencyMHz)
	}
	c.FrequencyRange = derive.FrequencyRange(c.Cores)
	c.AverageUsage = derive.AverageUsage(c.Cores)
	return c
}

// coreUsage is the usage between the two readings, or since boot when no
// ticks elapsed or the earlier reading is missing.
func coreUsage(prev map[int]parse.CoreTicks, cur parse.CoreTicks) int {
	if p, ok := prev[cur.Index]; ok && cur.Total() > p.Total() {
		return derive.CoreUsageDelta(p, cur)
	}
	return derive.CoreUsage(cur)
}

func (a *Assembler) network(wireless, netdev, ip, fallbackIP string) model.Network {
	n := model.Network{
		Interface: a.iface(),
		Traffic:   parse.NetDev(netdev, a.iface()),
		IPAddress: parse.IPAddress(ip),
	}
	if a.Wifi != nil {
		n.Wifi = a.Wifi.Wireless(wireless)
	} else {
		n.Wifi = parse.Wireless(wireless)
	}
	if n.IPAddress == "" {
		n.IPAddress = fallbackIP
	}
	return n
}

func (a *Assembler) iface() string {
	if a.Interface == "" {
		return "wlan0"
	}
	return a.Interface
}

func (a *Assembler) homeDir() string {
	if a.HomeDir == "" {
		return "/home"
	}
	return a.HomeDir
}

func (a *Assembler) limit() int {
	if a.MaxConcurrency < 1 {
		return 8
	}
	return a.MaxConcurrency
}

func (a *Assembler) timeout() time.Duration {
	if a.Timeout <= 0 {
		return 2 * time.Second
	}
	return a.Timeout
}

func (a *Assembler) now() time.Time {
	if a.Clock == nil {
		return time.Now()
	}
	return a.Clock.Now()
}

func (a *Assembler) newID() string {
	if a.NewID == nil {
		return uuid.NewString()
	}
	return a.NewID()
}

func (a *Assembler) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return a.Logger
}
