package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/pi_status_agent/internal/model"
	"github.com/Dicklesworthstone/pi_status_agent/internal/sampler"
)

// RefreshFunc produces a snapshot on demand.
type RefreshFunc func(ctx context.Context) (model.Snapshot, error)

// Model renders live snapshots from the sampler.
type Model struct {
	latest    model.Snapshot
	err       error
	stream    <-chan model.Snapshot
	refresh   RefreshFunc
	ctx       context.Context
	ctxCancel context.CancelFunc
	width     int
	height    int
}

// New returns a Model reading from stream. refresh may be nil.
func New(ctx context.Context, stream <-chan model.Snapshot, refresh RefreshFunc) *Model {
	ctx, cancel := context.WithCancel(ctx)
	return &Model{
		latest:    model.Zero(),
		stream:    stream,
		refresh:   refresh,
		ctx:       ctx,
		ctxCancel: cancel,
		width:     120,
		height:    40,
	}
}

// Messages
type (
	tickMsg     struct{}
	snapshotMsg model.Snapshot
	errMsg      struct{ err error }
)

func tickCmd() tea.Cmd { return tea.Tick(time.Second/5, func(time.Time) tea.Msg { return tickMsg{} }) }

func (m *Model) refreshCmd() tea.Cmd {
	if m.refresh == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		snap, err := m.refresh(ctx)
		if err != nil {
			return errMsg{err}
		}
		return snapshotMsg(snap)
	}
}

func (m *Model) Init() tea.Cmd { return tickCmd() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.ctxCancel()
			return m, tea.Quit
		case key.Matches(msg, keys.Refresh):
			return m, m.refreshCmd()
		}
	case snapshotMsg:
		m.latest = model.Snapshot(msg)
		m.err = nil
	case errMsg:
		m.err = msg.err
	case tickMsg:
		select {
		case snap, ok := <-m.stream:
			if ok {
				m.latest = snap
				m.err = nil
			}
		default:
		}
		return m, tickCmd()
	}
	return m, nil
}

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	gaugeFill   = "█"
	gaugeEmpty  = "░"
	sparkRunes  = []rune("▁▂▃▄▅▆▇█")
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)
)

func (m *Model) View() string {
	s := m.latest
	header := titleStyle.Render("Pi Status") + "  " +
		subtleStyle.Render(s.Host.Hostname+"  up "+s.Uptime+"  "+s.Timestamp.Format("Mon Jan 2 15:04:05 MST 2006"))
	if s.Throttled {
		header += "  " + warnStyle.Render("THROTTLED")
	}
	if m.err != nil {
		header += "  " + warnStyle.Render("refresh failed: "+m.err.Error())
	}

	c := s.CPU
	cpuLines := []string{
		fmt.Sprintf("%s %.1f°C", truncate(orDash(c.Model), 18), c.Temperature),
		gaugeBar(float64(c.AverageUsage), 24),
	}
	for _, core := range c.Cores {
		cpuLines = append(cpuLines, fmt.Sprintf("cpu%-2d %3d%% %6.0f MHz", core.Index, core.UsagePercent, core.FrequencyMHz))
	}
	if len(c.LoadAverage) == 3 {
		cpuLines = append(cpuLines, fmt.Sprintf("load %.2f %.2f %.2f", c.LoadAverage[0], c.LoadAverage[1], c.LoadAverage[2]))
	}
	cpuCard := card("CPU", strings.Join(cpuLines, "\n"))

	mem := s.Memory
	memCard := card("Memory",
		fmt.Sprintf("%s\n%d/%d MB  avail %d MB\nSwap %d/%d MB",
			gaugeBar(float64(mem.UsedPercent), 24),
			mem.Used, mem.Total, mem.Available,
			mem.SwapUsed, mem.SwapTotal))

	diskLines := []string{
		fmt.Sprintf("/ %s", gaugeBar(float64(s.Disk.UsedPercent), 18)),
		fmt.Sprintf("%s used of %s", orDash(s.Disk.Used), orDash(s.Disk.Total)),
	}
	for _, p := range s.Storage.Partitions {
		if p.MountPoint == "/" {
			continue
		}
		diskLines = append(diskLines, fmt.Sprintf("%-14s %3d%% %s", truncate(p.MountPoint, 14), p.UsedPercent, p.Medium))
	}
	diskCard := card("Storage", strings.Join(diskLines, "\n"))

	n := s.Network
	wifi := "disconnected"
	if n.Wifi.Connected && n.Wifi.SSID != nil {
		wifi = *n.Wifi.SSID
		if n.Wifi.SignalDBm != nil {
			wifi += fmt.Sprintf(" %d dBm", *n.Wifi.SignalDBm)
		}
		if n.Wifi.LinkQualityPercent != nil {
			wifi += fmt.Sprintf(" %d%%", *n.Wifi.LinkQualityPercent)
		}
	}
	netCard := card("Network "+n.Interface,
		fmt.Sprintf("%s\n%s\nRX %.2f MB  TX %.2f MB\n%s",
			truncate(wifi, 28), orDash(n.IPAddress), n.Traffic.RxMB, n.Traffic.TxMB,
			sparkline(rxSeries(s.NetworkHistory), 20)))

	b := s.Battery
	state := "discharging"
	if b.Charging {
		state = "charging"
	}
	battCard := card("Battery",
		fmt.Sprintf("%s\n%s (%s)\n%s",
			gaugeBar(b.Percentage, 18), state, b.Source,
			sparkline(batterySeries(s.BatteryHistory), 20)))

	line1 := lipgloss.JoinHorizontal(lipgloss.Top, cpuCard, memCard, diskCard)
	line2 := lipgloss.JoinHorizontal(lipgloss.Top, netCard, battCard,
		card("Top CPU", renderTable(s.Processes, sampler.TopProcesses)))

	return lipgloss.JoinVertical(lipgloss.Left, header, line1, line2, keys.help())
}

// Helpers
func gaugeBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int((pct / 100) * float64(width))
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %5.1f%%",
		strings.Repeat(gaugeFill, filled),
		strings.Repeat(gaugeEmpty, width-filled),
		pct)
}

// sparkline scales values between their min and max and keeps the last width.
func sparkline(values []float64, width int) string {
	if len(values) == 0 {
		return subtleStyle.Render("no history")
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	var b strings.Builder
	top := len(sparkRunes) - 1
	for _, v := range values {
		i := top
		if hi > lo {
			i = int((v - lo) / (hi - lo) * float64(top))
		}
		b.WriteRune(sparkRunes[i])
	}
	return b.String()
}

func batterySeries(h []model.Battery) []float64 {
	out := make([]float64, len(h))
	for i, b := range h {
		out[i] = b.Percentage
	}
	return out
}

func rxSeries(h []model.TrafficSample) []float64 {
	out := make([]float64, len(h))
	for i, t := range h {
		out[i] = t.RxMB
	}
	return out
}

func card(title, body string) string {
	titleStr := labelStyle.Render(title)
	content := titleStr + "\n" + body
	return cardStyle.Render(content)
}

func renderTable(rows []model.Process, limit int) string {
	n := min(limit, len(rows))
	var b strings.Builder
	fmt.Fprintf(&b, "%-18s %-7s %-8s %5s %5s\n", "cmd", "pid", "user", "cpu", "mem")
	for i := 0; i < n; i++ {
		r := rows[i]
		fmt.Fprintf(&b, "%-18s %-7s %-8s %5.1f %5.1f\n",
			truncate(r.Command, 18), r.PID, truncate(r.User, 8), r.CPU, r.Mem)
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func joinDot(parts []string) string { return strings.Join(parts, " • ") }

// RunTUI starts the Bubble Tea program over s until the user quits or ctx
// is done.
func RunTUI(ctx context.Context, s *sampler.Sampler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m := New(ctx, s.Stream(ctx), s.Assembler.Snapshot)
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := prog.Run()
	return err
}
