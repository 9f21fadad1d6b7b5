package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dicklesworthstone/pi_status_agent/internal/model"
)

func sample() model.Snapshot {
	s := model.Zero()
	s.Uptime = "3 hours"
	s.Host.Hostname = "pi4"
	s.CPU.Model = "Cortex-A72"
	s.CPU.Cores = []model.Core{{Index: 0, UsagePercent: 40, FrequencyMHz: 1500}}
	s.Battery = model.Battery{Percentage: 75, Source: model.SourceBusSensor}
	s.BatteryHistory = []model.Battery{{Percentage: 80}, {Percentage: 75}}
	s.Processes = []model.Process{{User: "pi", PID: "1234", CPU: 12.5, Command: "node server.js"}}
	return s
}

func TestUpdateFromStream(t *testing.T) {
	ch := make(chan model.Snapshot, 1)
	ch <- sample()
	m := New(context.Background(), ch, nil)

	if _, cmd := m.Update(tickMsg{}); cmd == nil {
		t.Error("tick did not reschedule")
	}
	if m.latest.Host.Hostname != "pi4" {
		t.Fatalf("latest = %+v", m.latest.Host)
	}
	view := m.View()
	for _, want := range []string{"Pi Status", "Cortex-A72", "generic-bus-sensor", "node server.js", "disconnected"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestRefreshKey(t *testing.T) {
	m := New(context.Background(), nil, func(context.Context) (model.Snapshot, error) {
		return sample(), nil
	})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd == nil {
		t.Fatal("refresh key produced no command")
	}
	m.Update(cmd())
	if m.latest.Uptime != "3 hours" {
		t.Errorf("latest = %+v", m.latest)
	}

	failing := New(context.Background(), nil, func(context.Context) (model.Snapshot, error) {
		return model.Snapshot{}, errors.New("no runner")
	})
	_, cmd = failing.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	failing.Update(cmd())
	if !strings.Contains(failing.View(), "refresh failed") {
		t.Error("refresh error not shown")
	}
}

func TestQuitKey(t *testing.T) {
	m := New(context.Background(), nil, nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("quit key produced no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit key did not quit")
	}
	if m.ctx.Err() == nil {
		t.Error("context not cancelled on quit")
	}
}

func TestSparkline(t *testing.T) {
	tests := []struct {
		in   []float64
		want string
	}{
		{[]float64{0, 50, 100}, "▁▄█"},
		{[]float64{5, 5}, "██"},
		{[]float64{1, 2, 3, 4}, "▁▄█"},
	}
	for _, tt := range tests {
		if got := sparkline(tt.in, 3); got != tt.want {
			t.Errorf("sparkline(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGaugeBarClamps(t *testing.T) {
	if got := gaugeBar(150, 4); got != "[████] 100.0%" {
		t.Errorf("gaugeBar(150) = %q", got)
	}
	if got := gaugeBar(-3, 4); got != "[░░░░]   0.0%" {
		t.Errorf("gaugeBar(-3) = %q", got)
	}
}
