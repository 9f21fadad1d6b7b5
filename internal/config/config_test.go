package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.HistorySize != 20 || cfg.Interval.Std() != 10*time.Second {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestFromFlags(t *testing.T) {
	cfg, err := FromFlags([]string{"-interval", "5", "-addr", ":3001", "-battery=false", "-json"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Interval.Std() != 5*time.Second {
		t.Errorf("Interval = %v, want bare seconds parsed", cfg.Interval.Std())
	}
	if cfg.Addr != ":3001" || cfg.Battery.Enabled || !cfg.JSON {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestFromFlagsRejectsBadValues(t *testing.T) {
	tests := [][]string{
		{"-interval", "soon"},
		{"-max-concurrency", "0"},
		{"-log-level", "chatty"},
		{"-command-timeout", "200ms"},
		{"-no-such-flag"},
	}
	for _, args := range tests {
		if _, err := FromFlags(args); err == nil {
			t.Errorf("FromFlags(%v) = nil error", args)
		}
	}
}

func TestYAMLThenFlagsThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pistatus.yaml")
	body := `interval: 30s
command_timeout: 1500ms
wifi_interface: wlan1
addr: ":8080"
battery:
  simulate: true
  i2c_bus: 3
patterns:
  wifi_ssid: 'SSID: (\S+)'
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PISTATUS_ADDR", ":9999")

	cfg, err := FromFlags([]string{"-config", path, "-wifi", "wlan2"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Interval.Std() != 30*time.Second || cfg.CommandTimeout.Std() != 1500*time.Millisecond {
		t.Errorf("durations = %v %v", cfg.Interval.Std(), cfg.CommandTimeout.Std())
	}
	if cfg.WifiInterface != "wlan2" {
		t.Errorf("flag did not override file: %q", cfg.WifiInterface)
	}
	if cfg.Addr != ":9999" {
		t.Errorf("env did not override file: %q", cfg.Addr)
	}
	if !cfg.Battery.Simulate || cfg.Battery.I2CBus != 3 || !cfg.Battery.Enabled {
		t.Errorf("battery = %+v", cfg.Battery)
	}
	if cfg.Battery.FuelGaugeAddr != "0x36" {
		t.Errorf("unset YAML key lost its default: %q", cfg.Battery.FuelGaugeAddr)
	}
	if cfg.Patterns.SSID != `SSID: (\S+)` {
		t.Errorf("patterns = %+v", cfg.Patterns)
	}
	if cfg.File != path {
		t.Errorf("File = %q", cfg.File)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file loaded")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("interval: forever\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("bad duration loaded")
	}
}

func TestEnvBatteryOff(t *testing.T) {
	t.Setenv("PISTATUS_BATT", "0")
	t.Setenv("PISTATUS_INTERVAL", "2s")
	cfg, err := FromFlags(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Battery.Enabled || cfg.Interval.Std() != 2*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"
	if l, err := cfg.Level(); err != nil || l != slog.LevelDebug {
		t.Errorf("Level() = %v, %v", l, err)
	}
}
