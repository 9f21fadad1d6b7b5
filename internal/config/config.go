package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Dicklesworthstone/pi_status_agent/internal/parse"
)

// Config carries runtime options for pistatus.
type Config struct {
	// File is the YAML file the rest of the values were loaded from.
	File string `yaml:"-"`

	// Interval is the period of the history sampler and of streamed snapshots.
	Interval Duration `yaml:"interval"`
	// CommandTimeout bounds every external command.
	CommandTimeout Duration `yaml:"command_timeout"`
	// CPUSampleGap separates the two tick readings per-core usage is
	// computed from.
	CPUSampleGap Duration `yaml:"cpu_sample_gap"`
	// MaxConcurrency caps commands running at once within one poll.
	MaxConcurrency int `yaml:"max_concurrency"`
	// HistorySize is the capacity of the battery and network history.
	HistorySize int `yaml:"history_size"`
	// WifiInterface is the interface queried for radio status and traffic.
	WifiInterface string `yaml:"wifi_interface"`
	// HomeDir is listed for the directories panel.
	HomeDir string `yaml:"home_dir"`

	// Addr is the HTTP listen address; empty disables the server.
	Addr     string `yaml:"addr"`
	LogLevel string `yaml:"log_level"`

	JSON       bool `yaml:"json"`
	JSONStream bool `yaml:"json_stream"`

	Battery  Battery        `yaml:"battery"`
	Relay    Relay          `yaml:"relay"`
	Patterns parse.Patterns `yaml:"patterns"`
}

// Battery configures the battery probes.
type Battery struct {
	Enabled           bool   `yaml:"enabled"`
	Simulate          bool   `yaml:"simulate"`
	I2CBus            int    `yaml:"i2c_bus"`
	FuelGaugeAddr     string `yaml:"fuel_gauge_addr"`
	BusSensorAddr     string `yaml:"bus_sensor_addr"`
	BusSensorRegister string `yaml:"bus_sensor_register"`
	PowerSupply       string `yaml:"power_supply"`
}

// Relay configures the robot command relay.
type Relay struct {
	// Script is the control script; empty disables the relay endpoint.
	Script  string `yaml:"script"`
	Python  string `yaml:"python"`
	UseSudo bool   `yaml:"use_sudo"`
}

// Duration is a time.Duration written as "10s" in YAML.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := parseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("config: line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

// parseDuration accepts Go durations and bare seconds.
func parseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if parsed, err := time.ParseDuration(v); err == nil {
		return parsed, nil
	}
	parsed, err := time.ParseDuration(v + "s")
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return parsed, nil
}

func Default() Config {
	return Config{
		Interval:       Duration(10 * time.Second),
		CommandTimeout: Duration(3 * time.Second),
		CPUSampleGap:   Duration(250 * time.Millisecond),
		MaxConcurrency: 8,
		HistorySize:    20,
		WifiInterface:  "wlan0",
		HomeDir:        "/home",
		LogLevel:       "info",
		Battery: Battery{
			Enabled:           true,
			I2CBus:            1,
			FuelGaugeAddr:     "0x36",
			BusSensorAddr:     "0x2d",
			BusSensorRegister: "0x2a",
			PowerSupply:       "BAT0",
		},
		Relay: Relay{
			Python:  "python3",
			UseSudo: true,
		},
	}
}

// FromFlags builds the configuration: defaults, then the YAML file named by
// -config or PISTATUS_CONFIG, then flags, then environment overrides.
func FromFlags(args []string) (Config, error) {
	cfg, err := parseFlags(args, Default())
	if err != nil {
		return cfg, err
	}
	path := cfg.File
	if path == "" {
		path = os.Getenv("PISTATUS_CONFIG")
	}
	if path != "" {
		base, err := Load(path)
		if err != nil {
			return cfg, err
		}
		// Flags win over the file, so parse them again on top of it.
		if cfg, err = parseFlags(args, base); err != nil {
			return cfg, err
		}
		cfg.File = path
	}
	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func parseFlags(args []string, cfg Config) (Config, error) {
	fs := flag.NewFlagSet("pistatus", flag.ContinueOnError)
	fs.StringVar(&cfg.File, "config", cfg.File, "YAML configuration file")
	fs.Func("interval", "history sample and stream interval (default "+cfg.Interval.Std().String()+")", func(v string) error {
		d, err := parseDuration(v)
		cfg.Interval = Duration(d)
		return err
	})
	fs.Func("command-timeout", "timeout per external command (default "+cfg.CommandTimeout.Std().String()+")", func(v string) error {
		d, err := parseDuration(v)
		cfg.CommandTimeout = Duration(d)
		return err
	})
	fs.IntVar(&cfg.MaxConcurrency, "max-concurrency", cfg.MaxConcurrency, "commands run at once per poll")
	fs.IntVar(&cfg.HistorySize, "history", cfg.HistorySize, "history buffer capacity")
	fs.StringVar(&cfg.WifiInterface, "wifi", cfg.WifiInterface, "wireless interface")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address, e.g. :3001")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug|info|warn|error")
	fs.BoolVar(&cfg.JSON, "json", cfg.JSON, "output one-shot JSON and exit")
	fs.BoolVar(&cfg.JSONStream, "json-stream", cfg.JSONStream, "stream NDJSON until interrupted")
	fs.BoolVar(&cfg.Battery.Enabled, "battery", cfg.Battery.Enabled, "enable battery sampling")
	fs.BoolVar(&cfg.Battery.Simulate, "simulate-battery", cfg.Battery.Simulate, "simulate a battery when no hardware answers")
	fs.StringVar(&cfg.Relay.Script, "crawler-script", cfg.Relay.Script, "robot control script")
	if err := fs.Parse(args); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Load reads a YAML file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.File = path
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PISTATUS_INTERVAL"); v != "" {
		if parsed, err := parseDuration(v); err == nil {
			cfg.Interval = Duration(parsed)
		}
	}
	if v := os.Getenv("PISTATUS_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("PISTATUS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PISTATUS_BATT"); v == "0" {
		cfg.Battery.Enabled = false
	}
	if v := os.Getenv("PISTATUS_CRAWLER_SCRIPT"); v != "" {
		cfg.Relay.Script = v
	}
}

// Validate rejects values the sampler cannot run with.
func (c Config) Validate() error {
	if c.Interval.Std() <= 0 {
		return fmt.Errorf("config: interval must be positive, got %s", c.Interval.Std())
	}
	if c.CommandTimeout.Std() <= 0 {
		return fmt.Errorf("config: command_timeout must be positive, got %s", c.CommandTimeout.Std())
	}
	if c.CPUSampleGap.Std() < 0 || c.CPUSampleGap.Std() >= c.CommandTimeout.Std() {
		return fmt.Errorf("config: cpu_sample_gap must be in [0, command_timeout), got %s", c.CPUSampleGap.Std())
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("config: max_concurrency must be at least 1, got %d", c.MaxConcurrency)
	}
	if c.HistorySize < 1 {
		return fmt.Errorf("config: history_size must be at least 1, got %d", c.HistorySize)
	}
	if _, err := c.Patterns.Compile(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level maps LogLevel to a slog level.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log_level %q: %w", c.LogLevel, err)
	}
	return l, nil
}
