// Command pistatus reports Raspberry Pi host telemetry as JSON, over
// HTTP/WebSocket, or in a terminal dashboard.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/pi_status_agent/internal/battery"
	"github.com/Dicklesworthstone/pi_status_agent/internal/clock"
	"github.com/Dicklesworthstone/pi_status_agent/internal/config"
	"github.com/Dicklesworthstone/pi_status_agent/internal/history"
	"github.com/Dicklesworthstone/pi_status_agent/internal/hostinfo"
	"github.com/Dicklesworthstone/pi_status_agent/internal/model"
	"github.com/Dicklesworthstone/pi_status_agent/internal/relay"
	"github.com/Dicklesworthstone/pi_status_agent/internal/runner"
	"github.com/Dicklesworthstone/pi_status_agent/internal/sampler"
	"github.com/Dicklesworthstone/pi_status_agent/internal/server"
	"github.com/Dicklesworthstone/pi_status_agent/internal/ui"
)

const (
	// relayTimeout bounds one control-script run; movements take seconds.
	relayTimeout = 30 * time.Second
	// relayDrain is how long shutdown waits for running robot commands.
	relayDrain = 5 * time.Second
)

func main() {
	cfg, err := config.FromFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "pistatus: %v\n", err)
		os.Exit(2)
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("pistatus exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	s, err := newSampler(cfg, logger)
	if err != nil {
		return err
	}

	switch {
	case cfg.JSON:
		snap, err := s.Assembler.Snapshot(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)

	case cfg.JSONStream:
		go func() { _ = s.Run(ctx) }()
		enc := json.NewEncoder(os.Stdout)
		for snap := range s.Stream(ctx) {
			if err := enc.Encode(snap); err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}
		}
		return ctx.Err()

	case cfg.Addr != "":
		opts := server.Options{
			Snapshots:      s.Assembler,
			BatteryHistory: s.Assembler.BatteryHistory,
			Interval:       cfg.Interval.Std(),
			Logger:         logger,
		}
		rl := newRelay(cfg, logger)
		if rl != nil {
			opts.Relay = rl
		}
		srv := server.New(opts)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return s.Run(gctx) })
		g.Go(func() error { return srv.ListenAndServe(gctx, cfg.Addr) })
		err := g.Wait()
		drainRelay(rl, relayDrain, logger)
		return err

	default:
		go func() { _ = s.Run(ctx) }()
		err := ui.RunTUI(ctx, s)
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
}

func newSampler(cfg config.Config, logger *slog.Logger) (*sampler.Sampler, error) {
	wifi, err := cfg.Patterns.Compile()
	if err != nil {
		return nil, err
	}
	run := runner.NewExec(cfg.CommandTimeout.Std(), runner.DefaultAllowed)
	clk := clock.System{}

	a := &sampler.Assembler{
		Runner:         run,
		Host:           hostinfo.New(),
		BatteryHistory: history.New[model.Battery](cfg.HistorySize),
		NetworkHistory: history.New[model.TrafficSample](cfg.HistorySize),
		Clock:          clk,
		Logger:         logger.With("component", "sampler"),
		Interface:      cfg.WifiInterface,
		HomeDir:        cfg.HomeDir,
		Wifi:           wifi,
		MaxConcurrency: cfg.MaxConcurrency,
		Timeout:        cfg.CommandTimeout.Std(),
		StatGap:        cfg.CPUSampleGap.Std(),
	}
	if cfg.Battery.Enabled {
		opts := battery.Options{
			I2CBus:            cfg.Battery.I2CBus,
			FuelGaugeAddr:     cfg.Battery.FuelGaugeAddr,
			BusSensorAddr:     cfg.Battery.BusSensorAddr,
			BusSensorRegister: cfg.Battery.BusSensorRegister,
			PowerSupply:       cfg.Battery.PowerSupply,
			Simulate:          cfg.Battery.Simulate,
		}
		a.Battery = battery.NewResolver(battery.Probes(run, opts, clk), clk, logger.With("component", "battery"))
	}
	return sampler.New(a, cfg.Interval.Std()), nil
}

func newRelay(cfg config.Config, logger *slog.Logger) *relay.Relay {
	if cfg.Relay.Script == "" {
		return nil
	}
	python := cfg.Relay.Python
	if python == "" {
		python = "python3"
	}
	return &relay.Relay{
		Runner:  runner.NewExec(relayTimeout, []string{"sudo", python}),
		Script:  cfg.Relay.Script,
		Python:  python,
		UseSudo: cfg.Relay.UseSudo,
		Logger:  logger.With("component", "relay"),
	}
}

// drainRelay gives running robot commands up to d to finish, so their
// outcome is logged before the process exits.
func drainRelay(r *relay.Relay, d time.Duration, logger *slog.Logger) {
	if r == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	if err := r.Wait(ctx); err != nil {
		logger.Warn("exiting with robot commands still running", "error", err)
	}
}
