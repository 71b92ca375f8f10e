package main

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/womat/debug"

	"github.com/oxplot/go-usbmux"
	"github.com/oxplot/go-usbmux/internal/config"
)

func TestRun_DryRun(t *testing.T) {
	debug.SetDebug(io.Discard, debug.Full)

	cfg := config.NewConfig()
	cfg.Flag.DryRun = true
	cfg.Controller.Simulate = &config.SimulateConfig{CC1: "below-threshold", CC2: "1.5A"}
	cfg.Report.Enabled = false
	if err := cfg.LoadConfig(); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := run(ctx, cfg); err != nil {
		t.Fatalf("run failed: %v", err)
	}
}

func TestRun_DetectionTimeout(t *testing.T) {
	debug.SetDebug(io.Discard, debug.Standard)

	cfg := config.NewConfig()
	cfg.Flag.DryRun = true
	cfg.Controller.Simulate = &config.SimulateConfig{CC1: "undetermined", CC2: "below-threshold"}
	cfg.Report.Enabled = false
	cfg.Detect.MaxPolls = 10
	if err := cfg.LoadConfig(); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	err := run(context.Background(), cfg)
	if err == nil {
		t.Fatal("run should fail when no orientation is detected")
	}
	if !errors.Is(err, usbmux.ErrNoOrientation) {
		t.Errorf("error = %v, want ErrNoOrientation", err)
	}
}

func TestRun_CancelledWhileDetecting(t *testing.T) {
	debug.SetDebug(io.Discard, debug.Standard)

	cfg := config.NewConfig()
	cfg.Flag.DryRun = true
	cfg.Controller.Simulate = &config.SimulateConfig{CC1: "undetermined", CC2: "below-threshold"}
	cfg.Report.Enabled = false
	cfg.Detect.IntervalInt = 100
	if err := cfg.LoadConfig(); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if err := run(ctx, cfg); err != nil {
		t.Errorf("run after cancel = %v, want nil", err)
	}
}

func TestOpenMux_Memory(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Mux.Backend = config.BackendMemory
	m, c, err := openMux(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if err := m.SetRoute(usbmux.RouteConnectTop); err != nil {
		t.Errorf("SetRoute failed: %v", err)
	}
}
