package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/womat/debug"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/oxplot/go-usbmux"
	"github.com/oxplot/go-usbmux/ccdetect"
	"github.com/oxplot/go-usbmux/internal/config"
	"github.com/oxplot/go-usbmux/muxcfg"
	"github.com/oxplot/go-usbmux/muxdriver/gpiomux"
	"github.com/oxplot/go-usbmux/muxdriver/memmux"
	"github.com/oxplot/go-usbmux/muxpe"
	"github.com/oxplot/go-usbmux/tcpcdriver"
	"github.com/oxplot/go-usbmux/tcpcdriver/fusb302"
	"github.com/oxplot/go-usbmux/tcpcdriver/simcc"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// run wires the controller and mux described by cfg into an engine and runs
// it until ctx is done. Cancelling ctx before a plug was detected is a clean
// shutdown.
func run(ctx context.Context, cfg *config.Config) error {
	if cfg.Controller.Simulate == nil || cfg.Mux.Backend == config.BackendPeriph {
		if _, err := host.Init(); err != nil {
			return fmt.Errorf("can't initialize host drivers: %w", err)
		}
	}

	pc, pcCloser, err := openController(cfg)
	if err != nil {
		debug.ErrorLog.Printf("can't open port controller: %v", err)
		return err
	}
	defer func() { _ = pcCloser.Close() }()

	mux, muxCloser, err := openMux(cfg)
	if err != nil {
		debug.ErrorLog.Printf("can't open mux: %v", err)
		return err
	}
	defer func() { _ = muxCloser.Close() }()

	e := muxpe.New(pc, muxcfg.New(mux))
	e.SetMode(cfg.ModeValue)
	e.SetDetector(ccdetect.New(
		ccdetect.WithMaxPolls(cfg.Detect.MaxPolls),
		ccdetect.WithTimeout(cfg.Detect.Timeout),
		ccdetect.WithInterval(cfg.Detect.Interval),
		ccdetect.WithObserver(func(s usbmux.CCStatus) {
			debug.TraceLog.Printf("cc status %s", s)
		}),
	))
	if cfg.Report.Enabled {
		r := muxcfg.NewReporter(os.Stdout, cfg.Report.LineSep)
		if cfg.Report.Banner {
			r.Banner()
		}
		e.SetReporter(r)
	}
	e.SetEventHandler(muxpe.EventHandlerFunc(func(ev muxpe.Event) {
		logEvent(e, ev)
	}))

	debug.DebugLog.Printf("mode %s, detection bound: %d polls, %s", cfg.ModeValue, cfg.Detect.MaxPolls, cfg.Detect.Timeout)
	if err := e.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			debug.InfoLog.Printf("stopped before orientation was detected")
			return nil
		}
		return err
	}
	return nil
}

func logEvent(e *muxpe.Engine, ev muxpe.Event) {
	switch ev {
	case muxpe.EventOriented:
		o, _ := e.Orientation()
		debug.InfoLog.Printf("orientation %s, %s is active (%s)", o.Side(), o, e.Status())
	case muxpe.EventAmbiguous:
		debug.InfoLog.Printf("both cc lines active (%s), assuming CC1", e.Status())
	case muxpe.EventConfigured:
		debug.InfoLog.Printf("mux route %s", e.Route())
	default:
		debug.DebugLog.Printf("engine %s", ev)
	}
}

func openController(cfg *config.Config) (tcpcdriver.PortController, io.Closer, error) {
	if s := cfg.Controller.Simulate; s != nil {
		debug.InfoLog.Printf("simulating port controller: CC1=%s CC2=%s", s.CC1Level, s.CC2Level)
		return simcc.Fixed(s.CC1Level, s.CC2Level), nopCloser{}, nil
	}

	b, err := i2creg.Open(cfg.Controller.Bus)
	if err != nil {
		return nil, nil, fmt.Errorf("open i2c bus %q: %w", cfg.Controller.Bus, err)
	}
	if err := b.SetSpeed(physic.MegaHertz); err != nil {
		_ = b.Close()
		return nil, nil, fmt.Errorf("set i2c speed: %w", err)
	}
	f := fusb302.New(b, cfg.Controller.MPNValue)
	if id, err := f.DeviceID(); err == nil {
		debug.DebugLog.Printf("%s at 0x%02X, device id 0x%02X", cfg.Controller.MPN, cfg.Controller.MPNValue.I2CAddress(), id)
	}
	return f, b, nil
}

func openMux(cfg *config.Config) (usbmux.Mux, io.Closer, error) {
	var opts []gpiomux.Option
	if cfg.Mux.EnableActiveHigh {
		opts = append(opts, gpiomux.WithOEActiveHigh())
	}
	if cfg.Mux.SelectInverted {
		opts = append(opts, gpiomux.WithSelectInverted())
	}

	switch cfg.Mux.Backend {
	case config.BackendMemory:
		return memmux.New(), nopCloser{}, nil
	case config.BackendPeriph:
		m, err := gpiomux.OpenPeriph(cfg.Mux.SelectPin, cfg.Mux.EnablePin, opts...)
		if err != nil {
			return nil, nil, err
		}
		return m, m, nil
	default:
		m, err := gpiomux.OpenChip(cfg.Mux.Chip, cfg.Mux.Select, cfg.Mux.Enable, opts...)
		if err != nil {
			return nil, nil, err
		}
		return m, m, nil
	}
}
