// Package muxpe provides the boot-time engine that brings up a CC sensor,
// detects the plug orientation and configures the USB 2.0 data mux once.
package muxpe

import (
	"context"
	"fmt"
	"sync"

	"github.com/oxplot/go-usbmux"
	"github.com/oxplot/go-usbmux/ccdetect"
	"github.com/oxplot/go-usbmux/muxcfg"
	"github.com/oxplot/go-usbmux/tcpcdriver"
)

// Event is an engine event, usually used for logging and diagnostics.
type Event string

const (
	// EventStarted is fired once the port controller is initialized.
	EventStarted Event = "started"

	// EventDetecting is fired when the engine starts polling the CC lines.
	EventDetecting Event = "detecting"

	// EventOriented is fired when the plug orientation is known.
	EventOriented Event = "oriented"

	// EventAmbiguous is fired before EventOriented if both CC lines reported
	// an active level. CC1 is assumed.
	EventAmbiguous Event = "ambiguous"

	// EventConfigured is fired when the mux route has been applied.
	EventConfigured Event = "configured"

	// EventHolding is fired when the engine has nothing left to do and waits
	// for its context to end.
	EventHolding Event = "holding"
)

// EventHandler is an interface that wraps the method HandleEvent.
type EventHandler interface {
	// HandleEvent is called on every engine event. It's called from the
	// goroutine running the engine and should return quickly.
	HandleEvent(Event)
}

// EventHandlerFunc is an adapter to allow the use of ordinary functions as
// EventHandler.
type EventHandlerFunc func(Event)

// HandleEvent implements EventHandler interface.
func (e EventHandlerFunc) HandleEvent(ev Event) {
	e(ev)
}

// Engine runs the one-shot mux configuration sequence. It never re-detects:
// once the mux is configured it holds until its context is done.
type Engine struct {
	pc       tcpcdriver.PortController
	cfg      *muxcfg.Configurator
	detector *ccdetect.Detector
	reporter *muxcfg.Reporter
	mode     usbmux.Mode

	mu          sync.Mutex
	status      usbmux.CCStatus
	orientation usbmux.Orientation
	oriented    bool

	callbacks struct {
		mu           sync.Mutex
		eventHandler EventHandler
	}
}

// New creates a new engine reading pc and configuring the mux through cfg in
// ModeInit, with an unbounded detector.
func New(pc tcpcdriver.PortController, cfg *muxcfg.Configurator) *Engine {
	return &Engine{
		pc:       pc,
		cfg:      cfg,
		detector: ccdetect.New(),
		mode:     usbmux.ModeInit,
	}
}

// SetDetector replaces the detector, e.g. with a bounded one.
func (e *Engine) SetDetector(d *ccdetect.Detector) {
	e.detector = d
}

// SetMode sets the mode requested from the mux once orientation is known.
func (e *Engine) SetMode(m usbmux.Mode) {
	e.mode = m
}

// SetReporter sets the reporter the resulting route is described to. Pass nil
// to disable reporting.
func (e *Engine) SetReporter(r *muxcfg.Reporter) {
	e.reporter = r
}

// SetEventHandler sets the event handler to send events to. Pass nil to remove
// the existing handler.
func (e *Engine) SetEventHandler(h EventHandler) {
	e.callbacks.mu.Lock()
	e.callbacks.eventHandler = h
	e.callbacks.mu.Unlock()
}

func (e *Engine) notifyEvent(ev Event) {
	e.callbacks.mu.Lock()
	defer e.callbacks.mu.Unlock()
	if e.callbacks.eventHandler != nil {
		e.callbacks.eventHandler.HandleEvent(ev)
	}
}

// Orientation returns the detected orientation. ok is false until detection
// has completed.
func (e *Engine) Orientation() (o usbmux.Orientation, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.orientation, e.oriented
}

// Status returns the CC reading orientation was decided on.
func (e *Engine) Status() usbmux.CCStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Route returns the mux route currently in effect.
func (e *Engine) Route() usbmux.Route {
	return e.cfg.Route()
}

// Run performs the configuration sequence and then blocks until ctx is done.
// It returns nil if ctx ends while holding and the failing step's error
// otherwise. Only one call to Run must be in progress at any given time.
func (e *Engine) Run(ctx context.Context) error {
	for cur := stateStartup; cur != nil; {
		next, err := cur.Enter(ctx, e)
		if err != nil {
			return fmt.Errorf("muxpe: %s: %w", cur.Name, err)
		}
		cur = next
	}
	return nil
}

// state represents an engine state.
type state struct {
	Name string

	// Enter runs the state to completion and returns the next state, or nil
	// when the sequence is over.
	Enter func(ctx context.Context, e *Engine) (next *state, err error)
}

var (
	stateStartup   *state
	stateDetect    *state
	stateConfigure *state
	stateReport    *state
	stateHold      *state
)

func init() {

	// Initializing is done here to avoid circular references between states
	// which are not allowed at the package level variable assignments.

	stateStartup = &state{
		Name: "startup",
		Enter: func(ctx context.Context, e *Engine) (*state, error) {
			if err := e.pc.Init(); err != nil {
				return nil, err
			}
			e.notifyEvent(EventStarted)
			return stateDetect, nil
		},
	}

	stateDetect = &state{
		Name: "detect",
		Enter: func(ctx context.Context, e *Engine) (*state, error) {
			e.notifyEvent(EventDetecting)
			o, s, err := e.detector.Detect(ctx, e.pc)
			if err != nil {
				return nil, err
			}
			e.mu.Lock()
			e.orientation, e.status, e.oriented = o, s, true
			e.mu.Unlock()
			if ccdetect.Ambiguous(s) {
				e.notifyEvent(EventAmbiguous)
			}
			e.notifyEvent(EventOriented)
			return stateConfigure, nil
		},
	}

	stateConfigure = &state{
		Name: "configure",
		Enter: func(ctx context.Context, e *Engine) (*state, error) {
			o, _ := e.Orientation()
			if _, err := e.cfg.Configure(e.mode, o); err != nil {
				return nil, err
			}
			e.notifyEvent(EventConfigured)
			return stateReport, nil
		},
	}

	stateReport = &state{
		Name: "report",
		Enter: func(ctx context.Context, e *Engine) (*state, error) {
			if e.reporter != nil {
				e.reporter.Status(e.Status())
				e.reporter.Report(e.cfg.Route())
			}
			return stateHold, nil
		},
	}

	stateHold = &state{
		Name: "hold",
		Enter: func(ctx context.Context, e *Engine) (*state, error) {
			e.notifyEvent(EventHolding)
			<-ctx.Done()
			return nil, nil
		},
	}

}
