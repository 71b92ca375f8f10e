// Package gpiomux implements a data mux driver for discrete 2:1 USB 2.0
// switches such as FSUSB42 or TS3USB221, which are controlled by a select
// line and an output enable line.
package gpiomux

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/oxplot/go-usbmux"
)

// Line is a single GPIO output. It's satisfied by *gpiod.Line and by
// PeriphLine.
type Line interface {

	// SetValue drives the line high for any non-zero v and low otherwise.
	SetValue(v int) error
}

// ErrNoEnableLine is returned by SetRoute when asked to disconnect a mux
// whose output enable line is not under control.
var ErrNoEnableLine = errors.New("gpiomux: no output enable line to disconnect with")

// Option configures a Mux.
type Option func(*Mux)

// WithOEActiveHigh marks the output enable line as active high. By default it
// is active low, as on most USB 2.0 switches.
func WithOEActiveHigh() Option {
	return func(m *Mux) {
		m.oeActiveHigh = true
	}
}

// WithSelectInverted swaps the select levels so that high selects the top
// pair. By default low selects top.
func WithSelectInverted() Option {
	return func(m *Mux) {
		m.selInverted = true
	}
}

// Mux drives a discrete USB 2.0 switch. It is safe for concurrent use.
type Mux struct {
	sel Line
	oe  Line // nil if OE is hardwired

	oeActiveHigh bool
	selInverted  bool

	mu      sync.Mutex
	route   usbmux.Route // RouteNoChange until the first successful write
	closers []io.Closer
}

// New creates a mux driver over the given lines. oe may be nil if the output
// enable pin is hardwired, in which case RouteDisconnect is not available.
func New(sel, oe Line, opts ...Option) *Mux {
	m := &Mux{sel: sel, oe: oe}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Mux) enable(on bool) error {
	if m.oe == nil {
		if on {
			return nil
		}
		return ErrNoEnableLine
	}
	v := 0
	if on == m.oeActiveHigh {
		v = 1
	}
	return m.oe.SetValue(v)
}

func (m *Mux) selectTop(top bool) error {
	v := 1
	if top != m.selInverted {
		v = 0
	}
	return m.sel.SetValue(v)
}

// SetRoute implements usbmux.Mux interface. The lines are only written when
// r differs from the route in effect. When switching pairs, the switch is
// disabled while the select line changes.
//
// If a write fails, the cached route is set to what the lines are known to be
// in: RouteDisconnect if the switch was already disabled, RouteNoChange if
// their state is unknown, so that the next SetRoute rewrites them.
func (m *Mux) SetRoute(r usbmux.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r == m.route || r == usbmux.RouteNoChange {
		return nil
	}

	switch r {
	case usbmux.RouteConnectTop, usbmux.RouteConnectBottom:
		if m.route != usbmux.RouteNoChange && m.route != usbmux.RouteDisconnect && m.oe != nil {
			if err := m.enable(false); err != nil {
				m.route = usbmux.RouteNoChange
				return err
			}
			m.route = usbmux.RouteDisconnect
		}
		if err := m.selectTop(r == usbmux.RouteConnectTop); err != nil {
			if m.route != usbmux.RouteDisconnect {
				m.route = usbmux.RouteNoChange
			}
			return err
		}
		if err := m.enable(true); err != nil {
			m.route = usbmux.RouteNoChange
			return err
		}
	case usbmux.RouteDisconnect:
		if err := m.enable(false); err != nil {
			// nothing was written without an OE line
			if !errors.Is(err, ErrNoEnableLine) {
				m.route = usbmux.RouteNoChange
			}
			return err
		}
	default:
		return fmt.Errorf("%w: %d", usbmux.ErrInvalidRoute, r)
	}
	m.route = r
	return nil
}

// Route returns the route last written to the lines.
func (m *Mux) Route() usbmux.Route {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.route
}

// Close releases any lines and chips the mux opened itself.
func (m *Mux) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var first error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	m.closers = nil
	return first
}
