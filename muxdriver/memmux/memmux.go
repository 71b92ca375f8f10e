// Package memmux implements an in-memory data mux. It records every route
// that reaches the "hardware" and is used for dry runs and tests.
package memmux

import (
	"fmt"
	"sync"

	"github.com/oxplot/go-usbmux"
)

// Mux is an in-memory usbmux.Mux. It is safe for concurrent use.
type Mux struct {
	mu      sync.Mutex
	route   usbmux.Route
	history []usbmux.Route
	err     error
}

// New creates a mux with nothing connected.
func New() *Mux {
	return &Mux{}
}

// SetRoute implements usbmux.Mux interface. Re-applying the route in effect
// and RouteNoChange are not recorded as hardware writes.
func (m *Mux) SetRoute(r usbmux.Route) error {
	if !r.Valid() {
		return fmt.Errorf("%w: %d", usbmux.ErrInvalidRoute, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if r == m.route || r == usbmux.RouteNoChange {
		return nil
	}
	m.route = r
	m.history = append(m.history, r)
	return nil
}

// Route returns the route last written.
func (m *Mux) Route() usbmux.Route {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.route
}

// History returns a copy of all routes written, in order.
func (m *Mux) History() []usbmux.Route {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := make([]usbmux.Route, len(m.history))
	copy(h, m.history)
	return h
}

// Fail makes every future SetRoute return err. Pass nil to recover.
func (m *Mux) Fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}
