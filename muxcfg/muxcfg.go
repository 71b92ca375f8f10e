// Package muxcfg maps requested mux modes onto physical routes and keeps
// track of the route in effect.
package muxcfg

import (
	"fmt"
	"sync"

	"github.com/oxplot/go-usbmux"
)

// SelectRoute returns the route that realises mode m for orientation o.
//
// Only ModeIsolate and ModeInit result in a physical change. ModeSafe,
// ModeSSOnly and ModeDeinit are recognised but map to RouteNoChange until the
// mux supports them. Unknown modes also map to RouteNoChange.
func SelectRoute(m usbmux.Mode, o usbmux.Orientation) usbmux.Route {
	switch m {
	case usbmux.ModeIsolate:
		return usbmux.RouteDisconnect
	case usbmux.ModeSafe:
		return usbmux.RouteNoChange
	case usbmux.ModeSSOnly:
		return usbmux.RouteNoChange
	case usbmux.ModeInit:
		if o == usbmux.OrientationCC1 {
			return usbmux.RouteConnectTop
		}
		return usbmux.RouteConnectBottom
	case usbmux.ModeDeinit:
		return usbmux.RouteNoChange
	default:
		return usbmux.RouteNoChange
	}
}

// Configurator applies routes to a mux and remembers the last one applied.
// Configure and Apply must not be called concurrently with each other; Route
// may be called from any goroutine.
type Configurator struct {
	mux usbmux.Mux

	mu    sync.RWMutex
	route usbmux.Route
}

// New creates a configurator for the given mux. The current route is
// RouteNoChange until a route is applied.
func New(mux usbmux.Mux) *Configurator {
	return &Configurator{mux: mux}
}

// Configure selects the route for mode m and orientation o and applies it,
// unless it is RouteNoChange. The selected route is returned even if applying
// it fails.
func (c *Configurator) Configure(m usbmux.Mode, o usbmux.Orientation) (usbmux.Route, error) {
	r := SelectRoute(m, o)
	if r == usbmux.RouteNoChange {
		return r, nil
	}
	return r, c.Apply(r)
}

// Apply sends r to the mux and publishes it as the current route once the
// mux accepted it. RouteNoChange is a no-op.
func (c *Configurator) Apply(r usbmux.Route) error {
	if !r.Valid() {
		return fmt.Errorf("%w: %d", usbmux.ErrInvalidRoute, r)
	}
	if r == usbmux.RouteNoChange {
		return nil
	}
	if err := c.mux.SetRoute(r); err != nil {
		return fmt.Errorf("muxcfg: set route %s: %w", r, err)
	}
	c.mu.Lock()
	c.route = r
	c.mu.Unlock()
	return nil
}

// Route returns the route currently in effect.
func (c *Configurator) Route() usbmux.Route {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.route
}
