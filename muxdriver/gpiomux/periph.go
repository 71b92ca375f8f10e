package gpiomux

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// PeriphLine adapts a periph.io output pin to Line.
type PeriphLine struct {
	gpio.PinOut
}

// SetValue implements Line interface.
func (p PeriphLine) SetValue(v int) error {
	if v != 0 {
		return p.Out(gpio.High)
	}
	return p.Out(gpio.Low)
}

// OpenPeriph looks up the named select and output enable pins, e.g. "GPIO17",
// in the periph registry and returns a mux driving them. An empty oe means
// the output enable pin is hardwired. host.Init must have been called.
func OpenPeriph(sel, oe string, opts ...Option) (*Mux, error) {
	sp := gpioreg.ByName(sel)
	if sp == nil {
		return nil, fmt.Errorf("gpiomux: no such pin %q", sel)
	}
	m := New(PeriphLine{sp}, nil, opts...)
	if oe != "" {
		op := gpioreg.ByName(oe)
		if op == nil {
			return nil, fmt.Errorf("gpiomux: no such pin %q", oe)
		}
		m.oe = PeriphLine{op}
		if err := m.enable(false); err != nil {
			return nil, fmt.Errorf("gpiomux: disable %s: %w", oe, err)
		}
	}
	return m, nil
}
