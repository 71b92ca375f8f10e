//go:build linux

package gpiomux

import (
	"fmt"

	"github.com/warthog618/gpiod"
)

// OpenChip requests the select and output enable lines at the given offsets
// on a GPIO character device, e.g. "gpiochip0", and returns a mux driving
// them. A negative oe means the output enable pin is hardwired. Both lines
// start with the switch disabled. Close releases the lines.
func OpenChip(chip string, sel, oe int, opts ...Option) (*Mux, error) {
	c, err := gpiod.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("gpiomux: open %s: %w", chip, err)
	}
	m := New(nil, nil, opts...)
	m.closers = append(m.closers, c)

	sl, err := c.RequestLine(sel, gpiod.AsOutput(0))
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("gpiomux: request select line %d: %w", sel, err)
	}
	m.sel = sl
	m.closers = append(m.closers, sl)

	if oe >= 0 {
		off := 1
		if m.oeActiveHigh {
			off = 0
		}
		ol, err := c.RequestLine(oe, gpiod.AsOutput(off))
		if err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("gpiomux: request enable line %d: %w", oe, err)
		}
		m.oe = ol
		m.closers = append(m.closers, ol)
	}
	return m, nil
}
