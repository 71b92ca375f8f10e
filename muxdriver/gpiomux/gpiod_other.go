//go:build !linux

package gpiomux

import "errors"

// OpenChip is only available on linux.
func OpenChip(chip string, sel, oe int, opts ...Option) (*Mux, error) {
	return nil, errors.New("gpiomux: gpio character devices require linux")
}
