// Package simcc implements a simulated CC sensor which plays back a scripted
// sequence of readings. It is used for dry runs without hardware and in
// tests.
package simcc

import (
	"sync"

	"github.com/oxplot/go-usbmux"
)

// Reader plays back a list of CC readings. Once the list is exhausted, the
// last reading is repeated forever. Reader is safe for concurrent use.
type Reader struct {
	mu       sync.Mutex
	readings []usbmux.CCStatus
	polls    int
	err      error
	errAt    int
}

// New creates a reader that returns the given readings in order. With no
// readings, every poll returns an undetermined status.
func New(readings ...usbmux.CCStatus) *Reader {
	return &Reader{readings: readings}
}

// Fixed creates a reader which always returns the given levels.
func Fixed(cc1, cc2 usbmux.CCLevel) *Reader {
	return New(usbmux.CCStatus{CC1: cc1, CC2: cc2})
}

// FailAt makes poll number n (1-based) and every poll after it return err.
func (r *Reader) FailAt(n int, err error) {
	r.mu.Lock()
	r.errAt, r.err = n, err
	r.mu.Unlock()
}

// CCStatus implements usbmux.CCReader interface.
func (r *Reader) CCStatus() (usbmux.CCStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.polls++
	if r.err != nil && r.polls >= r.errAt {
		return usbmux.CCStatus{}, r.err
	}
	if len(r.readings) == 0 {
		return usbmux.CCStatus{}, nil
	}
	i := r.polls - 1
	if i >= len(r.readings) {
		i = len(r.readings) - 1
	}
	return r.readings[i], nil
}

// Polls returns the number of readings taken so far.
func (r *Reader) Polls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.polls
}

// Init resets the poll counter so the script plays back from the start. It
// lets Reader stand in for a port controller.
func (r *Reader) Init() error {
	r.mu.Lock()
	r.polls = 0
	r.mu.Unlock()
	return nil
}
