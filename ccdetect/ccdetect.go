// Package ccdetect determines the orientation of a Type-C plug by polling the
// state of its CC conductors.
package ccdetect

import (
	"context"
	"fmt"
	"time"

	"github.com/oxplot/go-usbmux"
)

// DefaultOrientation is returned by Classify when a reading is settled but
// neither conductor is in the active range.
const DefaultOrientation = usbmux.OrientationCC2

// Classify returns the orientation implied by s. CC1 is checked first and
// wins regardless of CC2. If neither conductor is active, DefaultOrientation
// is returned.
func Classify(s usbmux.CCStatus) usbmux.Orientation {
	if s.CC1.Active() {
		return usbmux.OrientationCC1
	}
	if s.CC2.Active() {
		return usbmux.OrientationCC2
	}
	return DefaultOrientation
}

// Ambiguous returns true if both conductors report an active level. Only one
// conductor can be terminated at a time, so this indicates a faulty reading
// or partner. Classify resolves it in favour of CC1.
func Ambiguous(s usbmux.CCStatus) bool {
	return s.CC1.Active() && s.CC2.Active()
}

// Option configures a Detector.
type Option func(*Detector)

// WithMaxPolls bounds detection to n readings. n <= 0 means no bound.
func WithMaxPolls(n int) Option {
	return func(d *Detector) {
		d.maxPolls = n
	}
}

// WithTimeout bounds detection to duration t. t <= 0 means no bound.
func WithTimeout(t time.Duration) Option {
	return func(d *Detector) {
		d.timeout = t
	}
}

// WithInterval sleeps for t between unsettled readings. Zero, the default,
// polls back to back.
func WithInterval(t time.Duration) Option {
	return func(d *Detector) {
		d.interval = t
	}
}

// WithObserver registers fn to be called with every reading, settled or not.
func WithObserver(fn func(usbmux.CCStatus)) Option {
	return func(d *Detector) {
		d.observe = fn
	}
}

// Detector polls a CCReader until the plug orientation can be decided.
// A zero Detector polls without bound.
type Detector struct {
	maxPolls int
	timeout  time.Duration
	interval time.Duration
	observe  func(usbmux.CCStatus)
}

// New creates a new detector with the given options.
func New(opts ...Option) *Detector {
	d := &Detector{}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Detect reads r until at least one conductor is above the undetermined
// threshold and returns the orientation classified from that reading along
// with the reading itself.
//
// Without bounds, Detect blocks until a settled reading is seen or ctx is
// done, in which case ctx.Err() is returned. If a bound is exhausted,
// usbmux.ErrNoOrientation is returned. A read error aborts detection.
func (d *Detector) Detect(ctx context.Context, r usbmux.CCReader) (usbmux.Orientation, usbmux.CCStatus, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	done := ctx.Done()

	for polls := 1; ; polls++ {
		s, err := r.CCStatus()
		if err != nil {
			return DefaultOrientation, s, fmt.Errorf("ccdetect: read cc status: %w", err)
		}
		if d.observe != nil {
			d.observe(s)
		}
		if s.Settled() {
			return Classify(s), s, nil
		}
		if d.maxPolls > 0 && polls >= d.maxPolls {
			return DefaultOrientation, s, fmt.Errorf("%w after %d polls", usbmux.ErrNoOrientation, polls)
		}

		if d.interval > 0 {
			t := time.NewTimer(d.interval)
			select {
			case <-done:
				t.Stop()
				return DefaultOrientation, s, d.ctxErr(ctx)
			case <-t.C:
			}
			continue
		}

		// done is nil for a background context so this costs nothing in the
		// default busy spin.
		if done != nil {
			select {
			case <-done:
				return DefaultOrientation, s, d.ctxErr(ctx)
			default:
			}
		}
	}
}

func (d *Detector) ctxErr(ctx context.Context) error {
	if d.timeout > 0 && ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w within %s", usbmux.ErrNoOrientation, d.timeout)
	}
	return ctx.Err()
}

// Detect blocks until r reports a settled reading and returns the classified
// orientation. Read errors are treated as unsettled readings.
func Detect(r usbmux.CCReader) usbmux.Orientation {
	for {
		s, err := r.CCStatus()
		if err == nil && s.Settled() {
			return Classify(s)
		}
	}
}
