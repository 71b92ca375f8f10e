// Package usbmux defines the types and collaborator interfaces used to route
// the USB 2.0 data lines of a Type-C receptacle through a data multiplexer,
// based on which CC conductor carries the Rp/Rd termination.
package usbmux

import (
	"errors"
	"fmt"
	"strings"
)

// CCLevel is the electrical level observed on a single CC conductor. Levels
// are ordered: a higher value means a stronger Rp advertisement.
type CCLevel uint8

// CC levels in ascending order.
const (
	LevelUndetermined   CCLevel = iota // Open or Ra, nothing measurable yet
	LevelBelowThreshold                // Default USB current, not a valid active level
	Level1A5                           // Rp advertising 1.5A
	Level1A5To3A                       // Between the 1.5A and 3A thresholds
	Level3A                            // Rp advertising 3A
	LevelAboveRange                    // Above the highest valid threshold
)

var levelNames = [...]string{
	LevelUndetermined:   "undetermined",
	LevelBelowThreshold: "below-threshold",
	Level1A5:            "1.5A",
	Level1A5To3A:        "1.5A-3A",
	Level3A:             "3A",
	LevelAboveRange:     "above-range",
}

func (l CCLevel) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "INVALID"
}

// Determined returns true if the level is strictly above the undetermined
// threshold.
func (l CCLevel) Determined() bool {
	return l > LevelBelowThreshold
}

// Active returns true if the level lies within [Level1A5, Level3A], which
// means Rp and Rd are both applied on the conductor.
func (l CCLevel) Active() bool {
	return l >= Level1A5 && l <= Level3A
}

// ParseLevel returns the level named s. Names are those returned by
// CCLevel.String and are matched case-insensitively.
func ParseLevel(s string) (CCLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for l, n := range levelNames {
		if s == strings.ToLower(n) {
			return CCLevel(l), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// CCStatus is a single reading of both CC conductors.
type CCStatus struct {
	CC1 CCLevel
	CC2 CCLevel
}

// Settled returns true if at least one conductor reports a determined level.
func (s CCStatus) Settled() bool {
	return s.CC1.Determined() || s.CC2.Determined()
}

func (s CCStatus) String() string {
	return "CC1=" + s.CC1.String() + " CC2=" + s.CC2.String()
}

// Orientation identifies the active CC conductor. It is a boolean so that the
// zero value is OrientationCC2.
type Orientation bool

const (
	OrientationCC1 Orientation = true  // Plug in orientation A
	OrientationCC2 Orientation = false // Plug in orientation B
)

func (o Orientation) String() string {
	if o == OrientationCC1 {
		return "CC1"
	}
	return "CC2"
}

// Side returns the plug orientation letter, "A" for CC1 and "B" for CC2.
func (o Orientation) Side() string {
	if o == OrientationCC1 {
		return "A"
	}
	return "B"
}

// Mode is a requested configuration of the data mux, independent of
// orientation.
type Mode uint8

const (
	ModeIsolate Mode = iota // Disconnect the data lines
	ModeSafe                // USB safe state, USB 2.0 lines remain active
	ModeSSOnly              // SuperSpeed only
	ModeInit                // Enable the mux for the detected orientation
	ModeDeinit              // Disable the mux
)

func (m Mode) String() string {
	switch m {
	case ModeIsolate:
		return "isolate"
	case ModeSafe:
		return "safe"
	case ModeSSOnly:
		return "ss-only"
	case ModeInit:
		return "init"
	case ModeDeinit:
		return "deinit"
	default:
		return "INVALID"
	}
}

// ParseMode returns the mode named s as returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "isolate":
		return ModeIsolate, nil
	case "safe":
		return ModeSafe, nil
	case "ss-only", "ssonly":
		return ModeSSOnly, nil
	case "init":
		return ModeInit, nil
	case "deinit":
		return ModeDeinit, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Route is the physical outcome applied to the data mux.
type Route uint8

const (
	RouteNoChange      Route = iota // Leave the mux as it is
	RouteConnectTop                 // Connect the system lines to the top pair
	RouteConnectBottom              // Connect the system lines to the bottom pair
	RouteDisconnect                 // Isolate the system lines
)

func (r Route) String() string {
	switch r {
	case RouteNoChange:
		return "no-change"
	case RouteConnectTop:
		return "connect-top"
	case RouteConnectBottom:
		return "connect-bottom"
	case RouteDisconnect:
		return "disconnect"
	default:
		return "INVALID"
	}
}

// Valid returns true if r is one of the known routes.
func (r Route) Valid() bool {
	return r <= RouteDisconnect
}

// CCReader provides an interface to whatever senses the CC conductors, often
// a port controller IC such as FUSB302.
type CCReader interface {

	// CCStatus returns the instantaneous level of both conductors. It may be
	// called at an arbitrarily high rate and must have no side effects other
	// than the hardware read. The error is only ever a transport error.
	CCStatus() (CCStatus, error)
}

// CCReaderFunc is an adapter to allow the use of ordinary functions as
// CCReader.
type CCReaderFunc func() (CCStatus, error)

// CCStatus implements CCReader interface.
func (f CCReaderFunc) CCStatus() (CCStatus, error) {
	return f()
}

// Mux provides an interface to the data multiplexer hardware.
type Mux interface {

	// SetRoute physically applies r. RouteNoChange is never passed. Applying
	// the route already in effect must not touch the hardware again.
	SetRoute(r Route) error
}

var (
	// ErrNoOrientation is returned by bounded detection when no conductor
	// settled within the bound.
	ErrNoOrientation = errors.New("no cc orientation detected")

	// ErrInvalidLevel is returned when parsing an unknown CC level name.
	ErrInvalidLevel = errors.New("invalid cc level")

	// ErrInvalidMode is returned when parsing an unknown mux mode name.
	ErrInvalidMode = errors.New("invalid mux mode")

	// ErrInvalidRoute is returned when applying an unknown route.
	ErrInvalidRoute = errors.New("invalid mux route")
)
