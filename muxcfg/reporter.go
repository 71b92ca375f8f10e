package muxcfg

import (
	"fmt"
	"io"

	"github.com/oxplot/go-usbmux"
)

// Reporter writes a textual description of the mux state to a given
// io.Writer. It's mostly used for debugging purposes, often over a serial
// console.
type Reporter struct {
	w   io.Writer
	sep string
}

// NewReporter creates a new reporter which will write to the given writer.
// Line separator is written to the writer after each line of output. Some
// common values are "\n", "\r", "\r\n".
func NewReporter(w io.Writer, lineSep string) *Reporter {
	return &Reporter{
		w:   w,
		sep: lineSep,
	}
}

// Banner clears the terminal and writes the start-up banner.
func (r *Reporter) Banner() {
	fmt.Fprint(r.w, "\x1b[2J\x1b[;H")
	fmt.Fprintf(r.w, "***************** USB2.0 Mux Functionality *****************%s%s", r.sep, r.sep)
}

// Report describes route rt. Routes that connect the data lines are reported
// as the plug orientation they imply. RouteNoChange writes nothing.
func (r *Reporter) Report(rt usbmux.Route) {
	switch rt {
	case usbmux.RouteConnectTop:
		r.orientation(usbmux.OrientationCC1)
	case usbmux.RouteConnectBottom:
		r.orientation(usbmux.OrientationCC2)
	case usbmux.RouteDisconnect:
		fmt.Fprintf(r.w, "Mux isolated%s", r.sep)
	case usbmux.RouteNoChange:
	default:
		fmt.Fprintf(r.w, "INVALID route %d%s", rt, r.sep)
	}
}

// Status writes a single CC reading.
func (r *Reporter) Status(s usbmux.CCStatus) {
	fmt.Fprintf(r.w, "CC status: %s%s", s, r.sep)
}

func (r *Reporter) orientation(o usbmux.Orientation) {
	fmt.Fprintf(r.w, "Orientation %s%s", o.Side(), r.sep)
	fmt.Fprintf(r.w, "%s is Active%s", o, r.sep)
}
