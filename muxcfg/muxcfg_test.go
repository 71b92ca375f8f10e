package muxcfg

import (
	"bytes"
	"errors"
	"testing"

	"github.com/oxplot/go-usbmux"
	"github.com/oxplot/go-usbmux/ccdetect"
	"github.com/oxplot/go-usbmux/muxdriver/memmux"
	"github.com/oxplot/go-usbmux/tcpcdriver/simcc"
)

func TestSelectRoute(t *testing.T) {
	tests := []struct {
		mode usbmux.Mode
		o    usbmux.Orientation
		want usbmux.Route
	}{
		{usbmux.ModeIsolate, usbmux.OrientationCC1, usbmux.RouteDisconnect},
		{usbmux.ModeIsolate, usbmux.OrientationCC2, usbmux.RouteDisconnect},
		{usbmux.ModeSafe, usbmux.OrientationCC1, usbmux.RouteNoChange},
		{usbmux.ModeSafe, usbmux.OrientationCC2, usbmux.RouteNoChange},
		{usbmux.ModeSSOnly, usbmux.OrientationCC1, usbmux.RouteNoChange},
		{usbmux.ModeSSOnly, usbmux.OrientationCC2, usbmux.RouteNoChange},
		{usbmux.ModeInit, usbmux.OrientationCC1, usbmux.RouteConnectTop},
		{usbmux.ModeInit, usbmux.OrientationCC2, usbmux.RouteConnectBottom},
		{usbmux.ModeDeinit, usbmux.OrientationCC1, usbmux.RouteNoChange},
		{usbmux.ModeDeinit, usbmux.OrientationCC2, usbmux.RouteNoChange},
		{usbmux.Mode(200), usbmux.OrientationCC1, usbmux.RouteNoChange},
		{usbmux.Mode(200), usbmux.OrientationCC2, usbmux.RouteNoChange},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String()+"/"+tt.o.String(), func(t *testing.T) {
			if got := SelectRoute(tt.mode, tt.o); got != tt.want {
				t.Errorf("SelectRoute(%v, %v) = %v, want %v", tt.mode, tt.o, got, tt.want)
			}
		})
	}
}

func TestConfigurator_Configure(t *testing.T) {
	m := memmux.New()
	c := New(m)
	if c.Route() != usbmux.RouteNoChange {
		t.Fatalf("initial route = %v", c.Route())
	}

	r, err := c.Configure(usbmux.ModeInit, usbmux.OrientationCC1)
	if err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if r != usbmux.RouteConnectTop || c.Route() != usbmux.RouteConnectTop {
		t.Errorf("route = %v, current = %v, want connect-top", r, c.Route())
	}

	// Reserved modes leave the mux alone.
	for _, mode := range []usbmux.Mode{usbmux.ModeSafe, usbmux.ModeSSOnly, usbmux.ModeDeinit} {
		r, err := c.Configure(mode, usbmux.OrientationCC2)
		if err != nil || r != usbmux.RouteNoChange {
			t.Errorf("Configure(%v) = %v, %v", mode, r, err)
		}
	}
	if c.Route() != usbmux.RouteConnectTop {
		t.Errorf("reserved mode changed current route to %v", c.Route())
	}
	if len(m.History()) != 1 {
		t.Errorf("mux writes = %v, want exactly one", m.History())
	}
}

func TestConfigurator_Idempotent(t *testing.T) {
	m := memmux.New()
	once := New(m)
	if err := once.Apply(usbmux.RouteConnectBottom); err != nil {
		t.Fatal(err)
	}
	twice := New(memmux.New())
	for i := 0; i < 2; i++ {
		if err := twice.Apply(usbmux.RouteConnectBottom); err != nil {
			t.Fatal(err)
		}
	}
	if once.Route() != twice.Route() {
		t.Errorf("applying twice gave %v, once gave %v", twice.Route(), once.Route())
	}
}

func TestConfigurator_Errors(t *testing.T) {
	m := memmux.New()
	c := New(m)
	if err := c.Apply(usbmux.Route(17)); !errors.Is(err, usbmux.ErrInvalidRoute) {
		t.Errorf("Apply(17) error = %v, want ErrInvalidRoute", err)
	}

	errHW := errors.New("switch fault")
	m.Fail(errHW)
	r, err := c.Configure(usbmux.ModeIsolate, usbmux.OrientationCC1)
	if !errors.Is(err, errHW) {
		t.Errorf("Configure error = %v, want %v", err, errHW)
	}
	if r != usbmux.RouteDisconnect {
		t.Errorf("selected route = %v, want disconnect", r)
	}
	if c.Route() != usbmux.RouteNoChange {
		t.Errorf("failed apply published route %v", c.Route())
	}
}

func TestEndToEnd(t *testing.T) {
	tests := []struct {
		name   string
		cc1    usbmux.CCLevel
		cc2    usbmux.CCLevel
		mode   usbmux.Mode
		want   usbmux.Route
		report string
	}{
		{"cc1 3A", usbmux.Level3A, usbmux.LevelBelowThreshold, usbmux.ModeInit, usbmux.RouteConnectTop, "Orientation A\nCC1 is Active\n"},
		{"cc2 1.5A", usbmux.LevelBelowThreshold, usbmux.Level1A5, usbmux.ModeInit, usbmux.RouteConnectBottom, "Orientation B\nCC2 is Active\n"},
		{"isolate cc1", usbmux.Level3A, usbmux.LevelUndetermined, usbmux.ModeIsolate, usbmux.RouteDisconnect, "Mux isolated\n"},
		{"isolate cc2", usbmux.LevelUndetermined, usbmux.Level3A, usbmux.ModeIsolate, usbmux.RouteDisconnect, "Mux isolated\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := ccdetect.Detect(simcc.Fixed(tt.cc1, tt.cc2))
			c := New(memmux.New())
			r, err := c.Configure(tt.mode, o)
			if err != nil {
				t.Fatal(err)
			}
			if r != tt.want || c.Route() != tt.want {
				t.Errorf("route = %v, current = %v, want %v", r, c.Route(), tt.want)
			}
			var buf bytes.Buffer
			NewReporter(&buf, "\n").Report(c.Route())
			if buf.String() != tt.report {
				t.Errorf("report = %q, want %q", buf.String(), tt.report)
			}
		})
	}
}

func TestReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, "\r\n")
	r.Report(usbmux.RouteNoChange)
	if buf.Len() != 0 {
		t.Errorf("no-change wrote %q", buf.String())
	}
	r.Status(usbmux.CCStatus{CC1: usbmux.Level3A})
	if got, want := buf.String(), "CC status: CC1=3A CC2=undetermined\r\n"; got != want {
		t.Errorf("Status wrote %q, want %q", got, want)
	}
	buf.Reset()
	r.Banner()
	if !bytes.Contains(buf.Bytes(), []byte("USB2.0 Mux Functionality")) {
		t.Errorf("Banner wrote %q", buf.String())
	}
}
