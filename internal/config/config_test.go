package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/womat/debug"

	"github.com/oxplot/go-usbmux"
	"github.com/oxplot/go-usbmux/tcpcdriver/fusb302"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "usbmuxd.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadConfig_Defaults(t *testing.T) {
	c := NewConfig()
	c.Flag.ConfigFile = filepath.Join(t.TempDir(), "missing.yaml")
	if err := c.LoadConfig(); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if c.ModeValue != usbmux.ModeInit {
		t.Errorf("mode = %v, want init", c.ModeValue)
	}
	if c.Controller.MPNValue != fusb302.FUSB302BMPX {
		t.Errorf("mpn = %v", c.Controller.MPNValue)
	}
	if c.Mux.Backend != BackendGPIOD || c.Mux.Chip != "gpiochip0" {
		t.Errorf("mux = %+v", c.Mux)
	}
	if c.Detect.Timeout != 0 || c.Detect.MaxPolls != 0 {
		t.Errorf("detection should be unbounded by default: %+v", c.Detect)
	}
	if c.Debug.File != os.Stderr {
		t.Errorf("debug file should default to stderr")
	}
}

func TestLoadConfig_Required(t *testing.T) {
	c := NewConfig()
	c.Flag.ConfigFile = filepath.Join(t.TempDir(), "missing.yaml")
	c.Flag.ConfigRequired = true
	if err := c.LoadConfig(); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig error = %v, want not exist", err)
	}
}

func TestLoadConfig_File(t *testing.T) {
	c := NewConfig()
	c.Flag.ConfigFile = writeConfig(t, `
mode: isolate
controller:
  bus: "3"
  mpn: FUSB302B10MPX
mux:
  backend: periph
  selectpin: GPIO5
  enablepin: GPIO6
  enableactivehigh: true
detect:
  timeout: 1500
  maxpolls: 100
  interval: 250
report:
  enabled: false
  linesep: "\n"
debug:
  flag: debug
  file: stdout
`)
	c.Flag.Debug = "trace"
	if err := c.LoadConfig(); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if c.ModeValue != usbmux.ModeIsolate {
		t.Errorf("mode = %v", c.ModeValue)
	}
	if c.Controller.Bus != "3" || c.Controller.MPNValue != fusb302.FUSB302B10MPX {
		t.Errorf("controller = %+v", c.Controller)
	}
	if c.Mux.Backend != BackendPeriph || c.Mux.SelectPin != "GPIO5" || !c.Mux.EnableActiveHigh {
		t.Errorf("mux = %+v", c.Mux)
	}
	if c.Detect.Timeout != 1500*time.Millisecond || c.Detect.Interval != 250*time.Microsecond || c.Detect.MaxPolls != 100 {
		t.Errorf("detect = %+v", c.Detect)
	}
	if c.Report.Enabled || c.Report.LineSep != "\n" {
		t.Errorf("report = %+v", c.Report)
	}
	if c.Debug.FlagString != "trace" {
		t.Errorf("flag override ignored: %q", c.Debug.FlagString)
	}
	if c.Debug.File != os.Stdout {
		t.Errorf("debug file should be stdout")
	}
}

func TestLoadConfig_DryRun(t *testing.T) {
	c := NewConfig()
	c.Flag.DryRun = true
	if err := c.LoadConfig(); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if c.Mux.Backend != BackendMemory {
		t.Errorf("backend = %q, want memory", c.Mux.Backend)
	}
	s := c.Controller.Simulate
	if s == nil || s.CC1Level != usbmux.Level3A || s.CC2Level != usbmux.LevelUndetermined {
		t.Errorf("simulate = %+v", s)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"mode", "mode: usb4\n", usbmux.ErrInvalidMode},
		{"level", "controller:\n  simulate:\n    cc1: 5A\n    cc2: 3A\n", usbmux.ErrInvalidLevel},
		{"mpn", "controller:\n  mpn: FUSB303\n", nil},
		{"backend", "mux:\n  backend: spi\n", nil},
		{"periph pin", "mux:\n  backend: periph\n", nil},
		{"negative", "detect:\n  maxpolls: -1\n", nil},
		{"yaml", "mode: [\n", nil},
		{"log level", "debug:\n  flag: verbose\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConfig()
			c.Flag.ConfigFile = writeConfig(t, tt.content)
			err := c.LoadConfig()
			if err == nil {
				t.Fatal("LoadConfig should fail")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_LogLevel(t *testing.T) {
	tests := []struct {
		flag    string
		want    int
		wantErr bool
	}{
		{"standard", debug.Standard, false},
		{"trace", debug.Full, false},
		{"full", debug.Full, false},
		{"debug", debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug, false},
		{"verbose", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			c := NewConfig()
			c.Debug.FlagString = tt.flag
			err := c.LoadConfig()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("LoadConfig with log level %q should fail", tt.flag)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			if c.Debug.Flag != tt.want {
				t.Errorf("Flag = %d, want %d", c.Debug.Flag, tt.want)
			}
		})
	}
}
