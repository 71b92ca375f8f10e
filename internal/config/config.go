package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"

	"github.com/oxplot/go-usbmux"
	"github.com/oxplot/go-usbmux/tcpcdriver/fusb302"
)

// Mux backends.
const (
	BackendGPIOD  = "gpiod"
	BackendPeriph = "periph"
	BackendMemory = "memory"
)

// logLevels maps the --log and debug.flag values to womat/debug flags.
var logLevels = map[string]int{
	"standard": debug.Standard,
	"debug":    debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug,
	"trace":    debug.Full,
	"full":     debug.Full,
}

// Config defines the struct of global config and the struct of the configuration file
type Config struct {
	Flag       FlagConfig       `yaml:"-"`
	Mode       string           `yaml:"mode"`
	ModeValue  usbmux.Mode      `yaml:"-"`
	Controller ControllerConfig `yaml:"controller"`
	Mux        MuxConfig        `yaml:"mux"`
	Detect     DetectConfig     `yaml:"detect"`
	Report     ReportConfig     `yaml:"report"`
	Debug      DebugConfig      `yaml:"debug"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	ConfigFile string
	// ConfigRequired makes a missing ConfigFile an error, otherwise defaults
	// are used.
	ConfigRequired bool
	Debug          string
	DryRun         bool
}

// ControllerConfig defines the CC sensor. If Simulate is set, no hardware is
// accessed and the given levels are reported instead.
type ControllerConfig struct {
	Bus      string          `yaml:"bus"`
	MPN      string          `yaml:"mpn"`
	MPNValue fusb302.MPN     `yaml:"-"`
	Simulate *SimulateConfig `yaml:"simulate"`
}

// SimulateConfig defines fixed CC levels for a simulated controller.
type SimulateConfig struct {
	CC1      string         `yaml:"cc1"`
	CC2      string         `yaml:"cc2"`
	CC1Level usbmux.CCLevel `yaml:"-"`
	CC2Level usbmux.CCLevel `yaml:"-"`
}

// MuxConfig defines the data mux lines. Select and Enable are line offsets
// for the gpiod backend, SelectPin and EnablePin are pin names for the periph
// backend. A negative Enable or empty EnablePin means OE is hardwired.
type MuxConfig struct {
	Backend          string `yaml:"backend"`
	Chip             string `yaml:"chip"`
	Select           int    `yaml:"select"`
	Enable           int    `yaml:"enable"`
	SelectPin        string `yaml:"selectpin"`
	EnablePin        string `yaml:"enablepin"`
	EnableActiveHigh bool   `yaml:"enableactivehigh"`
	SelectInverted   bool   `yaml:"selectinverted"`
}

// DetectConfig bounds orientation detection. Zero values mean no bound and
// back to back polling.
type DetectConfig struct {
	TimeoutInt  int           `yaml:"timeout"`
	Timeout     time.Duration `yaml:"-"`
	MaxPolls    int           `yaml:"maxpolls"`
	IntervalInt int           `yaml:"interval"`
	Interval    time.Duration `yaml:"-"`
}

// ReportConfig defines the diagnostic text output.
type ReportConfig struct {
	Enabled bool   `yaml:"enabled"`
	Banner  bool   `yaml:"banner"`
	LineSep string `yaml:"linesep"`
}

// DebugConfig defines the struct of the debug configuration and configuration file
type DebugConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
}

func NewConfig() *Config {
	return &Config{
		Mode: "init",
		Controller: ControllerConfig{
			Bus: "1",
			MPN: "FUSB302BMPX",
		},
		Mux: MuxConfig{
			Backend: BackendGPIOD,
			Chip:    "gpiochip0",
			Select:  17,
			Enable:  27,
		},
		Report: ReportConfig{
			Enabled: true,
			LineSep: "\r\n",
		},
		Debug: DebugConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
	}
}

func (c *Config) LoadConfig() error {
	if err := c.readConfigFile(); err != nil {
		return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
	}

	if c.Flag.Debug != "" {
		c.Debug.FlagString = c.Flag.Debug
	}
	if c.Flag.DryRun {
		c.Mux.Backend = BackendMemory
		if c.Controller.Simulate == nil {
			c.Controller.Simulate = &SimulateConfig{CC1: usbmux.Level3A.String(), CC2: usbmux.LevelUndetermined.String()}
		}
	}

	if err := c.validate(); err != nil {
		return err
	}

	if err := c.setDebugConfig(); err != nil {
		return fmt.Errorf("unable to open debug file %q: %w", c.Debug.FileString, err)
	}

	c.Detect.Timeout = time.Duration(c.Detect.TimeoutInt) * time.Millisecond
	c.Detect.Interval = time.Duration(c.Detect.IntervalInt) * time.Microsecond

	return nil
}

func (c *Config) readConfigFile() error {
	if c.Flag.ConfigFile == "" {
		return nil
	}
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !c.Flag.ConfigRequired {
			return nil
		}
		return err
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	if err = decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return nil
}

func (c *Config) validate() (err error) {
	if c.ModeValue, err = usbmux.ParseMode(c.Mode); err != nil {
		return err
	}

	if s := c.Controller.Simulate; s != nil {
		if s.CC1Level, err = usbmux.ParseLevel(s.CC1); err != nil {
			return fmt.Errorf("simulate cc1: %w", err)
		}
		if s.CC2Level, err = usbmux.ParseLevel(s.CC2); err != nil {
			return fmt.Errorf("simulate cc2: %w", err)
		}
	} else {
		var ok bool
		if c.Controller.MPNValue, ok = fusb302.ParseMPN(c.Controller.MPN); !ok {
			return fmt.Errorf("unknown controller part %q", c.Controller.MPN)
		}
	}

	switch c.Mux.Backend {
	case BackendGPIOD, BackendMemory:
	case BackendPeriph:
		if c.Mux.SelectPin == "" {
			return fmt.Errorf("mux backend %q requires selectpin", c.Mux.Backend)
		}
	default:
		return fmt.Errorf("unknown mux backend %q", c.Mux.Backend)
	}

	if c.Detect.TimeoutInt < 0 || c.Detect.MaxPolls < 0 || c.Detect.IntervalInt < 0 {
		return fmt.Errorf("detect bounds must not be negative")
	}

	if _, ok := logLevels[c.Debug.FlagString]; !ok {
		return fmt.Errorf("unknown log level %q (standard|debug|trace)", c.Debug.FlagString)
	}

	return nil
}

// setDebugConfig resolves the log level and opens the log destination. The
// level has already been checked by validate.
func (c *Config) setDebugConfig() error {
	c.Debug.Flag = logLevels[c.Debug.FlagString]

	switch c.Debug.FileString {
	case "stderr":
		c.Debug.File = os.Stderr
		return nil
	case "stdout":
		c.Debug.File = os.Stdout
		return nil
	}

	f, err := os.OpenFile(c.Debug.FileString, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	c.Debug.File = f
	return nil
}
