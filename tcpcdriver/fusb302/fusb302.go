// Package fusb302 implements a CC sensing driver for the FUSB302 type-C port
// controller from ONSemi.
package fusb302

import (
	"errors"
	"time"

	"github.com/oxplot/go-usbmux"
	"github.com/oxplot/go-usbmux/tcpcdriver"
)

// MPN represents the manufacturer part number
type MPN uint8

// I2CAddress returns the I2C address of the FUSB302.
func (m MPN) I2CAddress() uint8 {
	return uint8(m)
}

// Manufacturer part numbers
const (
	FUSB302BUCX   MPN = 0b100010
	FUSB302BMPX   MPN = 0b100010
	FUSB302VMPX   MPN = 0b100010
	FUSB302B01MPX MPN = 0b100011
	FUSB302B10MPX MPN = 0b100100
	FUSB302B11MPX MPN = 0b100101
)

// ParseMPN returns the part number with the given name, e.g. "FUSB302BMPX".
func ParseMPN(s string) (MPN, bool) {
	m, ok := mpnNames[s]
	return m, ok
}

var mpnNames = map[string]MPN{
	"FUSB302BUCX":   FUSB302BUCX,
	"FUSB302BMPX":   FUSB302BMPX,
	"FUSB302VMPX":   FUSB302VMPX,
	"FUSB302B01MPX": FUSB302B01MPX,
	"FUSB302B10MPX": FUSB302B10MPX,
	"FUSB302B11MPX": FUSB302B11MPX,
}

// ErrNoDevice is returned by Init when the device ID register does not hold
// a FUSB302 signature.
var ErrNoDevice = errors.New("fusb302: device not found")

// FUSB302 represents a FUSB302 IC configured as a sink whose CC lines are
// measured on demand.
type FUSB302 struct {
	port tcpcdriver.I2C
	addr uint16

	// Buffer used for tx and rx, defined once here instead to avoid heap
	// allocations in each method used.
	buf [2]byte
}

// Time for the BC_LVL comparators to settle after switching the measured CC
// line.
const measureSettle = 250 * time.Microsecond

// New creates a new controller.
//
// I2C port must have <=1Mhz frequency.
func New(port tcpcdriver.I2C, mpn MPN) *FUSB302 {
	return &FUSB302{
		port: port,
		addr: uint16(mpn.I2CAddress()),
	}
}

func (f *FUSB302) write(r uint8, d byte) error {
	f.buf[0] = r
	f.buf[1] = d
	return f.port.Tx(f.addr, f.buf[:2], nil)
}

func (f *FUSB302) read(r uint8) (byte, error) {
	f.buf[0] = r
	err := f.port.Tx(f.addr, f.buf[:1], f.buf[1:2])
	return f.buf[1], err
}

// DeviceID returns the content of the device ID register.
func (f *FUSB302) DeviceID() (uint8, error) {
	return f.read(regDeviceID)
}

// Init initializes the controller.
func (f *FUSB302) Init() error {

	id, err := f.DeviceID()
	if err != nil {
		return err
	}
	if id&regDeviceIDVersionMask != regDeviceIDVersion {
		return ErrNoDevice
	}

	// Reset the chip and registers to default

	if err := f.write(regReset, regResetSWReset); err != nil {
		return err
	}

	// Turn on all power

	if err := f.write(regPower, regPowerPwrAll); err != nil {
		return err
	}

	// No toggling, we present Rd on both CC lines and measure them ourselves

	if err := f.write(regControl2, 0); err != nil {
		return err
	}
	if err := f.write(regSwitches0, regSwitches0CC1PdEn|regSwitches0CC2PdEn); err != nil {
		return err
	}

	// COMP flags anything above the vRd-3.0 range

	return f.write(regMeasure, regMeasureMDAC2V05)
}

// CCStatus implements usbmux.CCReader interface. Each CC line is measured in
// turn, leaving both pull-downs applied.
func (f *FUSB302) CCStatus() (usbmux.CCStatus, error) {
	var s usbmux.CCStatus
	var err error
	if s.CC1, err = f.measure(regSwitches0MeasCC1); err != nil {
		return s, err
	}
	if s.CC2, err = f.measure(regSwitches0MeasCC2); err != nil {
		return s, err
	}
	return s, nil
}

func (f *FUSB302) measure(meas uint8) (usbmux.CCLevel, error) {
	if err := f.write(regSwitches0, meas|regSwitches0CC1PdEn|regSwitches0CC2PdEn); err != nil {
		return usbmux.LevelUndetermined, err
	}
	time.Sleep(measureSettle)
	status0, err := f.read(regStatus0)
	if err != nil {
		return usbmux.LevelUndetermined, err
	}
	return levelFromStatus0(status0), nil
}

// levelFromStatus0 maps the BC_LVL and COMP bits of STATUS0 onto a CC level.
func levelFromStatus0(status0 uint8) usbmux.CCLevel {
	if status0&regStatus0Comp != 0 {
		return usbmux.LevelAboveRange
	}
	switch status0 & regStatus0BCLvlMask {
	case 1: // 200mV - 660mV
		return usbmux.LevelBelowThreshold
	case 2: // 660mV - 1.23V
		return usbmux.Level1A5
	case 3: // > 1.23V
		return usbmux.Level3A
	default: // < 200mV
		return usbmux.LevelUndetermined
	}
}

const (
	regDeviceID            = 0x01
	regDeviceIDVersionMask = 0x80
	regDeviceIDVersion     = 0x80

	regSwitches0        = 0x02
	regSwitches0MeasCC2 = 1 << 3
	regSwitches0MeasCC1 = 1 << 2
	regSwitches0CC2PdEn = 1 << 1
	regSwitches0CC1PdEn = 1 << 0

	regMeasure         = 0x04
	regMeasureMDAC2V05 = 0x30 // (MDAC+1) * 42mV

	regControl2 = 0x08

	regPower       = 0x0B
	regPowerPwrAll = 0xF

	regReset        = 0x0C
	regResetSWReset = 1 << 0

	regStatus0          = 0x40
	regStatus0Comp      = 1 << 5
	regStatus0BCLvlMask = 0x3
)
