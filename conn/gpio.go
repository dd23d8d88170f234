package conn

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// GPIO line errors.
var (
	ErrDCPin    = errors.New("conn: data/command (DC) GPIO pin is invalid")
	ErrResetPin = errors.New("conn: reset GPIO pin is invalid")
)

// Lines owns the two output lines of the panel: the data/command (mode
// select) line and the reset line.
type Lines struct {
	dc       gpio.PinOut
	rst      gpio.PinOut
	released bool
}

// NewLines takes ownership of the DC and reset output pins and drives them to
// their idle levels: DC low (command mode) and reset high (not in reset).
func NewLines(dc, rst gpio.PinOut) (*Lines, error) {
	if dc == nil || dc == gpio.INVALID {
		return nil, ErrDCPin
	}
	if rst == nil || rst == gpio.INVALID {
		return nil, ErrResetPin
	}

	l := &Lines{dc: dc, rst: rst}
	if err := l.SetDC(gpio.Low); err != nil {
		return nil, err
	}
	if err := l.SetReset(gpio.High); err != nil {
		return nil, err
	}
	return l, nil
}

// SetDC drives the data/command line: low selects command bytes, high selects
// data bytes.
func (l *Lines) SetDC(level gpio.Level) error {
	if err := l.dc.Out(level); err != nil {
		return fmt.Errorf("conn: set DC %s: %w", level, err)
	}
	return nil
}

// SetReset drives the reset line; low holds the panel in reset.
func (l *Lines) SetReset(level gpio.Level) error {
	if err := l.rst.Out(level); err != nil {
		return fmt.Errorf("conn: set reset %s: %w", level, err)
	}
	return nil
}

// Release returns both lines to the system. Calling Release more than once is
// a no-op.
func (l *Lines) Release() error {
	if l.released {
		return nil
	}
	l.released = true

	dcErr := l.dc.Halt()
	if err := l.rst.Halt(); err != nil {
		return fmt.Errorf("conn: release reset line: %w", err)
	}
	if dcErr != nil {
		return fmt.Errorf("conn: release DC line: %w", dcErr)
	}
	return nil
}
