package display

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/c0m4r/radxa-rock5c-lite/conn"
)

// Conn is the connection interface for communicating with the panel.
type Conn interface {
	String() string

	// Close releases the GPIO lines and closes the serial bus. Safe to call
	// more than once.
	Close() error

	// Reset sets the reset line to the provided level.
	Reset(gpio.Level) error

	// Command sends a command byte with optional payload bytes.
	Command(byte, ...byte) error

	// Data sends data bytes.
	Data(...byte) error
}

// spiBus is the serial transport underneath a Conn.
type spiBus interface {
	fmt.Stringer

	Write([]byte) (int, error)
	Close() error
}

// SPIConfig describes the SPI bus and GPIO line configuration.
type SPIConfig struct {
	// Bus and Device select /dev/spidev<bus>.<device>.
	Bus    int
	Device int

	// SpeedHz is the SPI clock speed.
	SpeedHz uint32

	// DC is the data/command (mode select) output line.
	DC gpio.PinOut

	// Reset is the panel reset output line.
	Reset gpio.PinOut
}

// DefaultSPIConfig are the default configuration values.
var DefaultSPIConfig = SPIConfig{
	Bus:     0,
	Device:  0,
	SpeedHz: 40_000_000,
	DC:      gpioreg.ByName("GPIO24"),
	Reset:   gpioreg.ByName("GPIO25"),
}

// ValidSPISpeeds are common valid SPI bus speeds.
var ValidSPISpeeds = []uint32{
	500_000,
	1_000_000,
	2_000_000,
	4_000_000,
	8_000_000,
	16_000_000,
	20_000_000,
	24_000_000,
	28_000_000,
	32_000_000,
	36_000_000,
	40_000_000,
	48_000_000,
	50_000_000,
	52_000_000,
	80_000_000,
}

type spiConn struct {
	bus    spiBus
	lines  *conn.Lines
	closed bool
}

// OpenSPI opens the serial bus in mode 0 (clock idle low, data sampled on the
// rising edge) and takes ownership of the DC and reset lines.
func OpenSPI(config *SPIConfig) (Conn, error) {
	if config == nil {
		config = new(SPIConfig)
		*config = DefaultSPIConfig
	}
	if config.SpeedHz == 0 {
		config.SpeedHz = DefaultSPIConfig.SpeedHz
	}

	var valid bool
	for _, speed := range ValidSPISpeeds {
		if valid = speed == config.SpeedHz; valid {
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("display: invalid SPI speed %dHz", config.SpeedHz)
	}

	c, err := conn.OpenSPI(config.Bus, config.Device)
	if err != nil {
		return nil, err
	}
	if err = c.SetMode(conn.SPIMode0); err != nil {
		_ = c.Close()
		return nil, err
	}
	if err = c.SetMaxSpeed(int(config.SpeedHz)); err != nil {
		_ = c.Close()
		return nil, err
	}

	lines, err := conn.NewLines(config.DC, config.Reset)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	return &spiConn{bus: c, lines: lines}, nil
}

func (c *spiConn) String() string {
	return fmt.Sprintf("SPI bus %s", c.bus)
}

func (c *spiConn) Reset(level gpio.Level) error {
	return c.lines.SetReset(level)
}

// Command drives the mode-select line low for exactly the command byte and
// high for the payload bytes. The two transfers never interleave.
func (c *spiConn) Command(cmnd byte, data ...byte) (err error) {
	if err = c.lines.SetDC(gpio.Low); err != nil {
		return
	}
	if _, err = c.bus.Write([]byte{cmnd}); err != nil {
		return
	}
	if len(data) > 0 {
		return c.Data(data...)
	}
	return
}

func (c *spiConn) Data(data ...byte) (err error) {
	if len(data) == 0 {
		return
	}
	if err = c.lines.SetDC(gpio.High); err != nil {
		return
	}
	_, err = c.bus.Write(data)
	return
}

// Close releases the GPIO lines, then closes the serial bus. Both steps run
// even if the first fails. Calling Close more than once is a no-op.
func (c *spiConn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	lineErr := c.lines.Release()
	if err := c.bus.Close(); err != nil {
		return err
	}
	return lineErr
}
