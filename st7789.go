package display

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/c0m4r/radxa-rock5c-lite/pixel"
)

const (
	st7789DefaultWidth  = 320
	st7789DefaultHeight = 240
)

// Registers (from st7789.pdf).
const (
	st7789NOP     = 0x00
	st7789SWRESET = 0x01 // Software Reset
	st7789RDDID   = 0x04
	st7789RDDST   = 0x09
	st7789SLPIN   = 0x10
	st7789SLPOUT  = 0x11 // Sleep Out
	st7789PTLON   = 0x12
	st7789NORON   = 0x13 // Normal Display Mode On
	st7789INVOFF  = 0x20
	st7789INVON   = 0x21 // Display Inversion On
	st7789GAMSET  = 0x26
	st7789DISPOFF = 0x28 // Display Off
	st7789DISPON  = 0x29 // Display On
	st7789CASET   = 0x2A // Column Address Set
	st7789RASET   = 0x2B // Row Address Set
	st7789RAMWR   = 0x2C // Memory Write
	st7789RAMRD   = 0x2E
	st7789PTLAR   = 0x30
	st7789VSCRDEF = 0x33
	st7789TEOFF   = 0x34
	st7789TEON    = 0x35
	st7789MADCTL  = 0x36 // Memory Data Access Control
	st7789IDMOFF  = 0x38
	st7789IDMON   = 0x39
	st7789COLMOD  = 0x3A // Interface Pixel Format
	st7789WRDISBV = 0x51
	st7789RDDISBV = 0x52
)

// Interface Pixel Format value for 16-bit/pixel RGB 5-6-5.
const st7789ColorFormat16 = 0x55

// Memory Data Access Control (MADCTL) bit fields.
const (
	_                           byte = 1 << iota // D0: reserved
	_                                            // D1: reserved
	st7789DisplayDataLatchOrder                  // D2: MH
	st7789RGBOrder                               // D3: RGB
	st7789LineAddressOrder                       // D4: ML
	st7789PageColumnOrder                        // D5: MV
	st7789ColumnAddressOrder                     // D6: MX
	st7789PageAddressOrder                       // D7: MY
)

// Settle delays mandated by the protocol; the panel is not guaranteed ready
// before they elapse.
const (
	st7789ResetHold       = 50 * time.Millisecond
	st7789ResetSettle     = 150 * time.Millisecond
	st7789SWResetSettle   = 150 * time.Millisecond
	st7789SleepOutSettle  = 500 * time.Millisecond
	st7789DisplayOnSettle = 100 * time.Millisecond
)

// driverState tracks the panel protocol state. Transitions only move forward;
// states never repeat within one device lifetime.
type driverState uint8

const (
	stateUninitialized driverState = iota
	stateResetting
	stateInitialized
	stateActive
	stateClosed
)

func (s driverState) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateResetting:
		return "resetting"
	case stateInitialized:
		return "initialized"
	case stateActive:
		return "active"
	default:
		return "closed"
	}
}

type st7789 struct {
	c        Conn
	fb       *pixel.CRGB16Image
	buf      []byte
	width    int
	height   int
	rotation Rotation
	bgr      bool
	invert   bool
	state    driverState
}

// DefaultConfig is the panel as commonly mounted: 320x240 landscape.
var DefaultConfig = Config{
	Width:    st7789DefaultWidth,
	Height:   st7789DefaultHeight,
	Rotation: Rotate90,
}

// ST7789 resets and initializes the panel over the provided connection. The
// returned display is active: the full reset-and-init sequence has completed
// before any other protocol byte can be issued.
func ST7789(c Conn, config *Config) (Display, error) {
	if config == nil {
		config = new(Config)
		*config = DefaultConfig
	}
	if config.Width == 0 || config.Height == 0 {
		// The controller RAM is 240 wide by 320 tall; the default geometry
		// follows the configured rotation.
		if config.Rotation == Rotate90 || config.Rotation == Rotate270 {
			config.Width, config.Height = st7789DefaultWidth, st7789DefaultHeight
		} else {
			config.Width, config.Height = st7789DefaultHeight, st7789DefaultWidth
		}
	}

	if (config.Rotation == NoRotation || config.Rotation == Rotate180) && (config.Width > 240 || config.Height > 320) {
		return nil, fmt.Errorf("st7789: invalid size %dx%d, maximum size is 240x320 at %s rotation", config.Width, config.Height, config.Rotation)
	} else if (config.Rotation == Rotate90 || config.Rotation == Rotate270) && (config.Width > 320 || config.Height > 240) {
		return nil, fmt.Errorf("st7789: invalid size %dx%d, maximum size is 320x240 at %s rotation", config.Width, config.Height, config.Rotation)
	}

	d := &st7789{
		c:        c,
		width:    config.Width,
		height:   config.Height,
		rotation: config.Rotation,
		bgr:      config.BGR,
		invert:   config.Invert,
		fb:       pixel.NewCRGB16Image(config.Width, config.Height),
	}

	if err := d.reset(); err != nil {
		return nil, err
	}
	if err := d.init(); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *st7789) String() string {
	bounds := d.Bounds()
	return fmt.Sprintf("ST7789 %dx%d", bounds.Dx(), bounds.Dy())
}

// reset performs the hardware reset: exactly three level transitions on the
// reset line, with no command or data transfer in between.
func (d *st7789) reset() (err error) {
	d.state = stateResetting

	if err = d.c.Reset(gpio.High); err != nil {
		return
	}
	time.Sleep(st7789ResetHold)
	if err = d.c.Reset(gpio.Low); err != nil {
		return
	}
	time.Sleep(st7789ResetHold)
	if err = d.c.Reset(gpio.High); err != nil {
		return
	}
	// Oscillator settle after leaving reset.
	time.Sleep(st7789ResetSettle)
	return
}

func (d *st7789) command(command byte, data ...byte) error {
	return d.c.Command(command, data...)
}

func (d *st7789) commands(commands [][]byte) (err error) {
	for _, command := range commands {
		if err = d.command(command[0], command[1:]...); err != nil {
			return
		}
	}
	return
}

// init sends the fixed initialization sequence. A failing step aborts the
// sequence and the driver never becomes active.
func (d *st7789) init() (err error) {
	if err = d.command(st7789SWRESET); err != nil {
		return
	}
	time.Sleep(st7789SWResetSettle)

	if err = d.command(st7789SLPOUT); err != nil {
		return
	}
	time.Sleep(st7789SleepOutSettle)

	if err = d.commands([][]byte{
		{st7789COLMOD, st7789ColorFormat16},
		{st7789MADCTL, d.madctl()},
	}); err != nil {
		return
	}
	if d.invert {
		if err = d.command(st7789INVON); err != nil {
			return
		}
	}
	if err = d.command(st7789NORON); err != nil {
		return
	}
	d.state = stateInitialized

	if err = d.command(st7789DISPON); err != nil {
		return
	}
	time.Sleep(st7789DisplayOnSettle)
	d.state = stateActive
	return
}

// madctl encodes the orientation and color-order configuration byte. The
// value is installation-specific: it must match the physical panel wiring.
func (d *st7789) madctl() byte {
	var v byte
	switch d.rotation & 3 {
	case NoRotation:
		v = 0
	case Rotate90:
		v = st7789ColumnAddressOrder | st7789PageColumnOrder
	case Rotate180:
		v = st7789ColumnAddressOrder | st7789PageAddressOrder
	case Rotate270:
		v = st7789PageAddressOrder | st7789PageColumnOrder
	}
	if d.bgr {
		v |= st7789RGBOrder
	}
	return v
}

func (d *st7789) Bounds() image.Rectangle {
	return d.fb.Bounds()
}

func (d *st7789) ColorModel() color.Model {
	return pixel.CRGB16Model
}

func (d *st7789) At(x, y int) color.Color {
	return d.fb.At(x, y)
}

func (d *st7789) Set(x, y int, c color.Color) {
	d.fb.Set(x, y, c)
}

func (d *st7789) Clear() {
	d.fb.Clear()
}

// ready rejects protocol traffic outside the active state.
func (d *st7789) ready() error {
	if d.state != stateActive {
		return fmt.Errorf("st7789: panel is %s", d.state)
	}
	return nil
}

func (d *st7789) Show(show bool) error {
	if err := d.ready(); err != nil {
		return err
	}

	var command = byte(st7789DISPOFF)
	if show {
		command = byte(st7789DISPON)
	}
	return d.command(command)
}

func (d *st7789) SetRotation(rotation Rotation) error {
	if err := d.ready(); err != nil {
		return err
	}

	d.rotation = rotation & 3
	return d.command(st7789MADCTL, d.madctl())
}

func clip(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// SetWindow addresses the rectangle (x0,y0)-(x1,y1) for subsequent pixel
// data. The window is reduced to the panel bounds before it goes on the wire,
// so it is never inverted or outside [0,width-1]×[0,height-1].
func (d *st7789) SetWindow(x0, y0, x1, y1 int) error {
	if err := d.ready(); err != nil {
		return err
	}

	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	x0, x1 = clip(x0, d.width-1), clip(x1, d.width-1)
	y0, y1 = clip(y0, d.height-1), clip(y1, d.height-1)

	return d.commands([][]byte{
		{st7789CASET, byte(x0 >> 8), byte(x0), byte(x1 >> 8), byte(x1)}, // Column address
		{st7789RASET, byte(y0 >> 8), byte(y0), byte(y1 >> 8), byte(y1)}, // Row address
		{st7789RAMWR}, // Write to RAM
	})
}

// DrawRGB converts one full-screen frame of packed 24-bit RGB pixels to the
// 16-bit wire format and streams it as a single data payload. The serial
// transport chunks the transfer internally.
func (d *st7789) DrawRGB(frame []byte) error {
	if err := d.ready(); err != nil {
		return err
	}

	want := d.width * d.height * 3
	if len(frame) != want {
		return fmt.Errorf("st7789: frame is %d bytes, want %d (%dx%d RGB)", len(frame), want, d.width, d.height)
	}

	if d.buf == nil {
		d.buf = make([]byte, d.width*d.height*2)
	}
	pixel.EncodeRGB24(d.buf, frame)

	if err := d.SetWindow(0, 0, d.width-1, d.height-1); err != nil {
		return err
	}
	return d.c.Data(d.buf...)
}

// Refresh sets the window to full screen and redraws from the internal frame
// buffer.
func (d *st7789) Refresh() error {
	if err := d.SetWindow(0, 0, d.width-1, d.height-1); err != nil {
		return err
	}
	return d.c.Data(d.fb.Pix...)
}

// Close turns the display off and closes the connection. The state is
// terminal and Close is safe to call more than once.
func (d *st7789) Close() error {
	if d.state == stateClosed {
		return nil
	}

	showErr := d.Show(false)
	d.state = stateClosed

	closeErr := d.c.Close()
	if showErr != nil {
		return showErr
	}
	return closeErr
}
