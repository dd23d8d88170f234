// Package display drives the ST7789 SPI TFT panel attached to the board.
package display

import (
	"image"
	"image/color"
)

// Rotation defines the logical orientation of the panel, chosen once at
// initialization time.
type Rotation uint8

// Supported rotations.
const (
	NoRotation Rotation = iota
	Rotate90            // Rotate 90° clock wise
	Rotate180           // Rotate 180°
	Rotate270           // Rotate 270° clock wise
)

func (r Rotation) String() string {
	switch r % 4 {
	case Rotate90:
		return "90°"
	case Rotate180:
		return "180°"
	case Rotate270:
		return "270°"
	default:
		return "0°"
	}
}

// Display is a pixel-addressable panel.
type Display interface {
	// Close turns the panel off and closes the connection.
	Close() error

	// Clear the internal frame buffer.
	Clear()

	// At returns the color of the frame buffer pixel at (x, y).
	At(x, y int) color.Color

	// Set the frame buffer pixel color at (x, y).
	Set(x, y int, c color.Color)

	// Bounds is the display bounding box (dimensions).
	Bounds() image.Rectangle

	// ColorModel used by the display.
	ColorModel() color.Model

	// Show toggles the display on or off.
	Show(bool) error

	// SetRotation adjusts the pixel rotation.
	SetRotation(Rotation) error

	// Refresh redraws the display from the internal frame buffer.
	Refresh() error

	// DrawRGB displays one full-screen frame of packed 24-bit RGB pixels.
	DrawRGB(frame []byte) error
}

// Config is the display configuration.
type Config struct {
	// Width of the display in pixels.
	Width int

	// Height of the display in pixels.
	Height int

	// Rotation of the display.
	Rotation Rotation

	// BGR selects blue-green-red channel order on panels wired that way.
	BGR bool

	// Invert enables display color inversion, required by some panels.
	Invert bool
}
