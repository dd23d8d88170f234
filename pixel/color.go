package pixel

import "image/color"

// CRGB16Model is the color model for 16-bit 5-6-5 RGB colors.
var CRGB16Model color.Model = color.ModelFunc(crgb16Model)

// RGB565 packs 8-bit red, green and blue channels into a 16-bit 5-6-5 value.
//
// The conversion is lossy and keeps only the top 5 bits of red and blue and
// the top 6 bits of green. It is a pure function of its inputs.
func RGB565(r, g, b uint8) uint16 {
	return uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(b&0xF8)>>3
}

// CRGB16 represents a 16-bit 5-6-5 RGB color.
type CRGB16 struct {
	// CRed, 5, CGreen, 6, CBlue, 5
	V uint16
}

func (c CRGB16) RGBA() (r, g, b, a uint32) {
	// Build a 5- or 6-bit value at the top of the low byte of each component.
	red := (c.V & 0xF800) >> 8
	grn := (c.V & 0x07E0) >> 3
	blu := (c.V & 0x001F) << 3
	// Duplicate the high bits in the low bits.
	red |= red >> 5
	grn |= grn >> 6
	blu |= blu >> 5
	// Duplicate the whole value in the high byte.
	red |= red << 8
	grn |= grn << 8
	blu |= blu << 8
	return uint32(red), uint32(grn), uint32(blu), 0xffff
}

func crgb16Model(c color.Color) color.Color {
	if c, ok := c.(CRGB16); ok {
		return c
	}
	r, g, b, _ := c.RGBA()
	return CRGB16{RGB565(uint8(r>>8), uint8(g>>8), uint8(b>>8))}
}
