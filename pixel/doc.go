// Package pixel implements the packed color format spoken by SPI pixel panels.
//
// The 16-bit 5-6-5 RGB ("CRGB16") model is compatible with Go's native
// [color.Color] and [image.Image] / [draw.Image] interfaces, and images keep
// their pixels in the exact byte order they are transmitted on the wire.
package pixel
