package pixel

// EncodeRGB24 converts a packed 24-bit RGB buffer (3 bytes per pixel,
// row-major) into 16-bit 5-6-5 wire pixels, most significant byte first.
//
// dst must hold 2 bytes for every 3 bytes of src; src must be a whole number
// of pixels. Both are programmer errors and panic.
func EncodeRGB24(dst, src []byte) {
	if len(src)%3 != 0 {
		panic("pixel: RGB24 buffer is not a whole number of pixels")
	}
	if len(dst) < len(src)/3*2 {
		panic("pixel: RGB565 buffer too small")
	}
	for i, j := 0, 0; i < len(src); i, j = i+3, j+2 {
		v := RGB565(src[i], src[i+1], src[i+2])
		dst[j] = byte(v >> 8)
		dst[j+1] = byte(v)
	}
}
