package emu

// PaletteSize is the number of NES colour indices.
const PaletteSize = 64

// blackIndex is the NES palette entry used for margins and unset pixels.
const blackIndex = 0x0F

// nesPalette555 is the NES master palette as 15-bit 0RRRRRGGGGGBBBBB.
var nesPalette555 = [PaletteSize]uint16{
	0x39ce, 0x1071, 0x0015, 0x2013, 0x440e, 0x5402, 0x5000, 0x3c20,
	0x20a0, 0x0100, 0x0140, 0x00e2, 0x0ceb, 0x0000, 0x0000, 0x0000,
	0x5ef7, 0x01dd, 0x10fd, 0x401e, 0x5c17, 0x700b, 0x6ca0, 0x6521,
	0x45c0, 0x0240, 0x02a0, 0x0247, 0x0211, 0x0000, 0x0000, 0x0000,
	0x7fff, 0x1eff, 0x2e5f, 0x223f, 0x79ff, 0x7dd6, 0x7dcc, 0x7e67,
	0x7ae7, 0x4342, 0x2769, 0x2ff3, 0x03bb, 0x0000, 0x0000, 0x0000,
	0x7fff, 0x579f, 0x635f, 0x6b3f, 0x7f1f, 0x7f1b, 0x7ef6, 0x7f75,
	0x7f94, 0x73f4, 0x57d7, 0x5bf9, 0x4ffe, 0x0000, 0x0000, 0x0000,
}

// Palette332 maps NES indices to RGB332 for the HSTX back-end.
var Palette332 = [PaletteSize]uint8{
	0xb6, 0x27, 0x03, 0x2a, 0x61, 0x80, 0xa0, 0x60, 0x68, 0x50, 0x30, 0x10, 0x2a, 0x00, 0x00, 0x00,
	0xb6, 0x4b, 0x2f, 0x8f, 0xea, 0xa1, 0xe8, 0xc8, 0x90, 0x18, 0x14, 0x34, 0x53, 0x00, 0x00, 0x00,
	0xff, 0x7b, 0x73, 0xb3, 0xcf, 0xca, 0xcd, 0xf5, 0xf8, 0xbc, 0x39, 0x9e, 0x5f, 0xb6, 0x00, 0x00,
	0xff, 0x9b, 0xb7, 0xd7, 0xf7, 0xd2, 0xfa, 0xfe, 0xd9, 0xdd, 0xbd, 0xdf, 0xbf, 0xb6, 0x00, 0x00,
}

// Palette444 maps NES indices to 12-bit 0xRGB for the PIO back-end. It is
// derived from the 15-bit table by keeping the top four bits per channel.
var Palette444 = func() (p [PaletteSize]uint16) {
	for i, c := range nesPalette555 {
		p[i] = rgb555To444(c)
	}
	return p
}()

func rgb555To444(c uint16) uint16 {
	return (c>>1)&15 | ((c>>6)&15)<<4 | ((c>>11)&15)<<8
}

// expand332 returns the lane bytes the HSTX TMDS expander produces for an
// RGB332 pixel: the significant bits land at the top of each byte.
func expand332(p uint8) (r, g, b byte) {
	return p & 0xe0, (p << 3) & 0xe0, (p << 6) & 0xc0
}

// expand444 returns the lane bytes for a 12-bit RGB444 pixel.
func expand444(c uint16) (r, g, b byte) {
	return byte(c>>8) << 4, byte(c>>4) << 4, byte(c) << 4
}
