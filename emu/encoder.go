package emu

// ScaleMode selects the horizontal resampling applied before encoding.
type ScaleMode int

const (
	Scale1x1 ScaleMode = iota // one sample per framebuffer pixel
	Scale8x7                  // 7 source pixels stretched over 8 samples
)

// 8:7 window: 252 source pixels from x=34 fill 288 samples, leaving a
// 16 sample margin on each side of the 320 sample line.
const (
	scale87SrcOffset = 34
	scale87SrcWidth  = 252
	scale87DstOffset = 16
	scale87DstWidth  = 288
)

// ScreenMode combines the scaling mode with the scanline effect. The order
// matches the controller combo, which steps through it modulo 4.
type ScreenMode int

const (
	ScreenScanline8x7 ScreenMode = iota
	ScreenNoScanline8x7
	ScreenScanline1x1
	ScreenNoScanline1x1
	screenModeCount
)

// Scale returns the horizontal scaling mode.
func (m ScreenMode) Scale() ScaleMode {
	switch m {
	case ScreenScanline1x1, ScreenNoScanline1x1:
		return Scale1x1
	}
	return Scale8x7
}

// Scanlines reports whether every second output line is blanked.
func (m ScreenMode) Scanlines() bool {
	return m == ScreenScanline8x7 || m == ScreenScanline1x1
}

// Next returns the following mode, wrapping.
func (m ScreenMode) Next() ScreenMode {
	return (m + 1) & (screenModeCount - 1)
}

// Prev returns the preceding mode, wrapping.
func (m ScreenMode) Prev() ScreenMode {
	return (m - 1) & (screenModeCount - 1)
}

func (m ScreenMode) String() string {
	switch m {
	case ScreenScanline8x7:
		return "scanline-8:7"
	case ScreenNoScanline8x7:
		return "8:7"
	case ScreenScanline1x1:
		return "scanline-1:1"
	case ScreenNoScanline1x1:
		return "1:1"
	}
	return "unknown"
}

// ParseScreenMode converts a String() value back to a ScreenMode.
func ParseScreenMode(s string) (ScreenMode, bool) {
	for m := ScreenMode(0); m < screenModeCount; m++ {
		if m.String() == s {
			return m, true
		}
	}
	return 0, false
}

// ScaleLine resamples one framebuffer row into a ScreenWidth index line.
// dst and src must both hold ScreenWidth entries. Indices are masked to
// the palette range.
func ScaleLine(dst, src []byte, mode ScaleMode) {
	_ = dst[ScreenWidth-1]
	_ = src[ScreenWidth-1]

	if mode == Scale1x1 {
		for i := 0; i < ScreenWidth; i++ {
			dst[i] = src[i] & (PaletteSize - 1)
		}
		return
	}

	for i := 0; i < scale87DstOffset; i++ {
		dst[i] = blackIndex
		dst[ScreenWidth-1-i] = blackIndex
	}
	win := src[scale87SrcOffset : scale87SrcOffset+scale87SrcWidth]
	out := dst[scale87DstOffset : scale87DstOffset+scale87DstWidth]
	for j := range out {
		// 8 outputs consume 7 inputs: 0,0,1,2,3,4,5,6
		out[j] = win[(j>>3)*7+scale87Pattern[j&7]] & (PaletteSize - 1)
	}
}

var scale87Pattern = [8]int{0, 0, 1, 2, 3, 4, 5, 6}

// BlankLine fills an index line with black.
func BlankLine(dst []byte) {
	for i := range dst {
		dst[i] = blackIndex
	}
}

// EncodeRGB332Doubled packs each pixel of line into one 16-bit unit whose
// high and low bytes are the same RGB332 value, so a 320 pixel line
// serialises as 640 pixels.
func EncodeRGB332Doubled(dst []uint16, line []byte, pal *[PaletteSize]uint8) {
	_ = dst[len(line)-1]
	for i, idx := range line {
		c := uint16(pal[idx&(PaletteSize-1)])
		dst[i] = c<<8 | c
	}
}

// EncodeRGB444 expands each pixel of line to its 12-bit palette colour.
func EncodeRGB444(dst []uint16, line []byte, pal *[PaletteSize]uint16) {
	_ = dst[len(line)-1]
	for i, idx := range line {
		dst[i] = pal[idx&(PaletteSize-1)]
	}
}

// packHalfwords stores pairs of 16-bit units as little-endian words.
func packHalfwords(dst []uint32, src []uint16) {
	for i := range dst {
		dst[i] = uint32(src[2*i]) | uint32(src[2*i+1])<<16
	}
}
