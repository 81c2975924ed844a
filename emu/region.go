package emu

import emucore "github.com/user-none/eblitui/api"

// Region is an alias for emucore.Region. The output pipeline only drives
// the 60 Hz DVI mode, so the region never changes the raster.
type Region = emucore.Region

const (
	RegionNTSC = emucore.RegionNTSC
	RegionPAL  = emucore.RegionPAL
)

// Framebuffer geometry. The engine draws its 256 pixel line at
// LineOffset inside a ScreenWidth wide row.
const (
	ScreenWidth  = 320
	ScreenHeight = 240
	NESWidth     = 256
	LineOffset   = 32
)

// VideoMode holds the fixed timing of the DVI signal. All values are in
// pixel clocks (horizontal) or lines (vertical).
type VideoMode struct {
	HFrontPorch int
	HSyncWidth  int
	HBackPorch  int
	HActive     int

	VFrontPorch int
	VSyncWidth  int
	VBackPorch  int
	VActive     int

	PixelClockHz int
}

// Mode640x480p60 is the only raster the back-ends produce: 800x525 total,
// negative sync polarity on both axes, 25.2 MHz pixel clock.
var Mode640x480p60 = VideoMode{
	HFrontPorch:  16,
	HSyncWidth:   96,
	HBackPorch:   48,
	HActive:      640,
	VFrontPorch:  10,
	VSyncWidth:   2,
	VBackPorch:   33,
	VActive:      480,
	PixelClockHz: 25200000,
}

// HTotal returns the pixel clocks per line.
func (m VideoMode) HTotal() int {
	return m.HFrontPorch + m.HSyncWidth + m.HBackPorch + m.HActive
}

// HBlank returns the pixel clocks per line outside the active area.
func (m VideoMode) HBlank() int {
	return m.HTotal() - m.HActive
}

// VTotal returns the lines per frame.
func (m VideoMode) VTotal() int {
	return m.VFrontPorch + m.VSyncWidth + m.VBackPorch + m.VActive
}

// VBlank returns the lines per frame before the first active line.
func (m VideoMode) VBlank() int {
	return m.VTotal() - m.VActive
}

// LineRateHz returns the horizontal line frequency.
func (m VideoMode) LineRateHz() float64 {
	return float64(m.PixelClockHz) / float64(m.HTotal())
}

// FrameRateHz returns the vertical refresh frequency.
func (m VideoMode) FrameRateHz() float64 {
	return m.LineRateHz() / float64(m.VTotal())
}

// DefaultRegion returns the default region (NTSC).
func DefaultRegion() Region {
	return RegionNTSC
}
