// Package ebiten draws the console's DVI output with Ebiten.
package ebiten

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/user-none/dvines/emu"
)

// Display scales decoded 640x480 frames into an Ebiten window.
type Display struct {
	offscreen *ebiten.Image           // Offscreen buffer for native resolution rendering
	drawOpts  ebiten.DrawImageOptions // Pre-allocated draw options to avoid per-frame allocation
}

// NewDisplay creates a display for the console output.
func NewDisplay() *Display {
	return &Display{}
}

// Close releases the offscreen image.
func (d *Display) Close() {
	if d.offscreen != nil {
		d.offscreen.Deallocate()
		d.offscreen = nil
	}
}

// Layout implements ebiten.Game.
func (d *Display) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// DrawFramebuffer renders RGBA pixel data to the screen, preserving the
// 4:3 shape of the DVI raster.
func (d *Display) DrawFramebuffer(screen *ebiten.Image, pixels []byte, stride, activeHeight int) {
	if activeHeight == 0 || stride == 0 {
		return
	}

	requiredLen := stride * activeHeight
	if len(pixels) < requiredLen {
		return
	}
	width := stride / 4

	// Create or resize offscreen buffer if needed
	if d.offscreen == nil || d.offscreen.Bounds().Dx() != width || d.offscreen.Bounds().Dy() != activeHeight {
		d.offscreen = ebiten.NewImage(width, activeHeight)
	}

	d.offscreen.WritePixels(pixels[:requiredLen])

	// Calculate scaling to fit window while preserving aspect ratio
	screenW, screenH := screen.Bounds().Dx(), screen.Bounds().Dy()
	nativeW := float64(width)
	nativeH := float64(activeHeight)

	scale := min(float64(screenW)/nativeW, float64(screenH)/nativeH)

	scaledW := nativeW * scale
	scaledH := nativeH * scale
	offsetX := (float64(screenW) - scaledW) / 2
	offsetY := (float64(screenH) - scaledH) / 2

	d.drawOpts = ebiten.DrawImageOptions{}
	d.drawOpts.GeoM.Scale(scale, scale)
	d.drawOpts.GeoM.Translate(offsetX, offsetY)
	d.drawOpts.Filter = ebiten.FilterNearest
	screen.DrawImage(d.offscreen, &d.drawOpts)
}

// WindowSize returns a window size showing the output at scale.
func WindowSize(scale int) (int, int) {
	return emu.Mode640x480p60.HActive * scale, emu.Mode640x480p60.VActive * scale
}
