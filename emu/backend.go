package emu

import (
	"errors"
	"fmt"
	"strings"
)

// SymbolSink receives the serial output, one 30-bit TMDS word (three
// 10-bit lanes) per pixel clock.
type SymbolSink interface {
	WriteSymbols(words []uint32)
}

// discardSymbols drops the serial output.
type discardSymbols struct{}

func (discardSymbols) WriteSymbols([]uint32) {}

// Backend is one way of driving the DVI output: a descriptor format, a
// pixel encoding and an audio path. It is chosen once at construction.
type Backend interface {
	Name() string

	// SplitPhases reports whether an active line is posted as a command
	// list followed by a pixel burst.
	SplitPhases() bool

	// Peripheral is the device the DMA channels stream into.
	Peripheral() WordSink

	// Descriptor returns the words channel ch must transfer for st. fb is
	// the frame being displayed, nil when none is available. The returned
	// slice stays untouched until ch completes again.
	Descriptor(ch int, st Step, fb *Framebuffer) []uint32

	// OnLine runs the per-line audio consumer.
	OnLine(st Step)

	// Mixer is the producer side of the back-end's audio ring.
	Mixer() Mixer

	SetScreenMode(m ScreenMode)
	ScreenMode() ScreenMode

	// Reset clears serializer and audio state before the output starts.
	Reset()
}

// BackendKind selects a Backend implementation.
type BackendKind int

const (
	BackendHSTX BackendKind = iota
	BackendPIO
)

var ErrUnknownBackend = errors.New("unknown video backend")

func (k BackendKind) String() string {
	switch k {
	case BackendHSTX:
		return "hstx"
	case BackendPIO:
		return "pio"
	}
	return "unknown"
}

// ParseBackendKind converts a name such as "hstx" or "pio".
func ParseBackendKind(s string) (BackendKind, error) {
	switch strings.ToLower(s) {
	case "hstx":
		return BackendHSTX, nil
	case "pio", "picodvi":
		return BackendPIO, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBackend, s)
}

// NewBackend creates the back-end named by kind, sending serial output to
// out and audio to audio.
func NewBackend(kind BackendKind, out SymbolSink, audio AudioSink) (Backend, error) {
	if out == nil {
		out = discardSymbols{}
	}
	if audio == nil {
		audio = discardAudio{}
	}
	switch kind {
	case BackendHSTX:
		return NewHSTXBackend(out, audio), nil
	case BackendPIO:
		return NewPIOBackend(out, audio), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownBackend, int(kind))
}

// sourceRow maps an active output line to the framebuffer row it shows
// and whether it is the blanked half of a scanline pair.
func sourceRow(activeLine int, mode ScreenMode) (y int, dark bool) {
	return activeLine >> 1, mode.Scanlines() && activeLine&1 == 1
}
