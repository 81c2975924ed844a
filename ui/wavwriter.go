package ui

import (
	"fmt"
	"log"
	"sync"

	"github.com/spf13/afero"
	"github.com/user-none/dvines/emu"
	"github.com/youpy/go-wav"
)

// WavWriter captures the console's audio output and writes it as a 16-bit
// stereo WAV file on Close. Audio is buffered in memory in its entirety,
// so it is meant for short test captures.
type WavWriter struct {
	fs       afero.Fs
	filename string

	mu     sync.Mutex
	buffer []wav.Sample
}

var _ emu.AudioSink = (*WavWriter)(nil)

// NewWavWriter creates a capture that will be written to filename on fs.
func NewWavWriter(fs afero.Fs, filename string) *WavWriter {
	return &WavWriter{
		fs:       fs,
		filename: filename,
	}
}

// WriteAudio implements emu.AudioSink.
func (w *WavWriter) WriteAudio(frames []emu.StereoFrame) {
	w.mu.Lock()
	for _, f := range frames {
		var s wav.Sample
		s.Values[0] = int(f.L)
		s.Values[1] = int(f.R)
		w.buffer = append(w.buffer, s)
	}
	w.mu.Unlock()
}

// Frames returns the number of stereo frames captured.
func (w *WavWriter) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buffer)
}

// Close writes the capture to disk.
func (w *WavWriter) Close() (rerr error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.fs.Create(w.filename)
	if err != nil {
		return fmt.Errorf("wavwriter: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("wavwriter: %w", err)
		}
	}()

	enc := wav.NewWriter(f, uint32(len(w.buffer)), 2, emu.AudioSampleRate, 16)
	if enc == nil {
		return fmt.Errorf("wavwriter: bad parameters for wav encoding")
	}

	log.Printf("wavwriter: writing %d frames to %s", len(w.buffer), w.filename)
	if err := enc.WriteSamples(w.buffer); err != nil {
		return fmt.Errorf("wavwriter: %w", err)
	}
	return nil
}
