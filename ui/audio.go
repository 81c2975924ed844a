package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/user-none/dvines/emu"
)

// ringBufferCapacity is ~185ms at 44.1kHz stereo 16-bit (~32KB).
const ringBufferCapacity = 32768

// AudioPlayer plays the console's audio output through oto. The console
// writes stereo frames as it outputs them and oto pulls from a ring.
type AudioPlayer struct {
	player     *oto.Player
	ringBuffer *AudioRingBuffer

	mu         sync.Mutex
	audioBytes []byte // Pre-allocated buffer for frame-to-byte conversion
}

var _ emu.AudioSink = (*AudioPlayer)(nil)

// oto context singleton
var (
	otoCtx      *oto.Context
	otoInitOnce sync.Once
	otoInitErr  error
)

// ensureOtoContext initializes the oto audio context on first use.
func ensureOtoContext() (*oto.Context, error) {
	otoInitOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   emu.AudioSampleRate,
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   50 * time.Millisecond,
		}
		var readyChan chan struct{}
		otoCtx, readyChan, otoInitErr = oto.NewContext(op)
		if otoInitErr != nil {
			return
		}
		<-readyChan
	})
	return otoCtx, otoInitErr
}

// NewAudioPlayer creates and initializes audio playback via oto.
func NewAudioPlayer(volume float64) (*AudioPlayer, error) {
	ctx, err := ensureOtoContext()
	if err != nil {
		return nil, fmt.Errorf("oto audio not available: %w", err)
	}

	rb := NewAudioRingBuffer(ringBufferCapacity)
	player := ctx.NewPlayer(rb)
	player.SetBufferSize(8820)
	player.SetVolume(volume)
	player.Play()

	return &AudioPlayer{
		player:     player,
		ringBuffer: rb,
		audioBytes: make([]byte, 0, 4096),
	}, nil
}

// WriteAudio implements emu.AudioSink.
func (a *AudioPlayer) WriteAudio(frames []emu.StereoFrame) {
	if len(frames) == 0 {
		return
	}
	a.mu.Lock()
	a.audioBytes = appendFrames(a.audioBytes[:0], frames)
	a.ringBuffer.Write(a.audioBytes)
	a.mu.Unlock()
}

// QueueSamples writes interleaved int16 stereo samples, as returned by
// GetAudioSamples, to the ring.
func (a *AudioPlayer) QueueSamples(samples []int16) {
	if len(samples) == 0 {
		return
	}
	a.mu.Lock()
	a.audioBytes = a.audioBytes[:0]
	for _, s := range samples {
		a.audioBytes = append(a.audioBytes, byte(s), byte(s>>8))
	}
	a.ringBuffer.Write(a.audioBytes)
	a.mu.Unlock()
}

// appendFrames appends frames to dst as little-endian L/R pairs.
func appendFrames(dst []byte, frames []emu.StereoFrame) []byte {
	for _, f := range frames {
		dst = append(dst, byte(f.L), byte(f.L>>8), byte(f.R), byte(f.R>>8))
	}
	return dst
}

// GetBufferLevel returns the total bytes of audio data currently buffered
// (ring buffer + oto player internal buffer).
func (a *AudioPlayer) GetBufferLevel() int {
	return a.ringBuffer.Buffered() + a.player.BufferedSize()
}

// Underruns returns how many times oto read past the buffered audio.
func (a *AudioPlayer) Underruns() uint64 {
	return a.ringBuffer.Underruns()
}

// SetVolume sets the playback volume (0.0 = silent, 1.0 = full).
func (a *AudioPlayer) SetVolume(vol float64) {
	a.player.SetVolume(vol)
}

// Close cleans up audio resources.
func (a *AudioPlayer) Close() {
	if a.ringBuffer != nil {
		a.ringBuffer.Close()
	}
	if a.player != nil {
		a.player.Close()
	}
}
