package emu

// AudioSampleRate is the output sample rate of both audio paths.
const AudioSampleRate = 44100

// NES APU channel order in the engine's wave buffers.
const (
	chPulse1 = iota
	chPulse2
	chTriangle
	chNoise
	chDMC
	numChannels
)

// Channel weights. Pulse channels are panned by swapping their weights
// between left and right.
const (
	weightPulseNear = 6
	weightPulseFar  = 3
	weightTriangle  = 5
	weightNoise     = 3 * 17
	weightDMC       = 2 * 32
)

// monoMax is the full scale of the 12-bit DAC.
const monoMax = 4095

// StereoFrame is one 16-bit stereo sample.
type StereoFrame struct {
	L, R int16
}

// MixStereo mixes one sample of the five channels.
func MixStereo(w [numChannels]byte) StereoFrame {
	common := weightTriangle*int32(w[chTriangle]) +
		weightNoise*int32(w[chNoise]) +
		weightDMC*int32(w[chDMC])
	l := common + weightPulseNear*int32(w[chPulse1]) + weightPulseFar*int32(w[chPulse2])
	r := common + weightPulseFar*int32(w[chPulse1]) + weightPulseNear*int32(w[chPulse2])
	return StereoFrame{
		L: int16(clampInt32(l, -32768, 32767)),
		R: int16(clampInt32(r, -32768, 32767)),
	}
}

// MixMono mixes one sample into the 12-bit DAC range.
func MixMono(w [numChannels]byte) uint16 {
	v := weightPulseNear*int32(w[chPulse1]) +
		weightPulseFar*int32(w[chPulse2]) +
		weightTriangle*int32(w[chTriangle]) +
		weightNoise*int32(w[chNoise]) +
		weightDMC*int32(w[chDMC])
	return uint16(clampInt32(v, 0, monoMax))
}

// Mixer is the producer side of an audio path.
type Mixer interface {
	// Enqueue mixes n samples from the channel buffers. Samples that do
	// not fit are dropped; the number queued is returned.
	Enqueue(n int, waves [numChannels][]byte) int

	// WriteCapacity returns how many samples Enqueue can accept now.
	WriteCapacity() int
}

// StereoMixer queues 16-bit stereo frames.
type StereoMixer struct {
	ring *RingBuffer[StereoFrame]
}

// NewStereoMixer creates a mixer over ring.
func NewStereoMixer(ring *RingBuffer[StereoFrame]) *StereoMixer {
	return &StereoMixer{ring: ring}
}

// Enqueue implements Mixer.
func (m *StereoMixer) Enqueue(n int, waves [numChannels][]byte) int {
	n = min(n, m.ring.Free(), shortest(waves))
	for i := 0; i < n; i++ {
		m.ring.Push(MixStereo(column(waves, i)))
	}
	return n
}

// WriteCapacity implements Mixer.
func (m *StereoMixer) WriteCapacity() int {
	return m.ring.Free()
}

// MonoMixer queues 12-bit DAC samples.
type MonoMixer struct {
	ring *RingBuffer[uint16]
}

// NewMonoMixer creates a mixer over ring.
func NewMonoMixer(ring *RingBuffer[uint16]) *MonoMixer {
	return &MonoMixer{ring: ring}
}

// Enqueue implements Mixer.
func (m *MonoMixer) Enqueue(n int, waves [numChannels][]byte) int {
	n = min(n, m.ring.Free(), shortest(waves))
	for i := 0; i < n; i++ {
		m.ring.Push(MixMono(column(waves, i)))
	}
	return n
}

// WriteCapacity implements Mixer.
func (m *MonoMixer) WriteCapacity() int {
	return m.ring.Free()
}

func column(waves [numChannels][]byte, i int) (w [numChannels]byte) {
	for c := range waves {
		w[c] = waves[c][i]
	}
	return w
}

func shortest(waves [numChannels][]byte) int {
	n := len(waves[0])
	for _, w := range waves[1:] {
		n = min(n, len(w))
	}
	return n
}

// clampInt32 clamps v to [min, max].
func clampInt32(v, min, max int32) int32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// lineSampler spreads a sample rate over video lines with a fractional
// accumulator: Advance returns how many samples are due on this line.
type lineSampler struct {
	rate   int
	lineHz int
	acc    int
}

func newLineSampler(rate int, lineHz float64) lineSampler {
	return lineSampler{rate: rate, lineHz: int(lineHz)}
}

func (s *lineSampler) Advance() int {
	s.acc += s.rate
	n := s.acc / s.lineHz
	s.acc -= n * s.lineHz
	return n
}

func (s *lineSampler) Reset() {
	s.acc = 0
}
