package emu

// AudioSink receives the audio the console would play.
type AudioSink interface {
	WriteAudio(frames []StereoFrame)
}

type discardAudio struct{}

func (discardAudio) WriteAudio([]StereoFrame) {}

// SPIBus is a 16-bit SPI transmitter.
type SPIBus interface {
	Write16(w uint16)
}

// MCP4822 command words: bit 15 selects channel B, bit 13 selects 1x gain,
// bit 12 enables the output. The low 12 bits are the sample.
const (
	dacConfigA  = 0x3000
	dacConfigB  = 0xB000
	dacChannelB = 0x8000
	dacDataMask = 0x0FFF
)

// DAC is the periodic consumer of the mono ring. Each tick sends the next
// sample to both outputs of an MCP4822.
type DAC struct {
	drain *Drain[uint16]
	bus   SPIBus

	ticks     uint64
	underruns uint64
}

// NewDAC creates a DAC reading ring and writing bus.
func NewDAC(ring *RingBuffer[uint16], bus SPIBus) *DAC {
	return &DAC{drain: NewDrain(ring), bus: bus}
}

// Tick outputs one sample.
func (d *DAC) Tick() {
	s, ok := d.drain.Next()
	if !ok {
		d.underruns++
	}
	d.ticks++
	s &= dacDataMask
	d.bus.Write16(dacConfigA | s)
	d.bus.Write16(dacConfigB | s)
}

// Reset forgets the held sample and the counters.
func (d *DAC) Reset() {
	d.drain.Reset()
	d.ticks = 0
	d.underruns = 0
}

// Underruns returns the ticks that found the ring empty.
func (d *DAC) Underruns() uint64 {
	return d.underruns
}

// SPICapture stands in for the DAC chip: it decodes command words back
// into signed stereo samples, channel A left and channel B right.
type SPICapture struct {
	sink  AudioSink
	left  int16
	haveA bool
	frame [1]StereoFrame
	words uint64
}

// NewSPICapture creates a capture forwarding to sink.
func NewSPICapture(sink AudioSink) *SPICapture {
	return &SPICapture{sink: sink}
}

// Write16 implements SPIBus.
func (c *SPICapture) Write16(w uint16) {
	c.words++
	v := dacToPCM(w & dacDataMask)
	if w&dacChannelB == 0 {
		c.left = v
		c.haveA = true
		return
	}
	if !c.haveA {
		c.left = v
	}
	c.haveA = false
	c.frame[0] = StereoFrame{L: c.left, R: v}
	c.sink.WriteAudio(c.frame[:])
}

// Words returns the number of SPI words received.
func (c *SPICapture) Words() uint64 {
	return c.words
}

// dacToPCM centres a 12-bit DAC code on zero and scales it to 16 bits.
func dacToPCM(v uint16) int16 {
	return int16((int32(v) - 2048) << 4)
}
