package emu

// HSTX command words carry the opcode in bits 15:12 and a count in the
// low 12 bits.
const (
	hstxCmdRaw        = 0x0 << 12
	hstxCmdRawRepeat  = 0x1 << 12
	hstxCmdTMDS       = 0x2 << 12
	hstxCmdTMDSRepeat = 0x3 << 12
	hstxCmdNOP        = 0xf << 12

	hstxOpMask    = 0xf << 12
	hstxCountMask = 0x0fff
)

// hstxFIFODepth is the peripheral's FIFO size in words. A command list
// shorter than this would complete before the previous interrupt returns.
const hstxFIFODepth = 8

// hstxPixelsPerWord is four RGB332 bytes per FIFO word.
const hstxPixelsPerWord = 4

// hstxLists are the fixed command lists of the command list back-end.
type hstxLists struct {
	vsyncOff []uint32
	vsyncOn  []uint32
	active   []uint32
}

func newHSTXLists(m VideoMode) hstxLists {
	blank := func(v bool) []uint32 {
		return padNOP([]uint32{
			hstxCmdRawRepeat | uint32(m.HFrontPorch),
			syncWord(v, true),
			hstxCmdRawRepeat | uint32(m.HSyncWidth),
			syncWord(v, false),
			hstxCmdRawRepeat | uint32(m.HBackPorch+m.HActive),
			syncWord(v, true),
		})
	}
	return hstxLists{
		// vsync is active low: the pulse lines drive it to 0.
		vsyncOff: blank(true),
		vsyncOn:  blank(false),
		active: padNOP([]uint32{
			hstxCmdRawRepeat | uint32(m.HFrontPorch),
			syncV1H1,
			hstxCmdNOP,
			hstxCmdRawRepeat | uint32(m.HSyncWidth),
			syncV1H0,
			hstxCmdNOP,
			hstxCmdRawRepeat | uint32(m.HBackPorch),
			syncV1H1,
			hstxCmdTMDS | uint32(m.HActive),
		}),
	}
}

// padNOP appends NOP commands until l fills the FIFO.
func padNOP(l []uint32) []uint32 {
	for len(l) < hstxFIFODepth {
		l = append(l, hstxCmdNOP)
	}
	return l
}

// HSTXBackend drives the dedicated serial peripheral from command lists.
// Active lines take two transfers (header list, then 160 words of pixel
// doubled RGB332), each framebuffer row is shown on two lines, and audio
// goes to an SPI DAC ticked from the line rate.
type HSTXBackend struct {
	lists  hstxLists
	serial *HSTXSerializer

	idx  []byte
	half []uint16
	pix  [2][]uint32

	mode ScreenMode

	ring    *RingBuffer[uint16]
	mixer   *MonoMixer
	dac     *DAC
	sampler lineSampler
}

// NewHSTXBackend creates the command list back-end.
func NewHSTXBackend(out SymbolSink, audio AudioSink) *HSTXBackend {
	m := Mode640x480p60
	ring := NewRingBuffer[uint16](DefaultRingSize)
	words := m.HActive / hstxPixelsPerWord
	return &HSTXBackend{
		lists:   newHSTXLists(m),
		serial:  NewHSTXSerializer(out),
		idx:     make([]byte, ScreenWidth),
		half:    make([]uint16, ScreenWidth),
		pix:     [2][]uint32{make([]uint32, words), make([]uint32, words)},
		ring:    ring,
		mixer:   NewMonoMixer(ring),
		dac:     NewDAC(ring, NewSPICapture(audio)),
		sampler: newLineSampler(AudioSampleRate, m.LineRateHz()),
	}
}

func (b *HSTXBackend) Name() string         { return BackendHSTX.String() }
func (b *HSTXBackend) SplitPhases() bool    { return true }
func (b *HSTXBackend) Peripheral() WordSink { return b.serial }
func (b *HSTXBackend) Mixer() Mixer         { return b.mixer }

func (b *HSTXBackend) SetScreenMode(m ScreenMode) { b.mode = m }
func (b *HSTXBackend) ScreenMode() ScreenMode     { return b.mode }

// Descriptor implements Backend.
func (b *HSTXBackend) Descriptor(ch int, st Step, fb *Framebuffer) []uint32 {
	switch st.State {
	case StateVSync:
		return b.lists.vsyncOn
	case StateFrontPorch, StateBackPorch:
		return b.lists.vsyncOff
	case StateActiveCommand:
		return b.lists.active
	}

	y, dark := sourceRow(st.ActiveLine, b.mode)
	if fb == nil || dark {
		BlankLine(b.idx)
	} else {
		ScaleLine(b.idx, fb.Row(y), b.mode.Scale())
	}
	EncodeRGB332Doubled(b.half, b.idx, &Palette332)
	packHalfwords(b.pix[ch], b.half)
	return b.pix[ch]
}

// OnLine ticks the DAC at the audio rate.
func (b *HSTXBackend) OnLine(st Step) {
	for n := b.sampler.Advance(); n > 0; n-- {
		b.dac.Tick()
	}
}

// Reset implements Backend.
func (b *HSTXBackend) Reset() {
	b.serial.Reset()
	b.dac.Reset()
	b.sampler.Reset()
}

// DAC returns the audio consumer.
func (b *HSTXBackend) DAC() *DAC {
	return b.dac
}

// HSTXSerializer models the peripheral: it executes the command stream
// and emits one symbol word per pixel clock. TMDS pixels go through the
// RGB332 lane expander and a stateful encoder per lane.
type HSTXSerializer struct {
	out SymbolSink
	enc [3]TMDSEncoder
	buf []uint32

	// Command being executed across WriteWords calls.
	op     uint32
	count  int
	expect int // words the command still consumes

	invalid int
}

// NewHSTXSerializer creates a serializer writing to out.
func NewHSTXSerializer(out SymbolSink) *HSTXSerializer {
	return &HSTXSerializer{out: out, buf: make([]uint32, 0, Mode640x480p60.HTotal())}
}

// Reset drops any partial command and the encoder state.
func (s *HSTXSerializer) Reset() {
	s.expect = 0
	s.buf = s.buf[:0]
	for i := range s.enc {
		s.enc[i].Reset()
	}
}

// Invalid returns the number of unknown opcodes seen.
func (s *HSTXSerializer) Invalid() int {
	return s.invalid
}

// WriteWords implements WordSink.
func (s *HSTXSerializer) WriteWords(words []uint32) {
	for _, w := range words {
		if s.expect == 0 {
			s.command(w)
			continue
		}
		s.data(w)
	}
	if len(s.buf) > 0 {
		s.out.WriteSymbols(s.buf)
		s.buf = s.buf[:0]
	}
}

func (s *HSTXSerializer) command(w uint32) {
	s.op = w & hstxOpMask
	s.count = int(w & hstxCountMask)
	switch s.op {
	case hstxCmdRaw:
		s.expect = s.count
	case hstxCmdRawRepeat, hstxCmdTMDSRepeat:
		s.expect = 1
	case hstxCmdTMDS:
		s.expect = (s.count + hstxPixelsPerWord - 1) / hstxPixelsPerWord
	case hstxCmdNOP:
	default:
		s.invalid++
	}
}

func (s *HSTXSerializer) data(w uint32) {
	s.expect--
	switch s.op {
	case hstxCmdRaw:
		s.raw(w, 1)
	case hstxCmdRawRepeat:
		s.raw(w, s.count)
	case hstxCmdTMDSRepeat:
		for i := 0; i < s.count; i++ {
			s.pixel(uint8(w))
		}
	case hstxCmdTMDS:
		n := min(hstxPixelsPerWord, s.count)
		for i := 0; i < n; i++ {
			s.pixel(uint8(w >> (8 * i)))
		}
		s.count -= n
	}
}

func (s *HSTXSerializer) raw(w uint32, n int) {
	// Control periods reset the running disparity.
	for i := range s.enc {
		s.enc[i].Reset()
	}
	w &= 1<<(3*laneBits) - 1
	for i := 0; i < n; i++ {
		s.buf = append(s.buf, w)
	}
}

func (s *HSTXSerializer) pixel(p uint8) {
	r, g, b := expand332(p)
	s.buf = append(s.buf, packLanes(s.enc[0].Encode(b), s.enc[1].Encode(g), s.enc[2].Encode(r)))
}
