package emu

// pioPairs maps a 12-bit colour to the two symbol words of a doubled
// pixel.
var pioPairs = func() (t [4096][2]uint32) {
	for c := range t {
		r, g, b := expand444(uint16(c))
		for k := 0; k < 2; k++ {
			t[c][k] = packLanes(tmdsPairs[b][k], tmdsPairs[g][k], tmdsPairs[r][k])
		}
	}
	return t
}()

// PIOBackend drives a PIO serializer that shifts out pre-encoded symbols.
// Every line is one transfer of HTotal symbol words; active pixels are
// 12-bit colours encoded as DC-balanced symbol pairs, so each
// framebuffer pixel covers two pixel clocks. Audio leaves through the
// auxiliary insertion path once per line.
type PIOBackend struct {
	serial *PIOSerializer

	vsyncOff []uint32
	vsyncOn  []uint32
	line     [2][]uint32
	hblank   int

	idx []byte
	rgb []uint16

	mode ScreenMode

	ring    *RingBuffer[StereoFrame]
	mixer   *StereoMixer
	drain   *Drain[StereoFrame]
	audio   AudioSink
	sampler lineSampler
	pending []StereoFrame
}

// NewPIOBackend creates the PIO back-end.
func NewPIOBackend(out SymbolSink, audio AudioSink) *PIOBackend {
	m := Mode640x480p60
	ring := NewRingBuffer[StereoFrame](DefaultRingSize)
	b := &PIOBackend{
		serial:   NewPIOSerializer(out),
		vsyncOff: controlLine(m, true),
		vsyncOn:  controlLine(m, false),
		hblank:   m.HBlank(),
		idx:      make([]byte, ScreenWidth),
		rgb:      make([]uint16, ScreenWidth),
		ring:     ring,
		mixer:    NewStereoMixer(ring),
		drain:    NewDrain(ring),
		audio:    audio,
		sampler:  newLineSampler(AudioSampleRate, m.LineRateHz()),
		pending:  make([]StereoFrame, 0, 4),
	}
	for i := range b.line {
		b.line[i] = controlLine(m, true)
	}
	return b
}

// controlLine pre-encodes a line of control symbols. vHigh false puts the
// line inside the vsync pulse.
func controlLine(m VideoMode, vHigh bool) []uint32 {
	l := make([]uint32, 0, m.HTotal())
	appendRun := func(w uint32, n int) {
		for i := 0; i < n; i++ {
			l = append(l, w)
		}
	}
	appendRun(syncWord(vHigh, true), m.HFrontPorch)
	appendRun(syncWord(vHigh, false), m.HSyncWidth)
	appendRun(syncWord(vHigh, true), m.HBackPorch+m.HActive)
	return l
}

func (b *PIOBackend) Name() string         { return BackendPIO.String() }
func (b *PIOBackend) SplitPhases() bool    { return false }
func (b *PIOBackend) Peripheral() WordSink { return b.serial }
func (b *PIOBackend) Mixer() Mixer         { return b.mixer }

func (b *PIOBackend) SetScreenMode(m ScreenMode) { b.mode = m }
func (b *PIOBackend) ScreenMode() ScreenMode     { return b.mode }

// Descriptor implements Backend. Each channel owns one line buffer, so
// the line being streamed is never the one being encoded.
func (b *PIOBackend) Descriptor(ch int, st Step, fb *Framebuffer) []uint32 {
	switch st.State {
	case StateVSync:
		return b.vsyncOn
	case StateFrontPorch, StateBackPorch:
		return b.vsyncOff
	}

	y, dark := sourceRow(st.ActiveLine, b.mode)
	if fb == nil || dark {
		BlankLine(b.idx)
	} else {
		ScaleLine(b.idx, fb.Row(y), b.mode.Scale())
	}
	EncodeRGB444(b.rgb, b.idx, &Palette444)

	out := b.line[ch][b.hblank:]
	for i, c := range b.rgb {
		p := &pioPairs[c&0xfff]
		out[2*i] = p[0]
		out[2*i+1] = p[1]
	}
	return b.line[ch]
}

// OnLine inserts the audio frames due on this line.
func (b *PIOBackend) OnLine(st Step) {
	n := b.sampler.Advance()
	if n == 0 {
		return
	}
	b.pending = b.pending[:n]
	b.drain.Fill(b.pending)
	b.audio.WriteAudio(b.pending)
}

// Reset implements Backend.
func (b *PIOBackend) Reset() {
	b.drain.Reset()
	b.sampler.Reset()
}

// PIOSerializer models the state machine program: it shifts each symbol
// word out as one pixel clock without interpretation.
type PIOSerializer struct {
	out   SymbolSink
	words uint64
}

// NewPIOSerializer creates a serializer writing to out.
func NewPIOSerializer(out SymbolSink) *PIOSerializer {
	return &PIOSerializer{out: out}
}

// WriteWords implements WordSink.
func (s *PIOSerializer) WriteWords(words []uint32) {
	s.words += uint64(len(words))
	s.out.WriteSymbols(words)
}

// Words returns the number of symbol words shifted out.
func (s *PIOSerializer) Words() uint64 {
	return s.words
}
