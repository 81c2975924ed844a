package emu

import "testing"

type symbolLog struct {
	words []uint32
}

func (l *symbolLog) WriteSymbols(w []uint32) {
	l.words = append(l.words, w...)
}

func TestHSTXLists_FillFIFO(t *testing.T) {
	lists := newHSTXLists(Mode640x480p60)
	for name, l := range map[string][]uint32{
		"vsyncOff": lists.vsyncOff,
		"vsyncOn":  lists.vsyncOn,
		"active":   lists.active,
	} {
		if len(l) < hstxFIFODepth {
			t.Errorf("%s: %d words, want at least %d", name, len(l), hstxFIFODepth)
		}
	}
	last := lists.active[len(lists.active)-1]
	if last != hstxCmdTMDS|640 {
		t.Errorf("active list ends with 0x%04X, want TMDS|640", last)
	}
}

func TestHSTXSerializer_BlankListsAreOneLine(t *testing.T) {
	lists := newHSTXLists(Mode640x480p60)
	for _, l := range [][]uint32{lists.vsyncOff, lists.vsyncOn} {
		var out symbolLog
		s := NewHSTXSerializer(&out)
		s.WriteWords(l)
		if len(out.words) != Mode640x480p60.HTotal() {
			t.Errorf("symbols: got %d, want %d", len(out.words), Mode640x480p60.HTotal())
		}
		if s.Invalid() != 0 {
			t.Errorf("invalid opcodes: %d", s.Invalid())
		}
	}
}

func TestHSTXSerializer_VSyncPolarity(t *testing.T) {
	lists := newHSTXLists(Mode640x480p60)
	var out symbolLog
	NewHSTXSerializer(&out).WriteWords(lists.vsyncOn)
	if out.words[0] != syncV0H1 {
		t.Errorf("front porch: got 0x%08X, want V0H1", out.words[0])
	}
	if out.words[16] != syncV0H0 {
		t.Errorf("hsync: got 0x%08X, want V0H0", out.words[16])
	}
}

func TestHSTXSerializer_ActiveLine(t *testing.T) {
	m := Mode640x480p60
	lists := newHSTXLists(m)
	var out symbolLog
	s := NewHSTXSerializer(&out)

	// The header and pixels arrive as two transfers.
	s.WriteWords(lists.active)
	if len(out.words) != m.HBlank() {
		t.Fatalf("after header: got %d symbols, want %d", len(out.words), m.HBlank())
	}
	pix := make([]uint32, m.HActive/hstxPixelsPerWord)
	for i := range pix {
		pix[i] = 0xFFFFFFFF
	}
	s.WriteWords(pix)
	if len(out.words) != m.HTotal() {
		t.Fatalf("after pixels: got %d symbols, want %d", len(out.words), m.HTotal())
	}
	wr, wg, wb := expand332(0xFF)
	for i, w := range out.words[m.HBlank():] {
		b, g, r := unpackLanes(w)
		for lane, c := range []struct {
			sym  uint16
			want byte
		}{{b, wb}, {g, wg}, {r, wr}} {
			if v, ok := DecodeTMDS(c.sym); !ok || v != c.want {
				t.Fatalf("pixel %d lane %d: decoded (0x%02X, %v), want 0x%02X", i, lane, v, ok, c.want)
			}
		}
	}
}

func TestHSTXSerializer_PixelByteOrder(t *testing.T) {
	var out symbolLog
	s := NewHSTXSerializer(&out)
	s.WriteWords([]uint32{hstxCmdTMDS | 4, 0x000000E0})
	if len(out.words) != 4 {
		t.Fatalf("symbols: got %d, want 4", len(out.words))
	}
	_, _, r := unpackLanes(out.words[0])
	if v, _ := DecodeTMDS(r); v != 0xE0 {
		t.Errorf("first pixel red: got 0x%02X, want 0xE0", v)
	}
	_, _, r = unpackLanes(out.words[1])
	if v, _ := DecodeTMDS(r); v != 0 {
		t.Errorf("second pixel red: got 0x%02X, want 0", v)
	}
}

func TestHSTXSerializer_InvalidOpcode(t *testing.T) {
	s := NewHSTXSerializer(discardSymbols{})
	s.WriteWords([]uint32{0x7000})
	if s.Invalid() != 1 {
		t.Errorf("Invalid: got %d, want 1", s.Invalid())
	}
}

func TestHSTXBackend_Descriptors(t *testing.T) {
	b := NewHSTXBackend(nil, nil)
	lists := newHSTXLists(Mode640x480p60)
	if d := b.Descriptor(0, Step{State: StateVSync}, nil); &d[0] != &b.lists.vsyncOn[0] {
		t.Error("vsync line does not use the vsync list")
	}
	if d := b.Descriptor(0, Step{State: StateBackPorch}, nil); len(d) != len(lists.vsyncOff) {
		t.Error("back porch line does not use the blank list")
	}
	if d := b.Descriptor(0, Step{State: StateActiveCommand, Begin: true}, nil); len(d) != len(lists.active) {
		t.Error("command step does not use the active list")
	}

	fb := &Framebuffer{}
	d0 := b.Descriptor(0, Step{State: StateActivePixels}, fb)
	d1 := b.Descriptor(1, Step{State: StateActivePixels}, fb)
	if len(d0) != 160 {
		t.Errorf("pixel words: got %d, want 160", len(d0))
	}
	if &d0[0] == &d1[0] {
		t.Error("channels share a pixel buffer")
	}
}

func TestHSTXBackend_DACTicksAtAudioRate(t *testing.T) {
	var got audioLog
	b := NewHSTXBackend(nil, &got)
	b.Mixer().Enqueue(4, wavesOf(4, 1))
	for i := 0; i < 10; i++ {
		b.OnLine(Step{})
	}
	// 10 lines at 1.4 samples per line.
	if len(got.frames) != 14 {
		t.Errorf("frames: got %d, want 14", len(got.frames))
	}
	if b.DAC().Underruns() != 10 {
		t.Errorf("underruns: got %d, want 10", b.DAC().Underruns())
	}
}
