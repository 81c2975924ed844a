package emu

import "testing"

func TestPIOPairs_DecodeToColour(t *testing.T) {
	for _, c := range []uint16{0x000, 0xFFF, 0xF00, 0x0F0, 0x00F, 0x5A3} {
		wr, wg, wb := expand444(c)
		for k := 0; k < 2; k++ {
			b, g, r := unpackLanes(pioPairs[c][k])
			for lane, x := range []struct {
				sym  uint16
				want byte
			}{{b, wb}, {g, wg}, {r, wr}} {
				if v, ok := DecodeTMDS(x.sym); !ok || v != x.want {
					t.Errorf("colour 0x%03X symbol %d lane %d: got (0x%02X, %v), want 0x%02X", c, k, lane, v, ok, x.want)
				}
			}
		}
	}
}

func TestControlLine(t *testing.T) {
	m := Mode640x480p60
	l := controlLine(m, false)
	if len(l) != m.HTotal() {
		t.Fatalf("length: got %d, want %d", len(l), m.HTotal())
	}
	if l[0] != syncV0H1 {
		t.Errorf("front porch: got 0x%08X, want V0H1", l[0])
	}
	if l[m.HFrontPorch] != syncV0H0 || l[m.HFrontPorch+m.HSyncWidth-1] != syncV0H0 {
		t.Error("hsync pulse not low for its full width")
	}
	if l[m.HFrontPorch+m.HSyncWidth] != syncV0H1 {
		t.Error("hsync not released after the pulse")
	}
}

func TestPIOBackend_Descriptors(t *testing.T) {
	b := NewPIOBackend(discardSymbols{}, discardAudio{})
	m := Mode640x480p60

	if d := b.Descriptor(0, Step{State: StateVSync}, nil); len(d) != m.HTotal() || d[0] != syncV0H1 {
		t.Error("vsync line is not a low vsync control line")
	}
	if d := b.Descriptor(0, Step{State: StateFrontPorch}, nil); d[0] != syncV1H1 {
		t.Error("porch line is not a high vsync control line")
	}

	b.SetScreenMode(ScreenNoScanline1x1)
	fb := &Framebuffer{}
	for x := range fb.Row(0) {
		fb.Row(0)[x] = 0x30
	}
	d0 := b.Descriptor(0, Step{State: StateActivePixels, Begin: true}, fb)
	d1 := b.Descriptor(1, Step{State: StateActivePixels, Begin: true, ActiveLine: 1}, fb)
	if len(d0) != m.HTotal() {
		t.Fatalf("active line: got %d words, want %d", len(d0), m.HTotal())
	}
	if &d0[0] == &d1[0] {
		t.Error("channels share a line buffer")
	}
	if d0[m.HFrontPorch] != syncV1H0 {
		t.Error("active line header lost its hsync pulse")
	}
	c := Palette444[0x30] & 0xfff
	if d0[m.HBlank()] != pioPairs[c][0] || d0[m.HBlank()+1] != pioPairs[c][1] {
		t.Error("first pixel is not the encoded palette colour")
	}
}

func TestPIOBackend_AudioPerLine(t *testing.T) {
	var got audioLog
	b := NewPIOBackend(discardSymbols{}, &got)
	b.Mixer().Enqueue(3, wavesOf(3, 10))
	for i := 0; i < 5; i++ {
		b.OnLine(Step{})
	}
	if len(got.frames) != 7 {
		t.Fatalf("frames: got %d, want 7", len(got.frames))
	}
	want := MixStereo([numChannels]byte{10, 10, 10, 10, 10})
	for i, f := range got.frames {
		if f != want {
			t.Errorf("frame %d: got %+v, want %+v", i, f, want)
		}
	}
}

func TestPIOSerializer_CountsWords(t *testing.T) {
	var out symbolLog
	s := NewPIOSerializer(&out)
	s.WriteWords(make([]uint32, 800))
	s.WriteWords(make([]uint32, 800))
	if s.Words() != 1600 || len(out.words) != 1600 {
		t.Errorf("words: got %d/%d, want 1600", s.Words(), len(out.words))
	}
}
