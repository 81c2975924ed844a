package emu

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	emucore "github.com/user-none/eblitui/api"
)

func newTestConsole(t *testing.T, cfg Config, entries []tarEntry) *Console {
	t.Helper()
	fl := flashWith(t, makeTar(t, entries))
	c, err := NewConsole(cfg, fl, NewTestCard())
	if err != nil {
		t.Fatalf("NewConsole: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func testConfig(kind BackendKind) Config {
	cfg := DefaultConfig()
	cfg.Backend = kind
	cfg.ScreenMode = ScreenNoScanline1x1
	cfg.FrameInterval = 0
	return cfg
}

func TestConsole_LoadBadImageChangesNothing(t *testing.T) {
	bad := makeINES(2, 1, 0x02)[:100]
	c := newTestConsole(t, testConfig(BackendHSTX), []tarEntry{{"bad.nes", bad}})
	for i := range c.NVRAM().SRAM() {
		c.NVRAM().SRAM()[i] = 0x55
	}

	if err := c.LoadAndReset(); !errors.Is(err, ErrTruncatedROM) {
		t.Fatalf("LoadAndReset: got %v, want ErrTruncatedROM", err)
	}
	if c.Cartridge() != nil {
		t.Error("cartridge set after a failed load")
	}
	if c.NVRAM().SRAM()[0] != 0x55 || c.NVRAM().SRAM()[SRAMSize-1] != 0x55 {
		t.Error("SRAM touched by a failed load")
	}
	if c.HasSRAM() {
		t.Error("HasSRAM: got true with no cartridge")
	}
}

var errEngineReset = errors.New("engine reset failed")

// refusingEngine is a TestCard whose Reset can be made to fail.
type refusingEngine struct {
	*TestCard
	refuse bool
}

func (e *refusingEngine) Reset(cart *Cartridge, sram []byte) error {
	if e.refuse {
		return errEngineReset
	}
	return e.TestCard.Reset(cart, sram)
}

func TestConsole_FailedResetKeepsSaveSlot(t *testing.T) {
	fl := flashWith(t, makeTar(t, []tarEntry{
		{"a.nes", makeINES(1, 1, 0x02)},
		{"b.nes", makeINES(2, 1, 0x02)},
	}))
	eng := &refusingEngine{TestCard: NewTestCard()}
	c, err := NewConsole(testConfig(BackendHSTX), fl, eng)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if err := c.LoadAndReset(); err != nil {
		t.Fatal(err)
	}
	cart := c.Cartridge()
	before, ok := c.NVRAM().Address()
	if !ok {
		t.Fatal("no save slot bound for a.nes")
	}
	sram := c.NVRAM().SRAM()
	for i := range sram {
		sram[i] = 0x55
	}
	c.NVRAM().MarkWritten()

	eng.refuse = true
	c.Selector().Next()
	if err := c.LoadAndReset(); !errors.Is(err, errEngineReset) {
		t.Fatalf("LoadAndReset: got %v, want errEngineReset", err)
	}
	if c.Cartridge() != cart {
		t.Error("cartridge replaced by a failed reset")
	}
	if after, _ := c.NVRAM().Address(); after != before {
		t.Errorf("save slot: got 0x%08X, want 0x%08X", after, before)
	}
	if got := c.NVRAM().SRAM(); got[0] != 0x55 || got[SRAMSize-1] != 0x55 {
		t.Errorf("SRAM: got 0x%02X..0x%02X, want 0x55", got[0], got[SRAMSize-1])
	}
	if !c.NVRAM().Written() {
		t.Error("unsaved changes dropped by a failed reset")
	}

	// A save now still lands in a.nes's slot.
	if _, err := c.NVRAM().Save(); err != nil {
		t.Fatal(err)
	}
	slot := make([]byte, 1)
	if err := c.flash.ReadAt(slot, before); err != nil {
		t.Fatal(err)
	}
	if slot[0] != 0x55 {
		t.Errorf("a.nes slot: got 0x%02X, want 0x55", slot[0])
	}
}

func TestConsole_NoROMShowsBlack(t *testing.T) {
	c, err := NewConsole(testConfig(BackendPIO), NewMemFlash(2<<20), NewTestCard())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if err := c.LoadAndReset(); !errors.Is(err, ErrNoROM) {
		t.Errorf("LoadAndReset: got %v, want ErrNoROM", err)
	}
	c.RunFrame()
	c.RunFrame()
	st := c.Monitor().Stats()
	if st.Lines != Mode640x480p60.VTotal() || st.ActiveLines != Mode640x480p60.VActive {
		t.Errorf("raster: %d lines, %d active", st.Lines, st.ActiveLines)
	}
	r, g, b := expectedRGB(BackendPIO, blackIndex)
	px := c.GetFramebuffer()[(240*640+320)*4:]
	if px[0] != r || px[1] != g || px[2] != b {
		t.Errorf("centre pixel: got %v, want black", px[:3])
	}
}

func TestConsole_LockStepFrames(t *testing.T) {
	for _, kind := range allBackends {
		t.Run(kind.String(), func(t *testing.T) {
			c := newTestConsole(t, testConfig(kind), []tarEntry{{"card.nes", makeINES(1, 1, 0)}})
			if err := c.LoadAndReset(); err != nil {
				t.Fatal(err)
			}
			total := 0
			for i := 0; i < 3; i++ {
				c.RunFrame()
				total += len(c.GetAudioSamples())
			}
			if want := 3 * 2 * 735; total < want-8 || total > want+8 {
				t.Errorf("PCM values over 3 frames: got %d, want about %d", total, want)
			}

			st := c.Monitor().Stats()
			if st.Frames != 2 {
				t.Errorf("monitor frames: got %d, want 2", st.Frames)
			}
			if st.BadLines != 0 || st.Errors != 0 {
				t.Errorf("bad lines %d, symbol errors %d", st.BadLines, st.Errors)
			}
			if v := c.DMAStats().Violations; v != 0 {
				t.Errorf("DMA violations: %d", v)
			}

			// Bar 1 of the first row, framebuffer x = 32 + 16 + 4, y = 10.
			x, y := 2*(LineOffset+NESWidth/testCardBars+4), 2*10
			r, g, b := expectedRGB(kind, 1)
			px := c.GetFramebuffer()[(y*640+x)*4:]
			if px[0] != r || px[1] != g || px[2] != b {
				t.Errorf("bar pixel: got %v, want [%d %d %d]", px[:3], r, g, b)
			}
		})
	}
}

func TestConsole_AudioReachesOutput(t *testing.T) {
	c := newTestConsole(t, testConfig(BackendPIO), []tarEntry{{"card.nes", makeINES(1, 1, 0)}})
	if err := c.LoadAndReset(); err != nil {
		t.Fatal(err)
	}
	c.RunFrame()
	c.RunFrame()
	pcm := c.GetAudioSamples()
	nonZero := false
	for _, v := range pcm {
		if v != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Error("test card tone did not reach the audio output")
	}
}

func TestConsole_SelectRightSwitchesROM(t *testing.T) {
	c := newTestConsole(t, testConfig(BackendHSTX), []tarEntry{
		{"first.nes", makeINES(1, 1, 0)},
		{"second.nes", makeINES(2, 1, 0)},
	})
	if err := c.LoadAndReset(); err != nil {
		t.Fatal(err)
	}
	c.RunFrame()

	c.SetInput(0, 1<<6|1<<emucore.ButtonRight)
	c.RunFrame()
	if c.Selector().Index() != 1 {
		t.Fatalf("selected ROM: got %d, want 1", c.Selector().Index())
	}
	if len(c.Cartridge().PRG) != 2*prgBankSize {
		t.Error("second ROM not loaded")
	}
}

func TestConsole_SaveOnSwitch(t *testing.T) {
	for _, enabled := range []bool{false, true} {
		cfg := testConfig(BackendHSTX)
		cfg.SaveOnSwitch = enabled
		c := newTestConsole(t, cfg, []tarEntry{{"zelda.nes", makeINES(1, 1, 0x02)}})
		if err := c.LoadAndReset(); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 60; i++ {
			c.RunFrame()
		}
		if !c.NVRAM().Written() {
			t.Fatal("test card did not write save RAM")
		}

		c.SetInput(0, 1<<6|1<<7)
		c.RunFrame()

		addr, ok := c.NVRAM().Address()
		if !ok {
			t.Fatal("no save slot bound")
		}
		slot := make([]byte, 4)
		if err := c.flash.ReadAt(slot, addr); err != nil {
			t.Fatal(err)
		}
		got := binary.LittleEndian.Uint32(slot)
		if enabled && got != 60 {
			t.Errorf("enabled: slot holds %d, want 60", got)
		}
		if !enabled && got != 0xFFFFFFFF {
			t.Errorf("disabled: slot holds 0x%08X, want erased", got)
		}

		card := c.engine.(*TestCard)
		want := uint32(0)
		if enabled {
			want = 60
		}
		if card.Frame() != want {
			t.Errorf("enabled=%v: frame after reload %d, want %d", enabled, card.Frame(), want)
		}
	}
}

func TestConsole_ScreenModeOption(t *testing.T) {
	c := newTestConsole(t, testConfig(BackendHSTX), []tarEntry{{"a.nes", makeINES(1, 1, 0)}})
	c.SetOption("screen_mode", "scanline-8:7")
	if c.ScreenMode() != ScreenScanline8x7 {
		t.Errorf("ScreenMode: got %v, want scanline-8:7", c.ScreenMode())
	}
	c.SetOption("screen_mode", "bogus")
	if c.ScreenMode() != ScreenScanline8x7 {
		t.Errorf("bad value changed mode to %v", c.ScreenMode())
	}
	c.SetOption("save_on_switch", "true")
	if !c.saveOnSwitch.Load() {
		t.Error("save_on_switch not applied")
	}
}

func TestConsole_ScreenModeCombo(t *testing.T) {
	c := newTestConsole(t, testConfig(BackendPIO), []tarEntry{{"a.nes", makeINES(1, 1, 0)}})
	if err := c.LoadAndReset(); err != nil {
		t.Fatal(err)
	}
	c.SetInput(0, 1<<6|1<<emucore.ButtonDown)
	c.RunFrame()
	if c.ScreenMode() != ScreenNoScanline1x1.Next() {
		t.Errorf("ScreenMode: got %v, want %v", c.ScreenMode(), ScreenNoScanline1x1.Next())
	}
}

func TestConsole_SetInputMapping(t *testing.T) {
	c := newTestConsole(t, testConfig(BackendHSTX), []tarEntry{{"a.nes", makeINES(1, 1, 0)}})
	c.SetInput(0, 1<<0|1<<4|1<<7)
	if got, want := c.io.InputP1.Bits(), uint32(PadUp|PadA|PadStart); got != want {
		t.Errorf("port 1: got 0x%02X, want 0x%02X", got, want)
	}
	c.SetInput(1, 1<<5)
	if got := c.io.InputP2.Bits(); got != PadB {
		t.Errorf("port 2: got 0x%02X, want 0x%02X", got, PadB)
	}
}

func TestConsole_ThreadedRun(t *testing.T) {
	c := newTestConsole(t, testConfig(BackendHSTX), []tarEntry{{"card.nes", makeINES(1, 1, 0)}})
	if err := c.LoadAndReset(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	// A flash write parks the output while it runs.
	time.Sleep(50 * time.Millisecond)
	running := true
	c.excl.Run(func() { running = c.sched.Running() })
	if running {
		t.Error("output still streaming during an exclusive run")
	}

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c.Frames().Published() == 0 {
		t.Error("producer published no frames")
	}
	if c.Monitor().Stats().Frames == 0 {
		t.Error("consumer output no frames")
	}
	if v := c.DMAStats().Violations; v != 0 {
		t.Errorf("DMA violations: %d", v)
	}
}
