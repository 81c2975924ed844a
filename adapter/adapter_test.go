package adapter

import (
	"testing"

	"github.com/user-none/dvines/emu"
)

func testROM() []byte {
	rom := make([]byte, 16+0x4000+0x2000)
	copy(rom, "NES\x1a")
	rom[4] = 1
	rom[5] = 1
	return rom
}

func TestFactory_SystemInfo(t *testing.T) {
	info := (&Factory{}).SystemInfo()
	if info.ScreenWidth != 640 || info.MaxScreenHeight != 480 {
		t.Errorf("screen: got %dx%d, want 640x480", info.ScreenWidth, info.MaxScreenHeight)
	}
	if info.SampleRate != emu.AudioSampleRate {
		t.Errorf("SampleRate: got %d, want %d", info.SampleRate, emu.AudioSampleRate)
	}
	if info.SerializeSize != emu.SerializeSize() {
		t.Errorf("SerializeSize: got %d, want %d", info.SerializeSize, emu.SerializeSize())
	}
	for _, opt := range info.CoreOptions {
		if opt.Key == "screen_mode" {
			if _, ok := emu.ParseScreenMode(opt.Default); !ok {
				t.Errorf("screen_mode default %q does not parse", opt.Default)
			}
		}
	}
}

func TestFactory_CreateEmulator(t *testing.T) {
	f := &Factory{}
	e, err := f.CreateEmulator(testROM(), emu.RegionNTSC)
	if err != nil {
		t.Fatalf("CreateEmulator: %v", err)
	}
	defer e.Close()

	e.RunFrame()
	e.RunFrame()
	if n := len(e.GetAudioSamples()); n == 0 {
		t.Error("no audio after two frames")
	}
	if got := e.GetFramebufferStride(); got != 640*4 {
		t.Errorf("stride: got %d, want %d", got, 640*4)
	}
}

func TestFactory_CoreOptions(t *testing.T) {
	info := (&Factory{}).SystemInfo()
	got := map[string]bool{}
	for _, opt := range info.CoreOptions {
		got[opt.Key] = true
	}
	for _, key := range []string{"screen_mode", "save_on_switch"} {
		if !got[key] {
			t.Errorf("option %q missing", key)
		}
	}
	if len(got) != 2 {
		t.Errorf("options: got %v, want screen_mode and save_on_switch only", got)
	}
}

func TestFactory_ConfigBackend(t *testing.T) {
	cfg := emu.DefaultConfig()
	cfg.Backend = emu.BackendPIO
	e, err := (&Factory{Config: &cfg}).CreateEmulator(testROM(), emu.RegionNTSC)
	if err != nil {
		t.Fatalf("CreateEmulator: %v", err)
	}
	defer e.Close()
	if got := e.(*emu.Console).Backend(); got != emu.BackendPIO {
		t.Errorf("Backend: got %v, want %v", got, emu.BackendPIO)
	}
}

func TestFactory_CreateEmulatorBadROM(t *testing.T) {
	if _, err := (&Factory{}).CreateEmulator([]byte("not a rom"), emu.RegionNTSC); err == nil {
		t.Error("CreateEmulator accepted a non-iNES image")
	}
}
