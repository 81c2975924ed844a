package adapter

import (
	"fmt"

	"github.com/user-none/dvines/emu"
	emucore "github.com/user-none/eblitui/api"
)

// Compile-time interface check.
var _ emucore.CoreFactory = (*Factory)(nil)

// Factory implements emucore.CoreFactory for the NES DVI console.
type Factory struct {
	// Config is the console configuration. The zero value means
	// emu.DefaultConfig with the lock-step run mode the frontends use.
	// The video back-end is fixed here; it is not a core option since
	// it cannot change once the console exists.
	Config *emu.Config
}

// SystemInfo returns system metadata for UI configuration.
func (f *Factory) SystemInfo() emucore.SystemInfo {
	return emucore.SystemInfo{
		Name:            "dvines",
		ConsoleName:     "Nintendo Entertainment System",
		Extensions:      []string{".nes", ".tar"},
		ScreenWidth:     emu.Mode640x480p60.HActive,
		MaxScreenHeight: emu.Mode640x480p60.VActive,
		AspectRatio:     4.0 / 3.0,
		SampleRate:      emu.AudioSampleRate,
		Buttons: []emucore.Button{
			{Name: "A", ID: 4, DefaultKey: "K", DefaultPad: "B"},
			{Name: "B", ID: 5, DefaultKey: "J", DefaultPad: "A"},
			{Name: "Select", ID: 6, DefaultKey: "Backspace", DefaultPad: "Back"},
			{Name: "Start", ID: 7, DefaultKey: "Enter", DefaultPad: "Start"},
		},
		Players: 2,
		CoreOptions: []emucore.CoreOption{
			{
				Key:         "screen_mode",
				Label:       "Screen Mode",
				Description: "Pixel aspect and scanline effect of the DVI output",
				Type:        emucore.CoreOptionSelect,
				Default:     emu.ScreenScanline8x7.String(),
				Values: []string{
					emu.ScreenScanline8x7.String(),
					emu.ScreenNoScanline8x7.String(),
					emu.ScreenScanline1x1.String(),
					emu.ScreenNoScanline1x1.String(),
				},
				Category: emucore.CoreOptionCategoryVideo,
			},
			{
				Key:         "save_on_switch",
				Label:       "Save On ROM Switch",
				Description: "Write save RAM to flash when SELECT switches or resets the ROM",
				Type:        emucore.CoreOptionBool,
				Default:     "false",
				Category:    emucore.CoreOptionCategoryCore,
			},
		},
		RDBName:       "Nintendo - Nintendo Entertainment System",
		ThumbnailRepo: "Nintendo_-_Nintendo_Entertainment_System",
		DataDirName:   "dvines",
		ConsoleID:     3,
		CoreName:      emu.Name,
		CoreVersion:   emu.Version,
		SerializeSize: emu.SerializeSize(),
	}
}

// CreateEmulator places rom (an iNES image or a tar of them) in an
// in-memory flash and starts a console on it running the test card.
func (f *Factory) CreateEmulator(rom []byte, region emucore.Region) (emucore.Emulator, error) {
	cfg := emu.DefaultConfig()
	if f.Config != nil {
		cfg = *f.Config
	}

	fl := emu.NewMemFlash(emu.DefaultFlashSize)
	if err := emu.WriteImage(fl, cfg.ROMBase, rom); err != nil {
		return nil, fmt.Errorf("place ROM in flash: %w", err)
	}

	c, err := emu.NewConsole(cfg, fl, emu.NewTestCard())
	if err != nil {
		return nil, err
	}
	if err := c.LoadAndReset(); err != nil {
		c.Close()
		return nil, err
	}
	c.SetRegion(region)
	return c, nil
}

// DetectRegion always reports NTSC: the DVI output runs at 60 Hz.
// The bool return is false since no ROM database is consulted.
func (f *Factory) DetectRegion(rom []byte) (emucore.Region, bool) {
	return emucore.RegionNTSC, false
}
