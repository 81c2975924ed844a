//go:build !libretro && !ios

package main

import (
	"flag"
	"log"
	"strconv"

	"github.com/user-none/dvines/adapter"
	"github.com/user-none/dvines/emu"
	"github.com/user-none/eblitui/standalone"
)

func main() {
	romPath := flag.String("rom", "", "path to ROM file or tar of ROMs (opens UI if not provided)")
	backend := flag.String("backend", "hstx", "video back-end: hstx or pio")
	screen := flag.String("screen", emu.ScreenScanline8x7.String(), "screen mode")
	saveOnSwitch := flag.Bool("save-on-switch", false, "write save RAM to flash on ROM switch")
	flag.Parse()

	kind, err := emu.ParseBackendKind(*backend)
	if err != nil {
		log.Fatal(err)
	}
	cfg := emu.DefaultConfig()
	cfg.Backend = kind
	factory := &adapter.Factory{Config: &cfg}

	if *romPath != "" {
		options := map[string]string{
			"screen_mode":    *screen,
			"save_on_switch": strconv.FormatBool(*saveOnSwitch),
		}
		if err := standalone.RunDirect(factory, *romPath, "ntsc", options); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := standalone.Run(factory); err != nil {
		log.Fatal(err)
	}
}
