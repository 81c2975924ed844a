package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/afero"
	emubridge "github.com/user-none/dvines/bridge/ebiten"
	"github.com/user-none/dvines/cli"
	"github.com/user-none/dvines/emu"
	"github.com/user-none/dvines/ui"
)

func main() {
	romPath := flag.String("rom", "", "path to an iNES ROM or a tar of ROMs to place in flash")
	flashPath := flag.String("flash", "", "flash image file; keeps ROMs and save RAM between runs")
	backendFlag := flag.String("backend", "hstx", "video back-end: hstx or pio")
	screenFlag := flag.String("screen", emu.ScreenScanline8x7.String(), "screen mode")
	saveOnSwitch := flag.Bool("save-on-switch", false, "write save RAM to flash on ROM switch")
	wavPath := flag.String("wav", "", "capture the audio output to a WAV file")
	statsAddr := flag.String("statsview", "", "serve runtime stats on this address (e.g. localhost:18066)")
	flag.Parse()

	if *romPath == "" && *flashPath == "" {
		log.Fatal("a ROM or flash image is required. Usage: dvines -rom <path> [-flash <image>]")
	}

	kind, err := emu.ParseBackendKind(*backendFlag)
	if err != nil {
		log.Fatal(err)
	}
	screen, ok := emu.ParseScreenMode(*screenFlag)
	if !ok {
		log.Fatalf("Invalid screen mode: %s", *screenFlag)
	}

	if *statsAddr != "" {
		go func() {
			viewer.SetConfiguration(viewer.WithAddr(*statsAddr))
			statsview.New().Start()
		}()
		log.Printf("stats server available at http://%s/debug/statsview", *statsAddr)
	}

	fs := afero.NewOsFs()
	var fl *emu.FileFlash
	if *flashPath != "" {
		fl, err = emu.OpenFileFlash(fs, *flashPath, emu.DefaultFlashSize)
		if err != nil {
			log.Fatal(err)
		}
	} else {
		fl = emu.NewMemFlash(emu.DefaultFlashSize)
	}
	defer fl.Close()

	if *romPath != "" {
		romData, err := afero.ReadFile(fs, *romPath)
		if err != nil {
			log.Fatalf("Failed to load ROM: %v", err)
		}
		if err := emu.WriteImage(fl, emu.ROMAddr, romData); err != nil {
			log.Fatalf("Failed to write ROM to flash: %v", err)
		}
	}

	cfg := emu.DefaultConfig()
	cfg.Backend = kind
	cfg.ScreenMode = screen
	cfg.SaveOnSwitch = *saveOnSwitch

	player, err := ui.NewAudioPlayer(1.0)
	if err != nil {
		log.Printf("Warning: audio initialization failed: %v", err)
	}
	var sinks []emu.AudioSink
	if player != nil {
		sinks = append(sinks, player)
	}
	var wav *ui.WavWriter
	if *wavPath != "" {
		wav = ui.NewWavWriter(fs, *wavPath)
		sinks = append(sinks, wav)
	}
	if len(sinks) > 0 {
		cfg.Audio = teeAudio(sinks)
	}

	c, err := emu.NewConsole(cfg, fl, emu.NewTestCard())
	if err != nil {
		log.Fatalf("Failed to initialize console: %v", err)
	}
	defer c.Close()
	if err := c.LoadAndReset(); err != nil {
		log.Printf("No ROM running: %v", err)
	}

	// Without a flash image, save RAM lives in a .srm file next to the ROM
	srmPath := ""
	if *flashPath == "" && *romPath != "" {
		srmPath = srmPathFor(*romPath)
		loadSRM(fs, srmPath, c)
	}

	w, h := emubridge.WindowSize(1)
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle(emu.Name)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(320, 240, -1, -1)
	ebiten.SetTPS(60)

	runner := cli.NewRunner(c, player)

	if err := ebiten.RunGame(runner); err != nil {
		log.Print(err)
	}
	if err := runner.Close(); err != nil {
		log.Print(err)
	}

	// Save SRAM on exit
	if srmPath != "" {
		if err := saveSRM(fs, srmPath, c); err != nil {
			log.Print(err)
		}
	} else if c.HasSRAM() {
		if err := c.SaveSRAM(); err != nil {
			log.Print(err)
		}
	}
	if err := fl.Sync(); err != nil {
		log.Print(err)
	}
	if wav != nil {
		if err := wav.Close(); err != nil {
			log.Print(err)
		}
	}
}

func srmPathFor(romPath string) string {
	return strings.TrimSuffix(romPath, filepath.Ext(romPath)) + ".srm"
}

// loadSRM copies a .srm file into the save RAM of a battery backed
// cartridge. A missing file leaves the save RAM as loaded.
func loadSRM(fs afero.Fs, path string, c *emu.Console) {
	if !c.HasSRAM() {
		return
	}
	if data, err := afero.ReadFile(fs, path); err == nil {
		c.SetSRAM(data)
	}
}

// saveSRM writes the save RAM of a battery backed cartridge to path.
func saveSRM(fs afero.Fs, path string, c *emu.Console) error {
	if !c.HasSRAM() {
		return nil
	}
	if err := afero.WriteFile(fs, path, c.GetSRAM(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// teeAudio fans the console's audio out to several sinks.
type teeAudio []emu.AudioSink

func (t teeAudio) WriteAudio(frames []emu.StereoFrame) {
	for _, s := range t {
		s.WriteAudio(frames)
	}
}
