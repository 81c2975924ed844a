package emu

import (
	"context"
	"fmt"
	"hash/crc32"
	"log"
	"sync"
	"sync/atomic"
	"time"

	emucore "github.com/user-none/eblitui/api"
	"golang.org/x/sync/errgroup"
)

// Compile-time interface checks.
var _ emucore.Emulator = (*Console)(nil)
var _ emucore.SaveStater = (*Console)(nil)
var _ emucore.BatterySaver = (*Console)(nil)

const (
	// producerPoll is how often a paced producer rechecks the audio ring.
	producerPoll = time.Millisecond

	// maxPendingAudio bounds the PCM kept for GetAudioSamples: one second
	// of stereo.
	maxPendingAudio = 2 * AudioSampleRate
)

// Config selects how a Console is built.
type Config struct {
	Backend      BackendKind
	ScreenMode   ScreenMode
	SaveOnSwitch bool

	// ROMBase is the flash address of the ROM area.
	ROMBase uint32

	// FrameInterval paces the threaded consumer. Zero runs unpaced.
	FrameInterval time.Duration

	// Symbols and Audio, if set, also receive the serial output and the
	// audio the console plays.
	Symbols SymbolSink
	Audio   AudioSink
}

// DefaultConfig returns the stock configuration: command list back-end,
// scanlines at 8:7 and no flash writes on ROM switch.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendHSTX,
		ScreenMode:    ScreenScanline8x7,
		ROMBase:       ROMAddr,
		FrameInterval: time.Duration(float64(time.Second) / Mode640x480p60.FrameRateHz()),
	}
}

// Console wires an Engine to the video and audio output. The producer
// side runs the engine into the frame exchange; the consumer side runs
// the DMA scheduler that turns published frames into the DVI stream.
type Console struct {
	cfg Config

	flash    Flash
	excl     *Exclusive
	nvram    *NVRAM
	selector *ROMSelector
	engine   Engine
	cart     *Cartridge
	romCRC   uint32

	frames   *FrameExchange
	backend  Backend
	dma      *DMAController
	timing   *Timing
	sched    *Scheduler
	monitor  *Monitor
	io       *IO
	platform *Platform

	saveOnSwitch atomic.Bool
	region       Region

	mu      sync.Mutex
	display []byte
	audio   []int16
}

// NewConsole builds a console over flash running engine. The ROM area is
// scanned but nothing is loaded until LoadAndReset.
func NewConsole(cfg Config, flash Flash, engine Engine) (*Console, error) {
	if cfg.ROMBase == 0 {
		cfg.ROMBase = ROMAddr
	}
	selector, err := NewROMSelector(flash, cfg.ROMBase)
	if err != nil {
		return nil, err
	}

	c := &Console{
		cfg:      cfg,
		flash:    flash,
		excl:     NewExclusive(),
		selector: selector,
		engine:   engine,
		frames:   NewFrameExchange(),
		monitor:  NewMonitor(Mode640x480p60),
		region:   DefaultRegion(),
	}
	c.saveOnSwitch.Store(cfg.SaveOnSwitch)
	c.nvram = NewNVRAM(flash, c.excl, cfg.ROMBase)
	c.display = make([]byte, len(c.monitor.Frame()))
	c.monitor.OnFrame = c.storeFrame

	var symbols SymbolSink = c.monitor
	if cfg.Symbols != nil {
		symbols = teeSymbols{c.monitor, cfg.Symbols}
	}
	c.backend, err = NewBackend(cfg.Backend, symbols, c)
	if err != nil {
		return nil, err
	}
	c.backend.SetScreenMode(cfg.ScreenMode)
	c.dma = NewDMAController(c.backend.Peripheral())
	c.timing = NewTiming(Mode640x480p60, c.backend.SplitPhases())
	c.sched = NewScheduler(c.dma, c.timing, c.backend, c.frames)

	c.io = NewIO(InputActions{
		Save:       c.saveIfEnabled,
		PrevROM:    c.selector.Prev,
		NextROM:    c.selector.Next,
		ScreenMode: c.stepScreenMode,
	})
	c.platform = NewPlatform(c.frames, c.backend.Mixer(), c.io, c.nvram)

	log.Printf("%s: %s back-end, %d ROM(s)", Name, c.backend.Name(), selector.Count())
	return c, nil
}

// LoadAndReset loads the selected ROM and resets the engine on it: parse,
// clear save RAM and place the trainer, load the save slot, reset. On
// failure nothing changes and the previous cartridge, if any, keeps
// running.
func (c *Console) LoadAndReset() error {
	img, err := c.selector.Current()
	if err != nil {
		log.Printf("ROM does not exist: %v", err)
		return err
	}
	cart, err := ParseROM(img)
	if err != nil {
		log.Printf("NES file parse error: %v", err)
		return err
	}

	prev := c.nvram.snapshot()
	if err := c.nvram.Switch(c.selector.Identity(), c.selector.NVRAMSlot(), cart.LoadSRAM); err != nil {
		return err
	}
	if err := c.engine.Reset(cart, c.nvram.SRAM()); err != nil {
		log.Printf("NES reset error: %v", err)
		c.nvram.restore(prev)
		return fmt.Errorf("reset engine: %w", err)
	}
	c.cart = cart
	c.romCRC = crc32.ChecksumIEEE(img)
	log.Printf("loaded %q (mapper %d)", c.selector.Identity().Name, cart.Mapper)
	return nil
}

func (c *Console) saveIfEnabled() {
	if !c.saveOnSwitch.Load() {
		return
	}
	if _, err := c.nvram.Save(); err != nil {
		log.Printf("save SRAM: %v", err)
	}
}

func (c *Console) stepScreenMode(delta int) {
	m := c.sched.ScreenMode()
	if delta < 0 {
		m = m.Prev()
	} else {
		m = m.Next()
	}
	c.sched.SetScreenMode(m)
}

// runProducer runs one engine frame and handles a reset request.
func (c *Console) runProducer() {
	if c.cart == nil {
		return
	}
	c.engine.RunFrame(c.platform)
	if c.io.TakeReset() {
		if err := c.LoadAndReset(); err != nil {
			log.Printf("reload: %v", err)
		}
	}
}

// RunFrame runs one engine frame followed by one output raster on the
// calling goroutine. Flash writes run inline.
func (c *Console) RunFrame() {
	if !c.sched.Running() {
		c.sched.Start()
	}
	c.runProducer()
	c.sched.RunFrame()
}

// Run drives the console from two goroutines until ctx is done: the
// producer runs the engine, paced by the audio ring, and the consumer
// streams rasters and parks for flash writes between them.
func (c *Console) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	c.excl.Attach()

	g.Go(func() error {
		defer c.excl.Detach()
		return c.consume(ctx)
	})
	g.Go(func() error {
		return c.produce(ctx)
	})
	return g.Wait()
}

func (c *Console) consume(ctx context.Context) error {
	c.sched.Start()
	defer c.sched.Stop()

	var tick <-chan time.Time
	if c.cfg.FrameInterval > 0 {
		t := time.NewTicker(c.cfg.FrameInterval)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		c.sched.RunFrame()
		c.excl.Checkpoint(c.sched.Stop, c.sched.Start)
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		}
	}
}

func (c *Console) produce(ctx context.Context) error {
	perFrame := int(float64(AudioSampleRate)/Mode640x480p60.FrameRateHz()) + 1
	for {
		if ctx.Err() != nil {
			return nil
		}
		if c.cart == nil {
			// Nothing loaded: the consumer keeps showing black.
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.cfg.FrameInterval + producerPoll):
			}
			continue
		}
		for c.platform.SoundBufferSize() < perFrame {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(producerPoll):
			}
		}
		c.runProducer()
	}
}

func (c *Console) storeFrame(rgba []byte) {
	c.mu.Lock()
	copy(c.display, rgba)
	c.mu.Unlock()
}

// WriteAudio implements AudioSink. The output stage delivers the audio
// it plays here.
func (c *Console) WriteAudio(frames []StereoFrame) {
	c.mu.Lock()
	for _, f := range frames {
		c.audio = append(c.audio, f.L, f.R)
	}
	if n := len(c.audio); n > maxPendingAudio {
		c.audio = c.audio[n-maxPendingAudio:]
	}
	c.mu.Unlock()
	if c.cfg.Audio != nil {
		c.cfg.Audio.WriteAudio(frames)
	}
}

// CopyFramebuffer copies the last complete output frame into dst and
// returns the bytes copied. Safe while Run is active.
func (c *Console) CopyFramebuffer(dst []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copy(dst, c.display)
}

// GetFramebuffer returns the last complete output frame as RGBA.
func (c *Console) GetFramebuffer() []byte {
	return c.display
}

// GetFramebufferStride returns the stride (bytes per row) of the framebuffer.
func (c *Console) GetFramebufferStride() int {
	return c.monitor.Width() * 4
}

// GetActiveHeight returns the output height.
func (c *Console) GetActiveHeight() int {
	return c.monitor.Height()
}

// GetAudioSamples returns the stereo PCM played since the last call.
func (c *Console) GetAudioSamples() []int16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.audio
	c.audio = nil
	return out
}

// SetInput maps a front-end button mask onto a controller port.
func (c *Console) SetInput(player int, buttons uint32) {
	var v uint32
	for bit, pad := range [...]uint32{
		emucore.ButtonUp:    PadUp,
		emucore.ButtonDown:  PadDown,
		emucore.ButtonLeft:  PadLeft,
		emucore.ButtonRight: PadRight,
		4:                   PadA,
		5:                   PadB,
		6:                   PadSelect,
		7:                   PadStart,
	} {
		if buttons&(1<<bit) != 0 {
			v |= pad
		}
	}
	switch player {
	case 0:
		c.io.InputP1.SetBits(v)
	case 1:
		c.io.InputP2.SetBits(v)
	}
}

// Port returns controller port n (0 or 1) for hosts that set NES pad
// bits directly.
func (c *Console) Port(n int) *Input {
	if n&1 == 1 {
		return &c.io.InputP2
	}
	return &c.io.InputP1
}

// SetP2Connected sets whether a Player 2 controller is connected.
func (c *Console) SetP2Connected(connected bool) {
	c.io.InputP2.Connected = connected
}

// GetRegion returns the region. The output always runs at 60 Hz.
func (c *Console) GetRegion() Region {
	return c.region
}

// SetRegion records the region; it does not change the raster.
func (c *Console) SetRegion(region Region) {
	c.region = region
}

// GetTiming returns the output refresh rate and lines per frame.
func (c *Console) GetTiming() emucore.Timing {
	return emucore.Timing{
		FPS:       int(Mode640x480p60.FrameRateHz() + 0.5),
		Scanlines: Mode640x480p60.VTotal(),
	}
}

// SetOption applies a core option change identified by key.
func (c *Console) SetOption(key string, value string) {
	switch key {
	case "screen_mode":
		if m, ok := ParseScreenMode(value); ok {
			c.sched.SetScreenMode(m)
		}
	case "save_on_switch":
		c.saveOnSwitch.Store(value == "true")
	}
}

// Backend returns the video back-end the console was built with.
func (c *Console) Backend() BackendKind {
	return c.cfg.Backend
}

// ScreenMode returns the requested screen mode.
func (c *Console) ScreenMode() ScreenMode {
	return c.sched.ScreenMode()
}

// SetScreenMode requests a screen mode for the next frame.
func (c *Console) SetScreenMode(m ScreenMode) {
	c.sched.SetScreenMode(m)
}

// Selector returns the ROM selector.
func (c *Console) Selector() *ROMSelector {
	return c.selector
}

// NVRAM returns the save RAM.
func (c *Console) NVRAM() *NVRAM {
	return c.nvram
}

// Cartridge returns the loaded cartridge, or nil.
func (c *Console) Cartridge() *Cartridge {
	return c.cart
}

// Frames returns the frame exchange.
func (c *Console) Frames() *FrameExchange {
	return c.frames
}

// Monitor returns the sink decoding the serial output.
func (c *Console) Monitor() *Monitor {
	return c.monitor
}

// DMAStats returns the DMA model counters.
func (c *Console) DMAStats() DMAStats {
	return c.dma.Stats()
}

// HasSRAM returns true if the loaded ROM declares battery-backed SRAM.
func (c *Console) HasSRAM() bool {
	return c.cart != nil && c.cart.Battery
}

// GetSRAM returns a copy of the current SRAM contents.
func (c *Console) GetSRAM() []byte {
	out := make([]byte, SRAMSize)
	copy(out, c.nvram.SRAM())
	return out
}

// SetSRAM loads SRAM contents from a save file.
func (c *Console) SetSRAM(data []byte) {
	copy(c.nvram.SRAM(), data)
}

// SaveSRAM writes the save RAM to its flash slot if it changed.
func (c *Console) SaveSRAM() error {
	_, err := c.nvram.Save()
	return err
}

// Close stops the output and releases the frame exchange.
func (c *Console) Close() {
	c.sched.Stop()
	c.frames.Close()
}

// teeSymbols fans the serial output out to two sinks.
type teeSymbols [2]SymbolSink

func (t teeSymbols) WriteSymbols(words []uint32) {
	t[0].WriteSymbols(words)
	t[1].WriteSymbols(words)
}
