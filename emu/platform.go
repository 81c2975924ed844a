package emu

// Host is what the emulation engine calls while it runs a frame.
type Host interface {
	// PreDrawLine returns the buffer the engine renders scanline line
	// into: NESWidth pixel indices.
	PreDrawLine(line int) []byte

	// PostDrawLine is called once the line is complete.
	PostDrawLine(line int)

	// LoadFrame publishes the frame drawn so far and switches to the
	// other framebuffer.
	LoadFrame()

	// PadState returns the controller words and the system word.
	PadState() (pad1, pad2, system uint32)

	// SoundBufferSize returns how many samples SoundOutput can accept.
	SoundBufferSize() int

	// SoundOutput queues n samples of the five APU channel waves.
	SoundOutput(n int, waves [numChannels][]byte)

	// SRAMWritten notes a write to cartridge save RAM.
	SRAMWritten()
}

// Engine is an NES emulation core.
type Engine interface {
	// Reset powers the engine up on cart with sram mapped at $6000.
	Reset(cart *Cartridge, sram []byte) error

	// RunFrame emulates one frame, drawing through h. It returns early
	// when the system word asks to quit.
	RunFrame(h Host)
}

// Platform implements Host on top of the frame exchange, the active
// audio path and the input poller.
type Platform struct {
	frames *FrameExchange
	target int
	mixer  Mixer
	io     *IO
	nvram  *NVRAM

	scratch [NESWidth]byte
	lines   int
}

// NewPlatform creates the host side of the engine.
func NewPlatform(frames *FrameExchange, mixer Mixer, io *IO, nvram *NVRAM) *Platform {
	return &Platform{
		frames: frames,
		target: frames.Target(),
		mixer:  mixer,
		io:     io,
		nvram:  nvram,
	}
}

// SetMixer switches the audio path.
func (p *Platform) SetMixer(m Mixer) {
	p.mixer = m
}

// Target returns the framebuffer being drawn.
func (p *Platform) Target() int {
	return p.target
}

// PreDrawLine implements Host. Lines outside the framebuffer draw into a
// scratch buffer.
func (p *Platform) PreDrawLine(line int) []byte {
	if line < 0 || line >= ScreenHeight {
		return p.scratch[:]
	}
	return p.frames.Row(p.target, line)[LineOffset : LineOffset+NESWidth]
}

// PostDrawLine implements Host.
func (p *Platform) PostDrawLine(line int) {
	p.lines++
}

// LoadFrame implements Host.
func (p *Platform) LoadFrame() {
	p.target = p.frames.Publish(p.target)
}

// PadState implements Host.
func (p *Platform) PadState() (pad1, pad2, system uint32) {
	return p.io.Poll()
}

// SoundBufferSize implements Host.
func (p *Platform) SoundBufferSize() int {
	return p.mixer.WriteCapacity()
}

// SoundOutput implements Host.
func (p *Platform) SoundOutput(n int, waves [numChannels][]byte) {
	p.mixer.Enqueue(n, waves)
}

// SRAMWritten implements Host.
func (p *Platform) SRAMWritten() {
	p.nvram.MarkWritten()
}

// Lines returns the number of lines drawn.
func (p *Platform) Lines() int {
	return p.lines
}
