package emu

import (
	"encoding/binary"

	"github.com/user-none/go-chip-sn76489"
)

const (
	psgClockHz    = 3579545
	psgBufferSize = 1024
	psgGain       = 1898.0

	// psgBaseTone is the tone period of A4 at psgClockHz.
	psgBaseTone = 254

	testCardBars    = 16
	testCardBarRows = 4
	testCardBarH    = 50
)

// testCardStateSize is frame(4) + cursor(1) + prev(1) + PSG.
var testCardStateSize = 6 + sn76489.SerializeSize

// TestCard is a built-in Engine that needs no CPU core. It draws the 64
// palette entries as bars with a moving marker below them and plays a
// square tone through an SN76489 whose pitch follows the selected bar.
// Battery backed cartridges get a frame counter in the first four bytes
// of save RAM.
type TestCard struct {
	psg *sn76489.SN76489

	cart *Cartridge
	sram []byte

	frame  uint32
	cursor int
	prev   uint32

	waves [numChannels][]byte
}

// NewTestCard creates the test card engine.
func NewTestCard() *TestCard {
	psg := sn76489.New(psgClockHz, AudioSampleRate, psgBufferSize, sn76489.Sega)
	psg.SetGain(psgGain)
	t := &TestCard{psg: psg}
	for i := range t.waves {
		t.waves[i] = make([]byte, psgBufferSize)
	}
	return t
}

// Reset implements Engine.
func (t *TestCard) Reset(cart *Cartridge, sram []byte) error {
	if cart == nil {
		return ErrNoROM
	}
	t.cart = cart
	t.sram = sram
	t.frame = 0
	if cart.Battery && len(sram) >= 4 {
		// An erased slot reads as all ones.
		if n := binary.LittleEndian.Uint32(sram); n != 0xFFFFFFFF {
			t.frame = n
		}
	}
	t.cursor = 0
	t.prev = 0

	t.psg.ResetBuffer()
	// Channel 0 at full volume, the rest muted.
	t.psg.Write(0x90)
	t.psg.Write(0xBF)
	t.psg.Write(0xDF)
	t.psg.Write(0xFF)
	t.setTone()
	return nil
}

func (t *TestCard) setTone() {
	n := psgBaseTone - t.cursor*8
	t.psg.Write(0x80 | byte(n&0x0F))
	t.psg.Write(byte(n>>4) & 0x3F)
}

// Cursor returns the selected bar.
func (t *TestCard) Cursor() int {
	return t.cursor
}

// Frame returns the number of frames run since power-up.
func (t *TestCard) Frame() uint32 {
	return t.frame
}

// RunFrame implements Engine.
func (t *TestCard) RunFrame(h Host) {
	pad, _, sys := h.PadState()
	if sys&PadSysQuit != 0 {
		return
	}
	pushed := pad &^ t.prev
	t.prev = pad
	if pad&PadSelect == 0 {
		switch {
		case pushed&PadLeft != 0:
			t.cursor = (t.cursor + testCardBars - 1) % testCardBars
			t.setTone()
		case pushed&PadRight != 0:
			t.cursor = (t.cursor + 1) % testCardBars
			t.setTone()
		}
	}

	for y := 0; y < ScreenHeight; y++ {
		t.drawLine(h.PreDrawLine(y), y)
		h.PostDrawLine(y)
	}

	t.runAudio(h)

	t.frame++
	if t.cart != nil && t.cart.Battery && len(t.sram) >= 4 && t.frame%60 == 0 {
		binary.LittleEndian.PutUint32(t.sram, t.frame)
		h.SRAMWritten()
	}
	h.LoadFrame()
}

func (t *TestCard) drawLine(buf []byte, y int) {
	w := len(buf) / testCardBars
	if row := y / testCardBarH; row < testCardBarRows {
		for x := range buf {
			buf[x] = byte(row*testCardBars + min(x/w, testCardBars-1))
		}
		return
	}

	for x := range buf {
		buf[x] = blackIndex
	}
	switch y - testCardBarRows*testCardBarH {
	case 8, 9, 10, 11:
		// Selected bar marker.
		for x := t.cursor * w; x < (t.cursor+1)*w; x++ {
			buf[x] = 0x30
		}
	case 24, 25, 26, 27, 28, 29, 30, 31:
		// Block sweeping once every 256 frames.
		x0 := int(t.frame) % len(buf)
		for x := x0; x < x0+8 && x < len(buf); x++ {
			buf[x] = 0x16
		}
	}
}

func (t *TestCard) runAudio(h Host) {
	t.psg.Run(psgClockHz / 60)
	buf, count := t.psg.GetBuffer()
	n := min(count, h.SoundBufferSize(), psgBufferSize)
	for i := 0; i < n; i++ {
		// One channel at full volume spans +-psgGain; map it onto the
		// 4-bit pulse range.
		v := clampInt32((int32(buf[i])+psgGain)*15/(2*psgGain), 0, 15)
		t.waves[chPulse1][i] = byte(v)
		t.waves[chPulse2][i] = byte(v)
	}
	var out [numChannels][]byte
	for c := range out {
		out[c] = t.waves[c][:n]
	}
	h.SoundOutput(n, out)
	t.psg.ResetBuffer()
}

// StateSize implements StateEngine.
func (t *TestCard) StateSize() int {
	return testCardStateSize
}

// SaveState implements StateEngine.
func (t *TestCard) SaveState(dst []byte) error {
	binary.LittleEndian.PutUint32(dst, t.frame)
	dst[4] = uint8(t.cursor)
	dst[5] = uint8(t.prev)
	return t.psg.Serialize(dst[6:])
}

// LoadState implements StateEngine.
func (t *TestCard) LoadState(src []byte) error {
	if err := t.psg.Deserialize(src[6:]); err != nil {
		return err
	}
	t.frame = binary.LittleEndian.Uint32(src)
	t.cursor = int(src[4]) % testCardBars
	t.prev = uint32(src[5])
	return nil
}
