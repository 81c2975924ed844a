package emu

import "sync/atomic"

// NES controller bits as the engine reads them.
const (
	PadA      = 1 << 0
	PadB      = 1 << 1
	PadSelect = 1 << 2
	PadStart  = 1 << 3
	PadUp     = 1 << 4
	PadDown   = 1 << 5
	PadLeft   = 1 << 6
	PadRight  = 1 << 7
)

// PadSysQuit in the system word asks the engine to leave its frame loop
// so the console can load the selected ROM again.
const PadSysQuit = 1

// Input holds the raw state of a controller port. Set may be called from
// the host thread while the engine polls.
type Input struct {
	Connected bool
	buttons   atomic.Uint32
}

// Set sets controller state.
func (inp *Input) Set(up, down, left, right, btnA, btnB, selectBtn, start bool) {
	var v uint32
	for _, b := range []struct {
		on  bool
		bit uint32
	}{
		{btnA, PadA}, {btnB, PadB}, {selectBtn, PadSelect}, {start, PadStart},
		{up, PadUp}, {down, PadDown}, {left, PadLeft}, {right, PadRight},
	} {
		if b.on {
			v |= b.bit
		}
	}
	inp.buttons.Store(v)
}

// SetBits sets controller state from NES pad bits.
func (inp *Input) SetBits(v uint32) {
	inp.buttons.Store(v & 0xff)
}

// Bits returns the raw NES pad bits.
func (inp *Input) Bits() uint32 {
	return inp.buttons.Load()
}

// InputActions are run when a SELECT combination is pushed.
type InputActions struct {
	// Save persists the cartridge save RAM before the ROM changes.
	Save func()

	// PrevROM and NextROM move the ROM selection.
	PrevROM func()
	NextROM func()

	// ScreenMode steps the screen mode by delta.
	ScreenMode func(delta int)
}

// IO polls the controller ports once per frame. While SELECT is held,
// pushing another button performs a console action instead of reaching
// the game:
//
//	LEFT/RIGHT  save, select the previous/next ROM and reset
//	START       save and reset
//	A/B         toggle rapid fire for that button
//	UP/DOWN     previous/next screen mode
type IO struct {
	InputP1 Input
	InputP2 Input

	actions InputActions

	prev    [2]uint32
	rapid   [2]uint32
	counter uint32

	resetRequested bool
}

// NewIO creates a poller running actions for SELECT combinations.
func NewIO(actions InputActions) *IO {
	io := &IO{actions: actions}
	io.InputP1.Connected = true
	return io
}

// Poll returns the pad words for the engine. Buttons with rapid fire on
// read as released on two of every four polls.
func (io *IO) Poll() (pad1, pad2, system uint32) {
	io.counter++
	var out [2]uint32
	for i, inp := range []*Input{&io.InputP1, &io.InputP2} {
		v := uint32(0)
		if inp.Connected {
			v = inp.Bits()
		}
		pushed := v &^ io.prev[i]
		io.prev[i] = v

		rv := v
		if io.counter&2 != 0 {
			rv &^= io.rapid[i]
		}
		out[i] = rv

		if v&PadSelect != 0 {
			io.combo(i, pushed)
		}
	}

	if io.resetRequested {
		system = PadSysQuit
	}
	return out[0], out[1], system
}

func (io *IO) combo(port int, pushed uint32) {
	// Each pushed button acts on its own, so LEFT and RIGHT together
	// save twice and land back on the same ROM.
	if pushed&PadLeft != 0 {
		io.call(io.actions.Save)
		io.call(io.actions.PrevROM)
		io.resetRequested = true
	}
	if pushed&PadRight != 0 {
		io.call(io.actions.Save)
		io.call(io.actions.NextROM)
		io.resetRequested = true
	}
	if pushed&PadStart != 0 {
		io.call(io.actions.Save)
		io.resetRequested = true
	}

	if pushed&PadA != 0 {
		io.rapid[port] ^= PadA
	}
	if pushed&PadB != 0 {
		io.rapid[port] ^= PadB
	}

	if io.actions.ScreenMode == nil {
		return
	}
	if pushed&PadUp != 0 {
		io.actions.ScreenMode(-1)
	} else if pushed&PadDown != 0 {
		io.actions.ScreenMode(1)
	}
}

func (io *IO) call(fn func()) {
	if fn != nil {
		fn()
	}
}

// TakeReset reports whether a combination asked for a reset since the
// last call and clears the request.
func (io *IO) TakeReset() bool {
	r := io.resetRequested
	io.resetRequested = false
	return r
}

// RapidFire returns the rapid fire mask of a port.
func (io *IO) RapidFire(port int) uint32 {
	return io.rapid[port&1]
}

func (io *IO) setRapidFire(port int, mask uint32) {
	io.rapid[port&1] = mask & (PadA | PadB)
}
