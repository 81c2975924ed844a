package emu

// LineState names what the output peripheral must be given next.
type LineState int

const (
	StateFrontPorch LineState = iota
	StateVSync
	StateBackPorch
	StateActiveCommand
	StateActivePixels
)

func (s LineState) String() string {
	switch s {
	case StateFrontPorch:
		return "front-porch"
	case StateVSync:
		return "vsync"
	case StateBackPorch:
		return "back-porch"
	case StateActiveCommand:
		return "active-command"
	case StateActivePixels:
		return "active-pixels"
	}
	return "unknown"
}

// Blank reports whether the state carries no pixel content.
func (s LineState) Blank() bool {
	return s < StateActiveCommand
}

// Step is one unit of work for the DMA scheduler: the raster line it
// belongs to and the phase of that line.
type Step struct {
	State LineState
	Line  int // 0..VTotal-1, blanking lines first

	// ActiveLine is Line minus the blanking lines, or -1 when blank.
	ActiveLine int

	// Begin is set on the first step of a line.
	Begin bool
}

// initialLine is where the counter starts: the first two lines are queued
// on both channels before the interrupt is enabled.
const initialLine = 2

// Timing is the vertical raster state machine. Every DMA completion
// calls Next once; it never blocks or allocates.
type Timing struct {
	vsyncStart int
	vsyncEnd   int
	activeFrom int
	total      int

	// split posts the command list and the pixels of an active line as
	// two transfers.
	split bool

	line    int
	cmdDone bool
	frames  uint64
}

// NewTiming creates a Timing for mode. split selects the two-transfer
// active line used by the command list back-end.
func NewTiming(mode VideoMode, split bool) *Timing {
	t := &Timing{
		vsyncStart: mode.VFrontPorch,
		vsyncEnd:   mode.VFrontPorch + mode.VSyncWidth,
		activeFrom: mode.VBlank(),
		total:      mode.VTotal(),
		split:      split,
	}
	t.Reset()
	return t
}

// Reset returns to the state right after the two lines were pre-queued.
func (t *Timing) Reset() {
	t.line = initialLine
	t.cmdDone = false
	t.frames = 0
}

// StateAt classifies a line without touching the counter.
func (t *Timing) StateAt(line int) LineState {
	switch {
	case line < t.vsyncStart:
		return StateFrontPorch
	case line < t.vsyncEnd:
		return StateVSync
	case line < t.activeFrom:
		return StateBackPorch
	}
	return StateActiveCommand
}

// Next returns the step for the current line and advances the counter.
// With split phases an active line yields two steps and only the second
// moves the counter.
func (t *Timing) Next() Step {
	st := Step{State: t.StateAt(t.line), Line: t.line, ActiveLine: -1, Begin: true}
	if !st.State.Blank() {
		st.ActiveLine = t.line - t.activeFrom
		if t.split && !t.cmdDone {
			t.cmdDone = true
			return st
		}
		st.Begin = !t.split
		t.cmdDone = false
		st.State = StateActivePixels
	}

	t.line++
	if t.line == t.total {
		t.line = 0
		t.frames++
	}
	return st
}

// FirstActive reports whether st opens the first visible line.
func (t *Timing) FirstActive(st Step) bool {
	return st.Begin && st.ActiveLine == 0
}

// LastActive reports whether st carries the pixels of the last visible
// line.
func (t *Timing) LastActive(st Step) bool {
	return st.State == StateActivePixels && st.Line == t.total-1
}

// Line returns the counter value the next call to Next will report.
func (t *Timing) Line() int {
	return t.line
}

// Frames returns the number of completed raster periods.
func (t *Timing) Frames() uint64 {
	return t.frames
}

// Total returns the raster period in lines.
func (t *Timing) Total() int {
	return t.total
}

// SplitPhases reports whether active lines take two steps.
func (t *Timing) SplitPhases() bool {
	return t.split
}
