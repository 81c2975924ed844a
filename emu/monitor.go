package emu

// MonitorStats describes the last complete frame the Monitor received.
type MonitorStats struct {
	Frames uint64

	LineClocks   int // pixel clocks between the last two hsync pulses
	Lines        int // hsync pulses between the last two vsync pulses
	VSyncLines   int // of those, lines with vsync asserted
	ActiveLines  int // lines carrying pixel data
	ActiveClocks int // pixel data clocks on the last active line

	// BadLines counts lines whose length differed from the mode.
	BadLines uint64
	// Errors counts symbols that are neither control nor valid data.
	Errors uint64
}

// Monitor is a DVI sink: it decodes the symbol stream, measures the
// timing and rebuilds the picture as RGBA.
type Monitor struct {
	mode VideoMode
	pix  []byte

	// OnFrame, if set, is called at every vsync with the frame just
	// completed. The slice is reused for the next frame.
	OnFrame func(rgba []byte)

	hHigh, vHigh bool
	clocks       int
	x, row       int
	lineData     int
	lines        int
	vsyncLines   int
	synced       bool
	framed       bool

	stats MonitorStats
}

// NewMonitor creates a monitor expecting mode.
func NewMonitor(mode VideoMode) *Monitor {
	return &Monitor{
		mode:  mode,
		pix:   make([]byte, mode.HActive*mode.VActive*4),
		hHigh: true,
		vHigh: true,
	}
}

// Width returns the decoded frame width.
func (m *Monitor) Width() int {
	return m.mode.HActive
}

// Height returns the decoded frame height.
func (m *Monitor) Height() int {
	return m.mode.VActive
}

// Frame returns the RGBA picture being assembled.
func (m *Monitor) Frame() []byte {
	return m.pix
}

// Stats returns the measurements of the last complete frame.
func (m *Monitor) Stats() MonitorStats {
	return m.stats
}

// WriteSymbols implements SymbolSink.
func (m *Monitor) WriteSymbols(words []uint32) {
	for _, w := range words {
		m.symbol(w)
	}
}

func (m *Monitor) symbol(w uint32) {
	m.clocks++
	l0, l1, l2 := unpackLanes(w)

	if c, ok := controlCode(l0); ok {
		h := c&1 != 0
		v := c&2 != 0
		if m.hHigh && !h {
			m.hsync(v)
		}
		if m.vHigh && !v {
			m.vsync()
		}
		m.hHigh, m.vHigh = h, v
		return
	}

	b, ok0 := DecodeTMDS(l0)
	g, ok1 := DecodeTMDS(l1)
	r, ok2 := DecodeTMDS(l2)
	if !ok0 || !ok1 || !ok2 {
		m.stats.Errors++
	}
	if m.x < m.mode.HActive && m.row < m.mode.VActive {
		i := (m.row*m.mode.HActive + m.x) * 4
		m.pix[i] = r
		m.pix[i+1] = g
		m.pix[i+2] = b
		m.pix[i+3] = 0xff
	}
	m.x++
	m.lineData++
}

func (m *Monitor) hsync(vHigh bool) {
	if m.synced && m.clocks != m.mode.HTotal() {
		m.stats.BadLines++
	}
	m.stats.LineClocks = m.clocks
	m.synced = true
	m.clocks = 0

	if m.lineData > 0 {
		m.stats.ActiveClocks = m.lineData
		m.row++
	}
	m.lineData = 0
	m.x = 0
	m.lines++
	if !vHigh {
		m.vsyncLines++
	}
}

func (m *Monitor) vsync() {
	if m.framed {
		m.stats.Frames++
		m.stats.Lines = m.lines
		m.stats.VSyncLines = m.vsyncLines
		m.stats.ActiveLines = m.row
		if m.OnFrame != nil {
			m.OnFrame(m.pix)
		}
	}
	m.framed = true
	m.lines = 0
	m.vsyncLines = 0
	m.row = 0
}
