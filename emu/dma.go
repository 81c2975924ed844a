package emu

// WordSink is the output peripheral a DMA channel streams into.
type WordSink interface {
	WriteWords(words []uint32)
}

// dmaChannel holds the programmed descriptor of one channel. words is what
// the read address and transfer count registers describe; a trigger
// latches it into the streaming state.
type dmaChannel struct {
	words   []uint32
	latched []uint32
}

// DMAController models two channels chained to each other in a ring: the
// completion of one triggers the other and raises the interrupt. It is
// owned by the consumer context.
type DMAController struct {
	ch     [2]dmaChannel
	active int
	intr   uint32
	sink   WordSink
	irq    func()

	transfers  uint64
	words      uint64
	violations int
	missed     int
}

// NewDMAController creates an idle controller streaming into sink.
func NewDMAController(sink WordSink) *DMAController {
	return &DMAController{sink: sink, active: -1}
}

// SetIRQHandler installs the function called after every completion.
func (d *DMAController) SetIRQHandler(fn func()) {
	d.irq = fn
}

// Program writes a channel's read address and transfer count. Writing the
// channel that is streaming corrupts its transfer and is recorded as a
// violation.
func (d *DMAController) Program(ch int, words []uint32) {
	if ch == d.active {
		d.violations++
	}
	d.ch[ch].words = words
}

// Start triggers ch. Any transfer already in flight is abandoned.
func (d *DMAController) Start(ch int) {
	d.active = ch
	d.ch[ch].latched = d.ch[ch].words
}

// Stop aborts both channels and clears pending interrupts.
func (d *DMAController) Stop() {
	d.active = -1
	d.intr = 0
}

// Running reports whether a channel is streaming.
func (d *DMAController) Running() bool {
	return d.active >= 0
}

// Active returns the streaming channel, or -1.
func (d *DMAController) Active() int {
	return d.active
}

// Step completes the transfer in flight: its words reach the peripheral,
// the chained channel starts and the interrupt handler runs. Returns false
// when nothing is streaming.
func (d *DMAController) Step() bool {
	if d.active < 0 {
		return false
	}
	done := d.active
	w := d.ch[done].latched
	d.sink.WriteWords(w)
	d.transfers++
	d.words += uint64(len(w))

	if d.intr&(1<<done) != 0 {
		d.missed++
	}
	d.intr |= 1 << done

	d.Start(done ^ 1)
	if d.irq != nil {
		d.irq()
	}
	return true
}

// Ack clears the completion flag of ch.
func (d *DMAController) Ack(ch int) {
	d.intr &^= 1 << ch
}

// Pending reports whether ch has an unacknowledged completion.
func (d *DMAController) Pending(ch int) bool {
	return d.intr&(1<<ch) != 0
}

// DMAStats are the controller's counters.
type DMAStats struct {
	Transfers uint64
	Words     uint64

	// Violations counts descriptor writes to the streaming channel.
	Violations int

	// Missed counts completions raised while the previous one on the same
	// channel was still unacknowledged.
	Missed int
}

// Stats returns a snapshot of the counters.
func (d *DMAController) Stats() DMAStats {
	return DMAStats{
		Transfers:  d.transfers,
		Words:      d.words,
		Violations: d.violations,
		Missed:     d.missed,
	}
}
