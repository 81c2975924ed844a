package emu

import "sync"

// Exclusive is the rendezvous used for flash writes. The requesting
// context asks for exclusive execution; the video context, at its next
// frame boundary, stops its output, acknowledges and waits until the
// request has run. While no video context is attached, requests run
// inline.
type Exclusive struct {
	runMu sync.Mutex

	mu       sync.Mutex
	attached bool
	pending  bool

	ackCh  chan struct{}
	doneCh chan struct{}

	runs int
}

// NewExclusive creates a rendezvous with nothing attached.
func NewExclusive() *Exclusive {
	return &Exclusive{
		ackCh:  make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Attach registers the context that services requests in Checkpoint.
func (e *Exclusive) Attach() {
	e.mu.Lock()
	e.attached = true
	e.mu.Unlock()
}

// Detach unregisters the servicing context. A request already posted is
// serviced before Detach returns.
func (e *Exclusive) Detach() {
	e.mu.Lock()
	e.attached = false
	p := e.pending
	e.pending = false
	e.mu.Unlock()

	if p {
		e.ackCh <- struct{}{}
		<-e.doneCh
	}
}

// Run executes fn while the other context is parked.
func (e *Exclusive) Run(fn func()) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	e.mu.Lock()
	e.runs++
	if !e.attached {
		e.mu.Unlock()
		fn()
		return
	}
	e.pending = true
	e.mu.Unlock()

	<-e.ackCh
	defer func() { e.doneCh <- struct{}{} }()
	fn()
}

// Pending reports whether a request waits for a checkpoint.
func (e *Exclusive) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

// Checkpoint is called by the attached context at a safe point. If a
// request is pending it calls park, lets the request run, then calls
// resume. Returns true if a request was serviced.
func (e *Exclusive) Checkpoint(park, resume func()) bool {
	e.mu.Lock()
	if !e.pending {
		e.mu.Unlock()
		return false
	}
	e.pending = false
	e.mu.Unlock()

	if park != nil {
		park()
	}
	e.ackCh <- struct{}{}
	<-e.doneCh
	if resume != nil {
		resume()
	}
	return true
}

// Runs returns the number of Run calls.
func (e *Exclusive) Runs() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runs
}
