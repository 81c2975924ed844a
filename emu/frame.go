package emu

import "sync"

// Framebuffer is one frame of NES palette indices.
type Framebuffer [ScreenWidth * ScreenHeight]byte

// Row returns line y.
func (fb *Framebuffer) Row(y int) []byte {
	return fb[y*ScreenWidth : (y+1)*ScreenWidth]
}

// Clear fills the frame with black.
func (fb *Framebuffer) Clear() {
	BlankLine(fb[:])
}

// FrameExchange is the double buffer shared by the producer (engine) and
// the consumer (video output). The producer always owns the target
// buffer; the consumer only reads a buffer it acquired. A single mutex
// guards the flags and the condition variable lets Publish wait for the
// consumer to leave the buffer it switches to.
type FrameExchange struct {
	mu   sync.Mutex
	cond *sync.Cond

	buf       [2]Framebuffer
	ready     [2]bool
	rendering [2]bool
	target    int
	closed    bool

	published uint64
	seq       [2]uint64
}

// NewFrameExchange creates an exchange with both buffers black and buffer
// 0 as the producer target.
func NewFrameExchange() *FrameExchange {
	x := &FrameExchange{}
	x.cond = sync.NewCond(&x.mu)
	x.buf[0].Clear()
	x.buf[1].Clear()
	return x
}

// Target returns the buffer the producer writes, or -1 while a Publish
// is waiting to switch.
func (x *FrameExchange) Target() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.target
}

// Frame returns buffer id. Callers must own it: the producer its target,
// the consumer a buffer it acquired.
func (x *FrameExchange) Frame(id int) *Framebuffer {
	return &x.buf[id&1]
}

// Row returns line y of buffer id.
func (x *FrameExchange) Row(id, y int) []byte {
	return x.buf[id&1].Row(y)
}

// Publish marks id as a complete frame and hands the producer the other
// buffer. If the consumer is reading that buffer, Publish waits until it
// is released; the consumer holds a buffer for at most one active pass.
// Returns the new target.
func (x *FrameExchange) Publish(id int) int {
	id &= 1
	other := id ^ 1

	x.mu.Lock()
	defer x.mu.Unlock()

	x.published++
	x.seq[id] = x.published
	x.ready[id] = true
	x.ready[other] = false
	if x.rendering[other] && !x.closed {
		// id is complete and may be acquired while we wait.
		x.target = -1
		for x.rendering[other] && !x.closed {
			x.cond.Wait()
		}
	}
	x.target = other
	return other
}

// AcquireForRender returns the newest complete frame and marks it as
// rendering. It never waits for a frame: ok is false when none is ready
// or the ready one is already being rendered. A frame stays ready after
// it is acquired, so it is shown again until a newer one is published.
func (x *FrameExchange) AcquireForRender() (int, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.acquireLocked()
}

// TryAcquireForRender is AcquireForRender for contexts that must not wait
// on the mutex at all. busy is set when the lock was held and nothing was
// looked at; the caller retries later.
func (x *FrameExchange) TryAcquireForRender() (id int, ok, busy bool) {
	if !x.mu.TryLock() {
		return 0, false, true
	}
	defer x.mu.Unlock()
	id, ok = x.acquireLocked()
	return id, ok, false
}

func (x *FrameExchange) acquireLocked() (int, bool) {
	for id := 0; id < 2; id++ {
		if x.ready[id] && !x.rendering[id] {
			x.rendering[id] = true
			return id, true
		}
	}
	return 0, false
}

// Release ends the consumer's pass over id.
func (x *FrameExchange) Release(id int) {
	x.mu.Lock()
	x.rendering[id&1] = false
	x.mu.Unlock()
	x.cond.Broadcast()
}

// TryRelease is Release without waiting on the mutex. It reports false,
// leaving id rendering, when the lock is held.
func (x *FrameExchange) TryRelease(id int) bool {
	if !x.mu.TryLock() {
		return false
	}
	x.rendering[id&1] = false
	x.mu.Unlock()
	x.cond.Broadcast()
	return true
}

// Sequence returns the publish count at the time id was last published,
// or 0 if it never was.
func (x *FrameExchange) Sequence(id int) uint64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.seq[id&1]
}

// Published returns the number of Publish calls.
func (x *FrameExchange) Published() uint64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.published
}

// Close wakes a producer blocked in Publish; subsequent Publish calls do
// not wait.
func (x *FrameExchange) Close() {
	x.mu.Lock()
	x.closed = true
	x.mu.Unlock()
	x.cond.Broadcast()
}

// state returns a snapshot of the flags for tests.
func (x *FrameExchange) state() (ready, rendering [2]bool, target int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.ready, x.rendering, x.target
}
