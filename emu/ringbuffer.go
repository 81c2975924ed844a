package emu

import "sync/atomic"

// DefaultRingSize holds more than one 60 Hz frame of 44.1 kHz audio.
const DefaultRingSize = 1024

// RingBuffer is a lock-free single-producer single-consumer queue. The
// producer only moves the write cursor and the consumer only the read
// cursor; capacity is a power of two so the cursors can run freely.
type RingBuffer[T any] struct {
	buf  []T
	mask uint32
	r    atomic.Uint32
	w    atomic.Uint32
}

// NewRingBuffer creates a ring holding size elements. size is rounded up
// to a power of two.
func NewRingBuffer[T any](size int) *RingBuffer[T] {
	n := 1
	for n < size {
		n <<= 1
	}
	return &RingBuffer[T]{buf: make([]T, n), mask: uint32(n - 1)}
}

// Cap returns the capacity.
func (rb *RingBuffer[T]) Cap() int {
	return len(rb.buf)
}

// Len returns the number of queued elements.
func (rb *RingBuffer[T]) Len() int {
	return int(rb.w.Load() - rb.r.Load())
}

// Free returns the room left for the producer.
func (rb *RingBuffer[T]) Free() int {
	return len(rb.buf) - rb.Len()
}

// Push appends v. Returns false when the ring is full.
func (rb *RingBuffer[T]) Push(v T) bool {
	w := rb.w.Load()
	if w-rb.r.Load() == uint32(len(rb.buf)) {
		return false
	}
	rb.buf[w&rb.mask] = v
	rb.w.Store(w + 1)
	return true
}

// Pop removes the oldest element.
func (rb *RingBuffer[T]) Pop() (T, bool) {
	r := rb.r.Load()
	if r == rb.w.Load() {
		var zero T
		return zero, false
	}
	v := rb.buf[r&rb.mask]
	rb.r.Store(r + 1)
	return v, true
}

// Reset empties the ring. Only safe while neither side is running.
func (rb *RingBuffer[T]) Reset() {
	rb.r.Store(0)
	rb.w.Store(0)
}

// Drain is the consumer end of a ring. On underflow it repeats the last
// element it returned, so the output holds its level instead of reading
// stale slots.
type Drain[T any] struct {
	rb   *RingBuffer[T]
	last T
}

// NewDrain creates the consumer end of rb.
func NewDrain[T any](rb *RingBuffer[T]) *Drain[T] {
	return &Drain[T]{rb: rb}
}

// Next returns the next element, or the previous one on underflow.
func (d *Drain[T]) Next() (T, bool) {
	v, ok := d.rb.Pop()
	if ok {
		d.last = v
	}
	return d.last, ok
}

// Fill fills dst and returns how many elements came from the ring.
func (d *Drain[T]) Fill(dst []T) int {
	n := 0
	for i := range dst {
		var ok bool
		dst[i], ok = d.Next()
		if ok {
			n++
		}
	}
	return n
}

// Reset forgets the held element.
func (d *Drain[T]) Reset() {
	var zero T
	d.last = zero
}
