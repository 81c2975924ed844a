package ui

import (
	"io"
	"sync"
)

// frameBytes is one little-endian int16 stereo frame.
const frameBytes = 4

// AudioRingBuffer is a thread-safe ring buffer implementing io.Reader.
// The console writes frames via Write(), and oto's player reads them via
// Read(). Write drops the oldest frames on overflow so the output never
// stalls; Read never blocks: when the ring is empty it repeats the last
// frame played, the way the DAC holds its level on underflow.
type AudioRingBuffer struct {
	buf       []byte
	readPos   int
	writePos  int
	count     int
	capacity  int
	last      [frameBytes]byte
	underruns uint64
	mu        sync.Mutex
	closed    bool
}

// NewAudioRingBuffer creates a ring buffer with the given capacity in
// bytes, rounded down to whole frames.
func NewAudioRingBuffer(capacity int) *AudioRingBuffer {
	capacity -= capacity % frameBytes
	return &AudioRingBuffer{
		buf:      make([]byte, capacity),
		capacity: capacity,
	}
}

// Write adds data to the buffer. Partial trailing frames are ignored.
func (rb *AudioRingBuffer) Write(p []byte) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.closed {
		return
	}

	n := len(p) - len(p)%frameBytes
	if n == 0 {
		return
	}
	p = p[:n]

	// If data is larger than capacity, only write the last capacity bytes
	if n > rb.capacity {
		p = p[n-rb.capacity:]
		n = rb.capacity
	}

	// If we need more space, drop oldest data
	overflow := rb.count + n - rb.capacity
	if overflow > 0 {
		rb.readPos = (rb.readPos + overflow) % rb.capacity
		rb.count -= overflow
	}

	// Write data to buffer (may wrap around)
	firstChunk := rb.capacity - rb.writePos
	if firstChunk >= n {
		copy(rb.buf[rb.writePos:], p)
	} else {
		copy(rb.buf[rb.writePos:], p[:firstChunk])
		copy(rb.buf[0:], p[firstChunk:])
	}
	rb.writePos = (rb.writePos + n) % rb.capacity
	rb.count += n
}

// Read implements io.Reader. Returns io.EOF once closed.
func (rb *AudioRingBuffer) Read(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.closed {
		return 0, io.EOF
	}

	want := len(p) - len(p)%frameBytes
	if want == 0 {
		return 0, nil
	}

	if rb.count == 0 {
		rb.underruns++
		for i := 0; i < want; i += frameBytes {
			copy(p[i:], rb.last[:])
		}
		return want, nil
	}

	n := min(want, rb.count)

	// Copy data from buffer (may wrap around)
	firstChunk := rb.capacity - rb.readPos
	if firstChunk >= n {
		copy(p, rb.buf[rb.readPos:rb.readPos+n])
	} else {
		copy(p, rb.buf[rb.readPos:])
		copy(p[firstChunk:], rb.buf[:n-firstChunk])
	}
	rb.readPos = (rb.readPos + n) % rb.capacity
	rb.count -= n
	copy(rb.last[:], p[n-frameBytes:n])

	return n, nil
}

// Buffered returns the number of bytes currently in the buffer.
func (rb *AudioRingBuffer) Buffered() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Underruns returns how many reads found the buffer empty.
func (rb *AudioRingBuffer) Underruns() uint64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.underruns
}

// Clear resets the buffer, discarding all data.
func (rb *AudioRingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.readPos = 0
	rb.writePos = 0
	rb.count = 0
	rb.last = [frameBytes]byte{}
}

// Close signals shutdown. Subsequent Reads return io.EOF.
func (rb *AudioRingBuffer) Close() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.closed = true
}
