package ui

import (
	"sync"

	"github.com/user-none/dvines/emu"
)

// SharedInput holds controller state written by the Ebiten thread
// and read by the console's producer.
type SharedInput struct {
	mu                                sync.Mutex
	up, down, left, right, btnA, btnB bool
	selectBtn, start                  bool
}

// Set updates directional and button state from the Ebiten thread.
func (si *SharedInput) Set(up, down, left, right, btnA, btnB, selectBtn, start bool) {
	si.mu.Lock()
	si.up = up
	si.down = down
	si.left = left
	si.right = right
	si.btnA = btnA
	si.btnB = btnB
	si.selectBtn = selectBtn
	si.start = start
	si.mu.Unlock()
}

// Read returns the current input state.
func (si *SharedInput) Read() (up, down, left, right, btnA, btnB, selectBtn, start bool) {
	si.mu.Lock()
	up = si.up
	down = si.down
	left = si.left
	right = si.right
	btnA = si.btnA
	btnB = si.btnB
	selectBtn = si.selectBtn
	start = si.start
	si.mu.Unlock()
	return
}

// Apply copies the state onto a console port.
func (si *SharedInput) Apply(inp *emu.Input) {
	inp.Set(si.Read())
}

// SharedFramebuffer holds pixel data written by the console and read by
// Ebiten's Draw() method. Uses separate write and read buffers so the
// console can write new data while Draw uses the read copy.
type SharedFramebuffer struct {
	mu           sync.Mutex
	writePixels  []byte // Written under lock
	readPixels   []byte // Snapshot copied on Read for safe external use
	stride       int
	activeHeight int
}

// NewSharedFramebuffer creates a framebuffer for the DVI output.
func NewSharedFramebuffer() *SharedFramebuffer {
	n := emu.Mode640x480p60.HActive * emu.Mode640x480p60.VActive * 4
	return &SharedFramebuffer{
		writePixels: make([]byte, n),
		readPixels:  make([]byte, n),
	}
}

// Update copies framebuffer data in.
func (sf *SharedFramebuffer) Update(pixels []byte, stride, activeHeight int) {
	sf.mu.Lock()
	n := min(stride*activeHeight, len(sf.writePixels), len(pixels))
	copy(sf.writePixels[:n], pixels[:n])
	sf.stride = stride
	sf.activeHeight = activeHeight
	sf.mu.Unlock()
}

// UpdateFrom copies the latest decoded frame out of the console.
func (sf *SharedFramebuffer) UpdateFrom(c *emu.Console) {
	sf.mu.Lock()
	n := c.CopyFramebuffer(sf.writePixels)
	sf.stride = c.GetFramebufferStride()
	sf.activeHeight = n / max(sf.stride, 1)
	sf.mu.Unlock()
}

// Read returns a snapshot of the current framebuffer state.
// Copies the write buffer into the read buffer under the lock,
// then returns the read buffer which is safe to use without holding the lock.
func (sf *SharedFramebuffer) Read() (pixels []byte, stride, activeHeight int) {
	sf.mu.Lock()
	stride = sf.stride
	activeHeight = sf.activeHeight
	n := min(stride*activeHeight, len(sf.writePixels))
	if n > 0 {
		copy(sf.readPixels[:n], sf.writePixels[:n])
	}
	pixels = sf.readPixels
	sf.mu.Unlock()
	return
}
