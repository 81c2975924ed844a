package emu

import "sync/atomic"

// Scheduler is the DMA completion handler. It owns the ping/pong flag,
// the timing state machine and the frame being displayed, and keeps the
// idle channel programmed with the next transfer while the other one
// streams.
type Scheduler struct {
	dma     *DMAController
	timing  *Timing
	backend Backend
	frames  *FrameExchange

	pong bool

	cur     int
	holding bool

	// The exchange lock was busy: the held frame still has to be given
	// back, or the frame switch of this pass is still to be made.
	dropping bool
	acquire  bool

	// Requested screen mode, applied at the next frame boundary.
	mode atomic.Int32
}

// NewScheduler connects the pieces and installs HandleIRQ on dma.
func NewScheduler(dma *DMAController, timing *Timing, backend Backend, frames *FrameExchange) *Scheduler {
	s := &Scheduler{
		dma:     dma,
		timing:  timing,
		backend: backend,
		frames:  frames,
	}
	s.mode.Store(int32(backend.ScreenMode()))
	dma.SetIRQHandler(s.HandleIRQ)
	return s
}

// Start queues the first two lines on both channels and triggers ping.
func (s *Scheduler) Start() {
	s.dma.Stop()
	s.release()
	s.backend.Reset()
	s.timing.Reset()
	s.pong = false
	for ch := 0; ch < 2; ch++ {
		st := Step{State: s.timing.StateAt(ch), Line: ch, ActiveLine: -1, Begin: true}
		s.dma.Program(ch, s.backend.Descriptor(ch, st, nil))
	}
	s.dma.Start(0)
}

// Stop halts both channels and gives back the frame being displayed.
func (s *Scheduler) Stop() {
	s.dma.Stop()
	s.release()
}

// Running reports whether the output is streaming.
func (s *Scheduler) Running() bool {
	return s.dma.Running()
}

// HandleIRQ services one DMA completion. It is O(1) apart from encoding
// a single line, never waits on a lock and never allocates. A frame
// handoff that finds the FrameExchange busy is retried on the next
// completion.
func (s *Scheduler) HandleIRQ() {
	ch := 0
	if s.pong {
		ch = 1
	}
	s.dma.Ack(ch)
	s.pong = !s.pong

	st := s.timing.Next()
	if st.Line == 0 {
		if m := ScreenMode(s.mode.Load()); m != s.backend.ScreenMode() {
			s.backend.SetScreenMode(m)
		}
	}
	if s.timing.FirstActive(st) {
		s.drop()
		s.acquire = true
	}
	s.handoff(st.ActiveLine >= 0)

	var fb *Framebuffer
	if s.holding && !s.dropping {
		fb = s.frames.Frame(s.cur)
	}
	s.dma.Program(ch, s.backend.Descriptor(ch, st, fb))

	if s.timing.LastActive(st) {
		s.acquire = false
		s.drop()
	}
	if st.Begin {
		s.backend.OnLine(st)
	}
}

// drop gives back the displayed frame, or leaves it marked for a later
// completion when the exchange is busy.
func (s *Scheduler) drop() {
	if s.holding {
		s.dropping = true
	}
	s.handoff(false)
}

// handoff finishes pending frame exchange work without waiting. A new
// frame is only taken on an active line.
func (s *Scheduler) handoff(active bool) {
	if s.dropping {
		if !s.frames.TryRelease(s.cur) {
			return
		}
		s.holding, s.dropping = false, false
	}
	if s.acquire && active {
		id, ok, busy := s.frames.TryAcquireForRender()
		if busy {
			return
		}
		s.cur, s.holding, s.acquire = id, ok, false
	}
}

// release gives back the displayed frame, waiting for the lock. Not for
// use from HandleIRQ.
func (s *Scheduler) release() {
	if s.holding {
		s.frames.Release(s.cur)
	}
	s.holding, s.dropping, s.acquire = false, false, false
}

// SetScreenMode requests a new screen mode. Safe from any goroutine; the
// change takes effect at the start of the next frame.
func (s *Scheduler) SetScreenMode(m ScreenMode) {
	s.mode.Store(int32(m))
}

// ScreenMode returns the requested screen mode.
func (s *Scheduler) ScreenMode() ScreenMode {
	return ScreenMode(s.mode.Load())
}

// Frames returns the number of complete rasters output.
func (s *Scheduler) Frames() uint64 {
	return s.timing.Frames()
}

// RunFrame services completions until the raster wraps once. It is the
// consumer's main loop body when no real DMA hardware runs it.
func (s *Scheduler) RunFrame() {
	start := s.timing.Frames()
	for s.timing.Frames() == start {
		if !s.dma.Step() {
			return
		}
	}
}
