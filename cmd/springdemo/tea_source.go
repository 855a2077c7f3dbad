package main

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-spring/engine/clock"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
)

// frameMsg is delivered by tea.Tick once per frame interval.
type frameMsg time.Time

// teaSource is a clock.FrameSource driven by the bubbletea program loop. Frames and dispatched
// functions run inside Update, so the engine never touches the model concurrently with View.
type teaSource struct {
	mu       *sync.Mutex
	onFrame  func(dt float32)
	running  bool
	closed   bool
	pending  []func()
	interval time.Duration
	last     time.Time
}

var _ clock.FrameSource = &teaSource{}

func newTeaSource(fps int) *teaSource {
	s := &teaSource{mu: &sync.Mutex{}}
	s.SetTickRate(fps)
	return s
}

func (s *teaSource) Start(onFrame func(dt float32)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.onFrame = onFrame
	s.last = time.Time{}
}

func (s *teaSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

func (s *teaSource) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Dispatch queues fn for the next frame message. Once the program has exited fn runs inline.
func (s *teaSource) Dispatch(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fn()
		return
	}
	s.pending = append(s.pending, fn)
	s.mu.Unlock()
}

// SetTickRate changes the frame interval used for the next scheduled frame.
func (s *teaSource) SetTickRate(fps int) {
	if fps <= 0 {
		fps = clock.DefaultFPS
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = time.Duration(harmonica.FPS(fps) * float64(time.Second))
}

// deltaTime returns the frame interval in seconds.
func (s *teaSource) deltaTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval.Seconds()
}

// tick schedules the next frame message.
func (s *teaSource) tick() tea.Cmd {
	s.mu.Lock()
	interval := s.interval
	s.mu.Unlock()

	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// frame runs the dispatched functions, then delivers one frame if the source is running.
func (s *teaSource) frame(now time.Time) {
	s.drain()

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	dt := s.interval
	if !s.last.IsZero() {
		dt = now.Sub(s.last)
	}
	s.last = now
	onFrame := s.onFrame
	s.mu.Unlock()

	onFrame(float32(dt.Seconds()))
}

// close marks the program as gone and runs everything still queued.
func (s *teaSource) close() {
	s.mu.Lock()
	s.closed = true
	s.running = false
	s.mu.Unlock()
	s.drain()
}

func (s *teaSource) drain() {
	for {
		s.mu.Lock()
		pending := s.pending
		s.pending = nil
		s.mu.Unlock()

		if len(pending) == 0 {
			return
		}
		for _, fn := range pending {
			fn()
		}
	}
}
