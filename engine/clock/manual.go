package clock

import "sync"

// Manual is a FrameSource advanced explicitly by the caller. Dispatched functions are held until
// the next Advance or Drain, which makes asynchronous completion order deterministic in tests.
type Manual struct {
	mu      *sync.Mutex
	onFrame func(dt float32)
	running bool
	pending []func()
	starts  int
	stops   int
}

var _ FrameSource = &Manual{}

// NewManual creates a stopped Manual source.
//
// Returns:
//   - *Manual: the source
func NewManual() *Manual {
	return &Manual{mu: &sync.Mutex{}}
}

func (m *Manual) Start(onFrame func(dt float32)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.onFrame = onFrame
	m.starts++
}

func (m *Manual) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	m.stops++
}

func (m *Manual) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manual) Dispatch(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, fn)
}

// Pending returns the number of dispatched functions not yet run.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Starts returns how many times the source went from stopped to running.
func (m *Manual) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

// Stops returns how many times the source went from running to stopped.
func (m *Manual) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

// Drain runs every dispatched function in FIFO order, including ones dispatched while draining.
//
// Returns:
//   - int: the number of functions run
func (m *Manual) Drain() int {
	n := 0
	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.mu.Unlock()
			return n
		}
		fn := m.pending[0]
		m.pending = m.pending[1:]
		m.mu.Unlock()

		fn()
		n++
	}
}

// Advance drains dispatched functions and then delivers one frame of dt seconds if running.
//
// Parameters:
//   - dt: the frame delta in seconds
//
// Returns:
//   - bool: true if a frame was delivered
func (m *Manual) Advance(dt float32) bool {
	m.Drain()

	m.mu.Lock()
	running, onFrame := m.running, m.onFrame
	m.mu.Unlock()

	if !running {
		return false
	}
	onFrame(dt)
	return true
}

// AdvanceN calls Advance n times.
//
// Parameters:
//   - n: number of frames
//   - dt: the frame delta in seconds
//
// Returns:
//   - int: the number of frames actually delivered
func (m *Manual) AdvanceN(n int, dt float32) int {
	delivered := 0
	for range n {
		if m.Advance(dt) {
			delivered++
		}
	}
	return delivered
}
