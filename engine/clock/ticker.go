package clock

import (
	"sync"
	"time"
)

// Ticker is a FrameSource backed by a time.Ticker goroutine.
// Frame callbacks and dispatched functions run one at a time on the ticker goroutine.
type Ticker struct {
	mu       *sync.Mutex
	serial   *sync.Mutex
	interval time.Duration
	running  bool

	stop     chan struct{}
	rate     chan time.Duration
	dispatch chan func()
}

var _ FrameSource = &Ticker{}

// NewTicker creates a stopped Ticker.
//
// Parameters:
//   - options: functional options to configure the ticker
//
// Returns:
//   - *Ticker: the ticker
func NewTicker(options ...TickerOption) *Ticker {
	t := &Ticker{
		mu:       &sync.Mutex{},
		serial:   &sync.Mutex{},
		interval: DefaultInterval,
		rate:     make(chan time.Duration, 1),
		dispatch: make(chan func(), 64),
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func (t *Ticker) Start(onFrame func(dt float32)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return
	}
	t.running = true
	t.stop = make(chan struct{})
	go t.loop(onFrame, t.stop, t.interval)
}

func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	t.running = false
	close(t.stop)
}

func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Dispatch queues fn for the ticker goroutine. If the ticker is stopped or its queue is full,
// fn runs on a new goroutine, still serialized with frame callbacks.
func (t *Ticker) Dispatch(fn func()) {
	t.mu.Lock()
	if t.running {
		select {
		case t.dispatch <- fn:
			t.mu.Unlock()
			return
		default:
		}
	}
	t.mu.Unlock()

	go t.run(fn)
}

// Interval returns the frame interval.
//
// Returns:
//   - time.Duration: the configured interval
func (t *Ticker) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

// SetTickRate changes the frame rate. If the ticker is running the change takes effect immediately.
//
// Parameters:
//   - fps: target frames per second (defaults to 60 if <= 0)
func (t *Ticker) SetTickRate(fps int) {
	newRate := intervalForFPS(fps)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.interval = newRate
	if !t.running {
		return
	}

	// Non-blocking send - if the channel is full, replace the pending value
	select {
	case t.rate <- newRate:
	default:
		select {
		case <-t.rate:
		default:
		}
		t.rate <- newRate
	}
}

func (t *Ticker) run(fn func()) {
	t.serial.Lock()
	defer t.serial.Unlock()
	fn()
}

// loop fires onFrame at the configured interval until stop is closed. Dispatched functions queued
// before Stop are drained before the goroutine exits.
func (t *Ticker) loop(onFrame func(dt float32), stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-stop:
			for {
				select {
				case fn := <-t.dispatch:
					t.run(fn)
				default:
					return
				}
			}
		case now := <-ticker.C:
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			t.serial.Lock()
			onFrame(dt)
			t.serial.Unlock()
		case fn := <-t.dispatch:
			t.run(fn)
		case newRate := <-t.rate:
			ticker.Reset(newRate)
		}
	}
}
