// Package display provides a frame source paced by the display's vertical refresh.
package display

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-spring/common"
	"github.com/Carmen-Shannon/oxy-spring/engine/clock"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// DisplayLink is a FrameSource that fires once per display refresh.
//
// It owns a hidden GLFW window with a swap interval of one, so every buffer swap blocks until the
// next vertical blank. All GLFW calls, frame callbacks and dispatched functions run on one goroutine
// locked to its OS thread.
type DisplayLink struct {
	mu      *sync.Mutex
	running bool
	onFrame func(dt float32)

	title        string
	swapInterval int
	refreshRate  int

	wake      chan struct{}
	dispatch  chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ clock.FrameSource = &DisplayLink{}

// NewDisplayLink initializes GLFW on a dedicated thread and creates the hidden pacing window.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
//
// Parameters:
//   - options: functional options to configure the display link
//
// Returns:
//   - *DisplayLink: the stopped display link
//   - error: error if GLFW or the window could not be initialized
func NewDisplayLink(options ...DisplayLinkOption) (*DisplayLink, error) {
	d := &DisplayLink{
		mu:           &sync.Mutex{},
		title:        "oxy-spring",
		swapInterval: 1,
		wake:         make(chan struct{}, 1),
		dispatch:     make(chan func(), 64),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range options {
		opt(d)
	}

	ready := make(chan error, 1)
	go d.loop(ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DisplayLink) Start(onFrame func(dt float32)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}
	d.running = true
	d.onFrame = onFrame

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *DisplayLink) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
}

func (d *DisplayLink) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Dispatch queues fn for the display goroutine. After Close, fn runs on the caller's goroutine.
func (d *DisplayLink) Dispatch(fn func()) {
	select {
	case <-d.done:
		fn()
		return
	default:
	}

	select {
	case d.dispatch <- fn:
		return
	default:
	}

	// the queue is full and the display goroutine may be the caller
	go func() {
		select {
		case d.dispatch <- fn:
		case <-d.done:
			fn()
		}
	}()
}

// RefreshRate returns the primary monitor's refresh rate in Hz, or 0 if it is unknown.
//
// Returns:
//   - int: the refresh rate
func (d *DisplayLink) RefreshRate() int {
	return d.refreshRate
}

// Close stops frame delivery, destroys the window and terminates GLFW.
// Functions dispatched before Close still run.
func (d *DisplayLink) Close() {
	d.closeOnce.Do(func() {
		d.Stop()
		close(d.quit)
		<-d.done
	})
}

// loop owns the GLFW thread. It reports initialization on ready, then alternates between waiting
// for Start or dispatched work while stopped and swapping buffers while running.
func (d *DisplayLink) loop(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(d.done)

	win, err := d.createWindow()
	if err != nil {
		ready <- err
		return
	}
	ready <- nil
	defer func() {
		win.Destroy()
		glfw.Terminate()
	}()

	last := glfw.GetTime()
	for {
		d.drain()

		d.mu.Lock()
		running, onFrame := d.running, d.onFrame
		d.mu.Unlock()

		if !running {
			select {
			case <-d.quit:
				d.drain()
				return
			case fn := <-d.dispatch:
				fn()
			case <-d.wake:
				last = glfw.GetTime()
			}
			continue
		}

		select {
		case <-d.quit:
			d.drain()
			return
		default:
		}

		// blocks until the next vertical blank
		win.SwapBuffers()
		glfw.PollEvents()

		now := glfw.GetTime()
		dt := float32(now - last)
		last = now
		onFrame(dt)
	}
}

// drain runs the dispatched functions queued so far.
func (d *DisplayLink) drain() {
	for range len(d.dispatch) {
		(<-d.dispatch)()
	}
}

func (d *DisplayLink) createWindow() (*glfw.Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	// a tiny invisible window with a GL context exists only to own the swap chain
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	win, err := glfw.CreateWindow(1, 1, d.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}

	win.MakeContextCurrent()
	glfw.SwapInterval(d.swapInterval)

	if monitor := glfw.GetPrimaryMonitor(); monitor != nil {
		if mode := monitor.GetVideoMode(); mode != nil {
			d.refreshRate = mode.RefreshRate
		}
	}
	common.Logger().Info("display link ready", "refresh_hz", d.refreshRate, "swap_interval", d.swapInterval)
	return win, nil
}
