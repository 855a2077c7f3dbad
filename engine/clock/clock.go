// Package clock provides the per-frame tick sources that drive the animation scheduler.
package clock

// FrameSource fires a callback once per frame with the elapsed seconds since the previous frame.
// The scheduler attaches itself with Start when the first spring is added and detaches with Stop
// when no springs remain; a source must accept Stop and Start from inside its own callback.
type FrameSource interface {
	// Start begins delivering frames to onFrame. A no-op if the source is already running.
	//
	// Parameters:
	//   - onFrame: callback receiving the frame delta in seconds
	Start(onFrame func(dt float32))

	// Stop stops delivering frames. A no-op if the source is not running. Never blocks on the
	// frame goroutine, so it is safe to call from onFrame.
	Stop()

	// Running reports whether frames are being delivered.
	//
	// Returns:
	//   - bool: true between Start and Stop
	Running() bool

	// Dispatch runs fn on the frame goroutine, serialized with frame callbacks.
	// When the source is stopped fn still runs, serialized with any other dispatched function.
	//
	// Parameters:
	//   - fn: the function to run
	Dispatch(fn func())
}
