package profiler

import "github.com/Carmen-Shannon/oxy-spring/engine/clock"

// FrameSource is the frame source a Profiler can instrument.
type FrameSource = clock.FrameSource

// Source is a frame source that reports every delivered frame to a Profiler.
type Source struct {
	FrameSource
	profiler *Profiler
}

var _ clock.FrameSource = &Source{}

// Start begins delivering frames to onFrame, ticking the profiler after each one.
//
// Parameters:
//   - onFrame: callback receiving the frame delta in seconds
func (s *Source) Start(onFrame func(dt float32)) {
	s.FrameSource.Start(func(dt float32) {
		onFrame(dt)
		s.profiler.Tick()
	})
}
