package profiler

import (
	"io"
	"time"

	"github.com/Carmen-Shannon/oxy-spring/engine/animator"
)

// ProfilerOption is a functional option used to configure a Profiler during construction.
type ProfilerOption func(*Profiler)

// WithInterval sets the reporting period.
//
// Parameters:
//   - d: the period, values <= 0 are ignored
//
// Returns:
//   - ProfilerOption: option function to apply
func WithInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithStats sets the scheduler counters included in each report.
//
// Parameters:
//   - fn: returns the current counters, typically Animator.Stats
//
// Returns:
//   - ProfilerOption: option function to apply
func WithStats(fn func() animator.Stats) ProfilerOption {
	return func(p *Profiler) {
		p.stats = fn
	}
}

// WithJSON writes each report as one JSON line to w instead of logging it.
//
// Parameters:
//   - w: the destination writer
//
// Returns:
//   - ProfilerOption: option function to apply
func WithJSON(w io.Writer) ProfilerOption {
	return func(p *Profiler) {
		p.out = w
	}
}

// WithReportHandler calls fn with every report after it is emitted.
//
// Parameters:
//   - fn: the report handler
//
// Returns:
//   - ProfilerOption: option function to apply
func WithReportHandler(fn func(Report)) ProfilerOption {
	return func(p *Profiler) {
		p.onReport = fn
	}
}

// WithEnabled sets whether the profiler starts collecting immediately. Defaults to true.
//
// Parameters:
//   - enabled: the initial state
//
// Returns:
//   - ProfilerOption: option function to apply
func WithEnabled(enabled bool) ProfilerOption {
	return func(p *Profiler) {
		p.enabled = enabled
	}
}
