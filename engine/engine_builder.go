package engine

import (
	"io"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-spring/engine/backend"
	"github.com/Carmen-Shannon/oxy-spring/engine/clock"
	"github.com/Carmen-Shannon/oxy-spring/engine/config"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithConfig replaces the default configuration. A config file given with WithConfigFile wins.
//
// Parameters:
//   - c: the configuration
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(c config.Config) EngineBuilderOption {
	return func(e *engine) {
		e.cfg = c
	}
}

// WithConfigFile loads the configuration from path.
//
// Parameters:
//   - path: a config file in any format argus can parse
//   - watch: if true, edits to the file are applied while the engine runs
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfigFile(path string, watch bool) EngineBuilderOption {
	return func(e *engine) {
		e.configPath = path
		e.watchConfig = watch
	}
}

// WithProfiling enables or disables performance profiling output.
// Applied after WithConfig, it overrides the configured value.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.cfg.Profiling = enabled
	}
}

// WithProfileOutput sets where JSON profiler reports are written when profile_json is set.
//
// Parameters:
//   - w: the destination writer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfileOutput(w io.Writer) EngineBuilderOption {
	return func(e *engine) {
		e.profileOut = w
	}
}

// WithTickRate sets the ticker frame rate in frames per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps int) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = clock.DefaultFPS
		}
		e.cfg.TickRate = fps
	}
}

// WithFrameSource sets a custom frame source rather than allowing the engine to create one.
// The engine stops but does not otherwise release a source passed here.
//
// Parameters:
//   - s: the frame source
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameSource(s clock.FrameSource) EngineBuilderOption {
	return func(e *engine) {
		e.source = s
		e.ownsSource = false
	}
}

// WithBackend sets a custom execution backend. The engine does not release a backend passed here.
//
// Parameters:
//   - b: the backend
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithBackend(b backend.Backend) EngineBuilderOption {
	return func(e *engine) {
		e.backend = b
		e.ownsBackend = false
	}
}

// WithLogger installs l as the process-wide logger used by every engine package.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(l *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		e.logger = l
	}
}
