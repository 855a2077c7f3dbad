// Package engine wires configuration, a frame source, an execution backend, the spring animator and
// the profiler into one object.
package engine

import (
	"io"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-spring/common"
	"github.com/Carmen-Shannon/oxy-spring/engine/animator"
	"github.com/Carmen-Shannon/oxy-spring/engine/backend"
	"github.com/Carmen-Shannon/oxy-spring/engine/clock"
	"github.com/Carmen-Shannon/oxy-spring/engine/config"
	"github.com/Carmen-Shannon/oxy-spring/engine/display"
	"github.com/Carmen-Shannon/oxy-spring/engine/profiler"
)

// engine implements the Engine interface.
type engine struct {
	animator.Animator

	mu  *sync.Mutex
	cfg config.Config

	configPath  string
	watchConfig bool
	watcher     *config.Watcher

	logger *slog.Logger

	source      clock.FrameSource
	ownsSource  bool
	displayLink *display.DisplayLink

	backend     backend.Backend
	ownsBackend bool

	profiler   *profiler.Profiler
	profileOut io.Writer

	quit     chan struct{}
	quitOnce sync.Once
}

// Engine animates properties with damped springs.
//
// Engine is an animator.Animator: Animate, Remove and the rest are served by the animator it owns.
// It also owns everything the animator depends on and tears it all down in Close.
type Engine interface {
	animator.Animator

	// Config returns the configuration currently in effect.
	//
	// Returns:
	//   - config.Config: the configuration
	Config() config.Config

	// ApplyConfig applies the hot-reloadable part of c: spring defaults, tick rate and profiling.
	// Backend, worker and capacity settings only take effect on the next NewEngine.
	//
	// Parameters:
	//   - c: the new configuration, must be valid
	//
	// Returns:
	//   - error: an ErrCodeInvalidConfig error if c does not validate
	ApplyConfig(c config.Config) error

	// FrameSource returns the frame source driving the animator.
	//
	// Returns:
	//   - clock.FrameSource: the underlying frame source
	FrameSource() clock.FrameSource

	// Profiler returns the profiler.
	//
	// Returns:
	//   - *profiler.Profiler: the profiler, disabled unless profiling is configured
	Profiler() *profiler.Profiler

	// EnableProfiler enables periodic stats output.
	EnableProfiler()

	// DisableProfiler disables periodic stats output.
	DisableProfiler()

	// Run blocks until Quit is called, then closes the engine.
	Run()

	// Quit signals Run to return. Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates an Engine. Unset pieces are built from the configuration: a display link when
// vsync is on (falling back to a ticker if no display is available), a ticker otherwise, and the
// configured backend with GPU completions dispatched onto the frame source.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if the configuration is invalid or an explicitly requested backend is unavailable
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		mu:   &sync.Mutex{},
		cfg:  config.Default(),
		quit: make(chan struct{}),
	}
	for _, opt := range options {
		opt(e)
	}

	if e.logger != nil {
		common.SetLogger(e.logger)
	}

	if e.configPath != "" {
		cfg, err := config.Load(e.configPath)
		if err != nil {
			return nil, err
		}
		e.cfg = cfg
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	if e.source == nil {
		e.source = e.newFrameSource()
		e.ownsSource = true
	}

	if e.backend == nil {
		b, err := backend.NewBackend(
			backend.WithBackendType(e.cfg.BackendType()),
			backend.WithWorkers(e.cfg.Workers),
			backend.WithChunkSize(e.cfg.ChunkSize),
			backend.WithForceFallbackAdapter(e.cfg.ForceFallbackAdapter),
			backend.WithDispatcher(e.source),
		)
		if err != nil {
			e.releaseSource()
			return nil, err
		}
		e.backend = b
		e.ownsBackend = true
	}

	profilerOptions := []profiler.ProfilerOption{
		profiler.WithEnabled(e.cfg.Profiling),
		profiler.WithInterval(e.cfg.ProfileInterval),
		profiler.WithStats(func() animator.Stats { return e.Stats() }),
	}
	if e.cfg.ProfileJSON && e.profileOut != nil {
		profilerOptions = append(profilerOptions, profiler.WithJSON(e.profileOut))
	}

	// stats are first read on the first report, after the animator below exists
	e.profiler = profiler.NewProfiler(profilerOptions...)
	e.Animator = animator.NewAnimator(
		animator.WithBackend(e.backend),
		animator.WithFrameSource(e.profiler.Wrap(e.source)),
		animator.WithInitialCapacity(e.cfg.InitialCapacity),
		animator.WithDefaults(springParams(e.cfg)),
	)

	if e.watchConfig && e.configPath != "" {
		w, err := config.Watch(e.configPath, func(c config.Config) {
			if err := e.ApplyConfig(c); err != nil {
				common.Logger().Warn("config not applied", "error", err)
			}
		})
		if err != nil {
			common.Logger().Warn("config watch unavailable", "path", e.configPath, "error", err)
		} else {
			e.watcher = w
		}
	}

	common.Logger().Info("spring engine ready",
		"backend", e.backend.Type().String(),
		"vsync", e.displayLink != nil,
		"tick_rate", e.cfg.TickRate,
		"profiling", e.cfg.Profiling,
	)
	return e, nil
}

func (e *engine) Config() config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

func (e *engine) ApplyConfig(c config.Config) error {
	if err := c.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	prev := e.cfg
	e.cfg = c
	e.mu.Unlock()

	e.SetDefaults(springParams(c))
	if t, ok := e.source.(*clock.Ticker); ok && c.TickRate != prev.TickRate {
		t.SetTickRate(c.TickRate)
	}
	if c.Profiling {
		e.profiler.Enable()
	} else {
		e.profiler.Disable()
	}

	if c.BackendType() != prev.BackendType() || c.Workers != prev.Workers || c.VSync != prev.VSync {
		common.Logger().Warn("backend and frame source changes take effect on restart",
			"backend", c.Backend, "workers", c.Workers, "vsync", c.VSync)
	}
	return nil
}

func (e *engine) FrameSource() clock.FrameSource {
	return e.source
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *engine) EnableProfiler() {
	e.profiler.Enable()
}

func (e *engine) DisableProfiler() {
	e.profiler.Disable()
}

func (e *engine) Run() {
	<-e.quit
	e.Close()
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quit)
	})
}

// Close stops the config watcher, cancels every spring and releases what the engine created.
func (e *engine) Close() {
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			common.Logger().Debug("config watcher close", "error", err)
		}
		e.watcher = nil
	}

	e.Animator.Close()
	if e.ownsBackend {
		e.backend.Release()
		e.ownsBackend = false
	}
	e.releaseSource()
	e.Quit()
}

func (e *engine) newFrameSource() clock.FrameSource {
	if e.cfg.VSync {
		d, err := display.NewDisplayLink()
		if err == nil {
			e.displayLink = d
			return d
		}
		common.Logger().Warn("vsync unavailable, using ticker", "error", err)
	}
	return clock.NewTicker(clock.WithTickRate(e.cfg.TickRate))
}

func (e *engine) releaseSource() {
	if !e.ownsSource {
		return
	}
	e.source.Stop()
	if e.displayLink != nil {
		e.displayLink.Close()
		e.displayLink = nil
	}
	e.ownsSource = false
}

func springParams(c config.Config) animator.SpringParams {
	return animator.SpringParams{
		Stiffness: float32(c.Stiffness),
		Damping:   float32(c.Damping),
		Threshold: float32(c.Threshold),
	}
}
