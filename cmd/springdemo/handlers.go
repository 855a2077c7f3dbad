package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-spring/common"
	"github.com/Carmen-Shannon/oxy-spring/engine"
	"github.com/Carmen-Shannon/oxy-spring/engine/backend"
	"github.com/Carmen-Shannon/oxy-spring/engine/config"
	"github.com/agilira/go-errors"
	"github.com/agilira/orpheus/pkg/orpheus"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrCodeUsage tags bad command-line input.
const ErrCodeUsage = "SPRINGDEMO_USAGE"

func (m *Manager) handleRun(ctx *orpheus.Context) error {
	springs := ctx.GetFlagInt("springs")
	if springs < 1 {
		return errors.New(ErrCodeUsage, fmt.Sprintf("springs must be >= 1, got %d", springs))
	}

	// flag overrides are reapplied to every reloaded file
	override := func(c config.Config) config.Config {
		if b := ctx.GetFlagString("backend"); b != "" {
			c.Backend = b
		}
		if fps := ctx.GetFlagInt("fps"); fps > 0 {
			c.TickRate = fps
		}
		if ctx.GetFlagBool("profile") {
			c.Profiling = true
		}
		// frames come from the terminal program, not a display
		c.VSync = false
		return c
	}

	cfg := config.Default()
	path := ctx.GetFlagString("config")
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg = override(cfg)

	level := slog.LevelWarn
	if cfg.Profiling {
		level = slog.LevelInfo
	}

	source := newTeaSource(cfg.TickRate)
	e, err := engine.NewEngine(
		engine.WithConfig(cfg),
		engine.WithFrameSource(source),
		engine.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))),
	)
	if err != nil {
		return err
	}
	defer e.Close()

	if path != "" {
		w, err := config.Watch(path, func(c config.Config) {
			c = override(c)
			if err := e.ApplyConfig(c); err != nil {
				common.Logger().Warn("config not applied", "error", err)
				return
			}
			source.SetTickRate(c.TickRate)
		})
		if err != nil {
			return err
		}
		defer w.Close()
	}

	p := tea.NewProgram(newBarsModel(e, source, springs), tea.WithAltScreen())
	_, err = p.Run()
	source.close()
	return err
}

func (m *Manager) handleBench(ctx *orpheus.Context) error {
	opts := benchOptions{
		springs:  ctx.GetFlagInt("springs"),
		ticks:    ctx.GetFlagInt("ticks"),
		workers:  ctx.GetFlagInt("workers"),
		chunk:    ctx.GetFlagInt("chunk"),
		backends: []backend.BackendType{backend.BackendTypeSequential, backend.BackendTypeParallel},
	}
	if ctx.GetFlagBool("gpu") {
		opts.backends = append(opts.backends, backend.BackendTypeGPU)
	}
	if opts.springs < 1 || opts.ticks < 1 {
		return errors.New(ErrCodeUsage, "springs and ticks must be >= 1")
	}

	results, err := runBench(opts)
	if err != nil {
		return err
	}
	fmt.Print(renderBench(opts, results))
	return nil
}

func (m *Manager) handleConfigInit(ctx *orpheus.Context) error {
	path := ctx.GetArg(0)
	if path == "" {
		return errors.New(ErrCodeUsage, "usage: springdemo config init <file>")
	}
	if _, err := os.Stat(path); err == nil && !ctx.GetFlagBool("force") {
		return errors.New(ErrCodeUsage, fmt.Sprintf("file already exists: %s (use --force)", path))
	}

	if err := config.Default().Save(path); err != nil {
		return err
	}
	fmt.Printf("Created configuration: %s\n", path)
	return nil
}

func (m *Manager) handleConfigValidate(ctx *orpheus.Context) error {
	path := ctx.GetArg(0)
	if path == "" {
		return errors.New(ErrCodeUsage, "usage: springdemo config validate <file>")
	}

	start := time.Now()
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	fmt.Printf("%s is valid (%s)\n", path, time.Since(start).Round(time.Microsecond))
	fmt.Printf("  backend=%s tick_rate=%d stiffness=%g damping=%g threshold=%g\n",
		cfg.BackendType(), cfg.TickRate, cfg.Stiffness, cfg.Damping, cfg.Threshold)
	return nil
}
