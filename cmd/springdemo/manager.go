package main

import (
	"github.com/agilira/orpheus/pkg/orpheus"
)

// Manager holds the springdemo command tree.
type Manager struct {
	app *orpheus.App
}

// NewManager builds the springdemo application and its commands.
func NewManager() *Manager {
	app := orpheus.New("springdemo").
		SetDescription("Damped-spring animation engine demo").
		SetVersion("0.1.0")

	m := &Manager{app: app}
	m.setupRunCommand()
	m.setupBenchCommand()
	m.setupConfigCommands()
	return m
}

// Run executes the command named by args.
func (m *Manager) Run(args []string) error {
	return m.app.Run(args)
}

func (m *Manager) setupRunCommand() {
	// run [--config=file] [--springs=12] [--backend=...] [--fps=0]
	runCmd := orpheus.NewCommand("run", "Animate bars in the terminal").
		AddFlag("config", "c", "", "Config file, hot-reloaded while running").
		AddFlag("backend", "b", "", "Backend override (auto|sequential|parallel|gpu)").
		AddIntFlag("springs", "n", 12, "Number of animated bars").
		AddIntFlag("fps", "f", 0, "Frame rate override, 0 keeps the configured rate").
		AddBoolFlag("profile", "p", false, "Log profiler stats to stderr").
		SetHandler(m.handleRun)
	m.app.AddCommand(runCmd)
}

func (m *Manager) setupBenchCommand() {
	// bench [--springs=10000] [--ticks=600] [--workers=0] [--chunk=256] [--gpu]
	benchCmd := orpheus.NewCommand("bench", "Compare backends for speed and agreement").
		AddIntFlag("springs", "n", 10000, "Number of springs").
		AddIntFlag("ticks", "t", 600, "Number of 60Hz steps").
		AddIntFlag("workers", "w", 0, "Parallel workers, 0 picks NumCPU-1").
		AddIntFlag("chunk", "k", 256, "Minimum springs per parallel task").
		AddBoolFlag("gpu", "g", false, "Include the GPU backend").
		SetHandler(m.handleBench)
	m.app.AddCommand(benchCmd)
}

func (m *Manager) setupConfigCommands() {
	configCmd := orpheus.NewCommand("config", "Configuration file operations")

	// config init <file> [--force]
	initCmd := configCmd.Subcommand("init", "Write a default configuration file", m.handleConfigInit)
	initCmd.AddBoolFlag("force", "", false, "Overwrite an existing file")

	// config validate <file>
	configCmd.Subcommand("validate", "Load and validate a configuration file", m.handleConfigValidate)

	m.app.AddCommand(configCmd)
}
