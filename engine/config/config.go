// Package config loads, validates, saves and hot-reloads engine settings.
//
// Files are flat key/value documents in any format argus can parse (YAML, JSON, TOML, HCL, INI,
// properties); keys are the yaml tags of Config.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-spring/engine/backend"
	"github.com/agilira/argus"
	"github.com/agilira/go-errors"
	"go.yaml.in/yaml/v3"
)

// ErrCodeInvalidConfig tags every parse, bind and validation failure.
const ErrCodeInvalidConfig = "SPRING_INVALID_CONFIG"

// Config holds every tunable of the engine.
type Config struct {
	// Backend is one of auto, sequential, parallel, gpu.
	Backend string `yaml:"backend"`
	// Workers is the parallel backend pool size; 0 picks NumCPU-1.
	Workers int `yaml:"workers"`
	// ChunkSize is the minimum records per parallel task.
	ChunkSize int `yaml:"chunk_size"`
	// ForceFallbackAdapter requests the software wgpu adapter.
	ForceFallbackAdapter bool `yaml:"force_fallback_adapter"`

	// InitialCapacity is the slot buffer size on start and after idling.
	InitialCapacity int `yaml:"initial_capacity"`
	// TickRate is the frame rate of the ticker frame source.
	TickRate int `yaml:"tick_rate"`
	// VSync drives frames from the display refresh instead of the ticker.
	VSync bool `yaml:"vsync"`

	// Stiffness, Damping and Threshold are the spring defaults.
	Stiffness float64 `yaml:"stiffness"`
	Damping   float64 `yaml:"damping"`
	Threshold float64 `yaml:"threshold"`

	// Profiling enables periodic stats output.
	Profiling bool `yaml:"profiling"`
	// ProfileInterval is the stats period.
	ProfileInterval time.Duration `yaml:"-"`
	// ProfileJSON emits stats as JSON lines instead of log records.
	ProfileJSON bool `yaml:"profile_json"`
}

// fileConfig is the on-disk shape of Config; durations are written as strings.
type fileConfig struct {
	Config          `yaml:",inline"`
	ProfileInterval string `yaml:"profile_interval"`
}

// Default returns the built-in configuration.
//
// Returns:
//   - Config: defaults matching the engine packages
func Default() Config {
	return Config{
		Backend:         backend.BackendTypeAuto.String(),
		Workers:         0,
		ChunkSize:       backend.DefaultChunkSize,
		InitialCapacity: 2,
		TickRate:        60,
		Stiffness:       150,
		Damping:         10,
		Threshold:       0.01,
		ProfileInterval: time.Second,
	}
}

// Load reads a configuration file. Keys missing from the file keep their Default values.
//
// Parameters:
//   - path: the file to read; the format is detected from the extension
//
// Returns:
//   - Config: the loaded and validated configuration
//   - error: an ErrCodeInvalidConfig error on read, parse, bind or validation failure
func Load(path string) (Config, error) {
	format := argus.DetectFormat(path)
	if format == argus.FormatUnknown {
		return Config{}, errors.New(ErrCodeInvalidConfig, fmt.Sprintf("unsupported config format: %s", path))
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path is chosen by the operator
	if err != nil {
		return Config{}, errors.Wrap(err, ErrCodeInvalidConfig, "failed to read config file")
	}

	m, err := argus.ParseConfig(data, format)
	if err != nil {
		return Config{}, errors.Wrap(err, ErrCodeInvalidConfig, fmt.Sprintf("failed to parse %s config", format))
	}

	return FromMap(m, Default())
}

// FromMap binds a parsed key/value map over base and validates the result.
//
// Parameters:
//   - m: the parsed configuration map
//   - base: values used for keys missing from m
//
// Returns:
//   - Config: the bound configuration
//   - error: an ErrCodeInvalidConfig error on bind or validation failure
func FromMap(m map[string]interface{}, base Config) (Config, error) {
	c := base
	err := argus.BindFromConfig(m).
		BindString(&c.Backend, "backend", base.Backend).
		BindInt(&c.Workers, "workers", base.Workers).
		BindInt(&c.ChunkSize, "chunk_size", base.ChunkSize).
		BindBool(&c.ForceFallbackAdapter, "force_fallback_adapter", base.ForceFallbackAdapter).
		BindInt(&c.InitialCapacity, "initial_capacity", base.InitialCapacity).
		BindInt(&c.TickRate, "tick_rate", base.TickRate).
		BindBool(&c.VSync, "vsync", base.VSync).
		BindFloat64(&c.Stiffness, "stiffness", base.Stiffness).
		BindFloat64(&c.Damping, "damping", base.Damping).
		BindFloat64(&c.Threshold, "threshold", base.Threshold).
		BindBool(&c.Profiling, "profiling", base.Profiling).
		BindDuration(&c.ProfileInterval, "profile_interval", base.ProfileInterval).
		BindBool(&c.ProfileJSON, "profile_json", base.ProfileJSON).
		Apply()
	if err != nil {
		return Config{}, errors.Wrap(err, ErrCodeInvalidConfig, "failed to bind config")
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks every field for a usable value.
//
// Returns:
//   - error: an ErrCodeInvalidConfig error naming the first bad field, or nil
func (c Config) Validate() error {
	if _, err := backend.ParseBackendType(c.Backend); err != nil {
		return errors.Wrap(err, ErrCodeInvalidConfig, "invalid backend")
	}

	switch {
	case c.Workers < 0:
		return invalid("workers must be >= 0, got %d", c.Workers)
	case c.ChunkSize < 1:
		return invalid("chunk_size must be >= 1, got %d", c.ChunkSize)
	case c.InitialCapacity < 1:
		return invalid("initial_capacity must be >= 1, got %d", c.InitialCapacity)
	case c.TickRate < 1:
		return invalid("tick_rate must be >= 1, got %d", c.TickRate)
	case c.Stiffness <= 0:
		return invalid("stiffness must be > 0, got %g", c.Stiffness)
	case c.Damping < 0:
		return invalid("damping must be >= 0, got %g", c.Damping)
	case c.Threshold <= 0:
		return invalid("threshold must be > 0, got %g", c.Threshold)
	case c.Profiling && c.ProfileInterval <= 0:
		return invalid("profile_interval must be > 0 when profiling, got %s", c.ProfileInterval)
	}
	return nil
}

// BackendType returns the parsed Backend field.
//
// Returns:
//   - backend.BackendType: the backend type, BackendTypeAuto if Backend is invalid
func (c Config) BackendType() backend.BackendType {
	t, _ := backend.ParseBackendType(c.Backend)
	return t
}

// Save writes the configuration as YAML.
//
// Parameters:
//   - path: destination file, created or truncated
//
// Returns:
//   - error: an error if the config is invalid or the file cannot be written
func (c Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	data, err := c.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Encode renders the configuration as a commented YAML document.
//
// Returns:
//   - []byte: the document
//   - error: an error if encoding failed
func (c Config) Encode() ([]byte, error) {
	body, err := yaml.Marshal(fileConfig{Config: c, ProfileInterval: c.ProfileInterval.String()})
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "failed to encode config")
	}
	header := "# oxy-spring engine configuration\n# backend: auto | sequential | parallel | gpu\n"
	return append([]byte(header), body...), nil
}

func invalid(format string, args ...any) error {
	return errors.New(ErrCodeInvalidConfig, fmt.Sprintf(format, args...))
}
