package config

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-spring/common"
	"github.com/agilira/argus"
)

// DefaultPollInterval is how often a watched file is checked for changes.
const DefaultPollInterval = time.Second

// Watcher reloads a configuration file whenever it changes.
type Watcher struct {
	mu      *sync.Mutex
	watcher *argus.Watcher
	current Config
}

// WatchOption is a functional option used to configure Watch.
type WatchOption func(*argus.Config)

// WithPollInterval sets how often the file is checked.
//
// Parameters:
//   - d: the poll interval
//
// Returns:
//   - WatchOption: option function to apply
func WithPollInterval(d time.Duration) WatchOption {
	return func(c *argus.Config) {
		c.PollInterval = d
	}
}

// WithAuditFile records every reload to a JSON lines audit trail at path.
//
// Parameters:
//   - path: the audit log file
//
// Returns:
//   - WatchOption: option function to apply
func WithAuditFile(path string) WatchOption {
	return func(c *argus.Config) {
		c.Audit = argus.AuditConfig{
			Enabled:       true,
			OutputFile:    path,
			MinLevel:      argus.AuditInfo,
			BufferSize:    64,
			FlushInterval: time.Second,
		}
	}
}

// Watch loads path and calls onChange with the initial configuration and again after every change
// that parses and validates. Invalid edits are logged and ignored; the last good config stays current.
//
// Parameters:
//   - path: the configuration file
//   - onChange: called with each accepted configuration
//   - options: functional options to configure the watcher
//
// Returns:
//   - *Watcher: the running watcher, stop it with Close
//   - error: an error if the file format is unsupported or the watcher cannot start
func Watch(path string, onChange func(Config), options ...WatchOption) (*Watcher, error) {
	cfg := argus.Config{
		PollInterval: DefaultPollInterval,
		// audit is off unless WithAuditFile is given
		Audit: argus.AuditConfig{Enabled: false, MinLevel: argus.AuditCritical},
		ErrorHandler: func(err error, filePath string) {
			common.Logger().Warn("config watch error", "path", filePath, "error", err)
		},
	}
	for _, opt := range options {
		opt(&cfg)
	}

	w := &Watcher{mu: &sync.Mutex{}, current: Default()}
	aw, err := argus.UniversalConfigWatcherWithConfig(path, func(m map[string]interface{}) {
		w.mu.Lock()
		next, err := FromMap(m, Default())
		if err != nil {
			w.mu.Unlock()
			common.Logger().Warn("config reload rejected", "path", path, "error", err)
			return
		}
		w.current = next
		w.mu.Unlock()

		common.Logger().Info("config reloaded", "path", path)
		onChange(next)
	}, cfg)
	if err != nil {
		return nil, err
	}
	w.watcher = aw
	return w, nil
}

// Current returns the last accepted configuration.
//
// Returns:
//   - Config: the configuration
func (w *Watcher) Current() Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Close stops watching.
//
// Returns:
//   - error: an error if the watcher was already stopped
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
