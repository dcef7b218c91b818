package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"oidcconfig/pkg/debounce"
)

// WatcherConfig configures a Watcher
type WatcherConfig struct {
	// Debounce groups the events of one save into a single reload
	Debounce time.Duration
	// OnChange receives every valid reloaded configuration
	OnChange func(next *Config) error
	// OnError receives load and apply failures. The configuration in effect
	// is kept.
	OnError func(error)
	// EnvVars applies environment overrides to reloaded configurations
	EnvVars bool
}

// Watcher reloads the configuration file when it is saved. Static settings
// are applied through OnChange; the other sections are only read at start-up,
// so changes to them are reported as needing a restart.
//
// The directory of the file is watched rather than the file itself, which
// keeps the watch alive across editors that save by rename and across the
// file being removed and created again.
type Watcher struct {
	path    string
	config  WatcherConfig
	fsw     *fsnotify.Watcher
	reloads *debounce.Debouncer
	logger  *slog.Logger

	mu      sync.Mutex
	current *Config

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher of the configuration file at path. current is
// the configuration in effect, reloads are compared against it.
func NewWatcher(path string, current *Config, config WatcherConfig, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	w := &Watcher{
		path:    absPath,
		config:  config,
		fsw:     fsw,
		current: current,
		logger:  logger.With("component", "config-watcher", "file", absPath),
		stopCh:  make(chan struct{}),
	}
	w.reloads = debounce.New(config.Debounce, w.reload)
	return w, nil
}

// Start begins watching for configuration changes
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.watchLoop()
	w.logger.Info("Configuration watcher started", "debounce", w.reloads.Delay())
}

// Stop stops the watcher and cancels a pending reload
func (w *Watcher) Stop() error {
	close(w.stopCh)
	w.wg.Wait()
	w.reloads.Stop()
	return w.fsw.Close()
}

// Current returns the configuration in effect
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Path returns the watched configuration file
func (w *Watcher) Path() string {
	return w.path
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", "error", err)
			w.fail(fmt.Errorf("watcher error: %w", err))

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Name != w.path {
		return
	}

	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		w.logger.Debug("Config file changed", "op", event.Op.String())
		w.reloads.Trigger()

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// A save by rename is followed by a Create of the path.
		w.logger.Warn("Config file removed, keeping the settings in effect", "op", event.Op.String())
	}
}

func (w *Watcher) reload() {
	next, err := NewLoader(w.path).WithEnvVars(w.config.EnvVars).Load()
	if err != nil {
		w.fail(fmt.Errorf("failed to load config: %w", err))
		return
	}

	if prev := w.Current(); prev != nil {
		if sections := restartRequired(prev, next); len(sections) > 0 {
			w.logger.Warn("Configuration changes take effect after a restart", "sections", sections)
		}
	}

	if w.config.OnChange != nil {
		if err := w.config.OnChange(next); err != nil {
			w.fail(fmt.Errorf("failed to apply config: %w", err))
			return
		}
	}

	w.mu.Lock()
	w.current = next
	w.mu.Unlock()
	w.logger.Info("Configuration reloaded", "settings", len(next.Settings))
}

func (w *Watcher) fail(err error) {
	w.logger.Error("Config reload failed", "error", err)
	if w.config.OnError != nil {
		w.config.OnError(err)
	}
}

// restartRequired lists the sections of next that differ from prev and are
// only read at start-up
func restartRequired(prev, next *Config) []string {
	sections := []struct {
		name       string
		prev, next any
	}{
		{"server", prev.Server, next.Server},
		{"profiles", prev.Profiles, next.Profiles},
		{"session", prev.Session, next.Session},
		{"selector", prev.Selector, next.Selector},
		{"instance", prev.Instance, next.Instance},
		{"telemetry", prev.Telemetry, next.Telemetry},
		{"metrics", prev.Metrics, next.Metrics},
		{"reload", prev.Reload, next.Reload},
	}

	var changed []string
	for _, s := range sections {
		if !reflect.DeepEqual(s.prev, s.next) {
			changed = append(changed, s.name)
		}
	}
	return changed
}
