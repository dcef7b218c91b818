package profile

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"oidcconfig/pkg/debounce"
)

// WithDebounce sets how long the source waits for changes to settle
func (s *DirSource) WithDebounce(delay time.Duration) *DirSource {
	if delay > 0 {
		s.delay = delay
	}
	return s
}

// Watch implements WatchableSource. Editors that save through a temporary
// file produce Create and Rename events, so every event on a document name
// counts as a change.
func (s *DirSource) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("failed to watch profile directory %s: %w", s.dir, err)
	}

	d := debounce.New(s.delay, onChange)
	defer d.Stop()

	s.logger.Info("Profile directory watcher started")
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !IsDocumentName(filepath.Base(event.Name)) || event.Op == fsnotify.Chmod {
				continue
			}
			s.logger.Debug("Profile changed", "file", event.Name, "op", event.Op.String())
			d.Trigger()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("File watcher error", "error", err)

		case <-ctx.Done():
			s.logger.Info("Profile directory watcher stopped")
			return nil
		}
	}
}
