// Package registry holds the named client configurations of the process
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"oidcconfig/internal/client"
	"oidcconfig/pkg/errors"
)

// Registry is the lookup table queried when selecting a configuration
type Registry interface {
	// Has reports whether a configuration is registered under hint
	Has(hint string) (bool, error)
	// Get returns the configuration registered under hint, a not_found error
	// when there is none
	Get(hint string) (*client.Configuration, error)
	// Default returns the process wide configuration
	Default() (*client.Configuration, error)
}

// Memory is an in-memory Registry. Entries are replaced, never mutated, so
// readers may keep using a configuration after it was replaced.
type Memory struct {
	mu       sync.RWMutex
	entries  map[string]*client.Configuration
	fallback *client.Configuration
	logger   *slog.Logger
}

var _ Registry = (*Memory)(nil)

// NewMemory creates an empty registry
func NewMemory(logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{
		entries: make(map[string]*client.Configuration),
		logger:  logger.With("component", "registry"),
	}
}

// SetDefault sets the process wide configuration
func (m *Memory) SetDefault(c *client.Configuration) {
	m.mu.Lock()
	m.fallback = c
	m.mu.Unlock()
}

// Put registers c under its hint, replacing any previous entry
func (m *Memory) Put(c *client.Configuration) {
	m.mu.Lock()
	_, replaced := m.entries[c.Hint()]
	m.entries[c.Hint()] = c
	m.mu.Unlock()

	m.logger.Debug("configuration registered", "hint", c.Hint(), "source", c.Source(), "replaced", replaced)
}

// Remove unregisters hint
func (m *Memory) Remove(hint string) bool {
	m.mu.Lock()
	_, ok := m.entries[hint]
	delete(m.entries, hint)
	m.mu.Unlock()

	if ok {
		m.logger.Debug("configuration removed", "hint", hint)
	}
	return ok
}

// ReplaceSource swaps every entry loaded from source with configs. Entries
// of other sources are kept. It returns how many entries were added and
// removed.
func (m *Memory) ReplaceSource(source string, configs []*client.Configuration) (added, removed int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make(map[string]bool, len(configs))
	for _, c := range configs {
		next[c.Hint()] = true
	}

	for hint, c := range m.entries {
		if c.Source() == source && !next[hint] {
			delete(m.entries, hint)
			removed++
		}
	}
	for _, c := range configs {
		if existing, ok := m.entries[c.Hint()]; ok && existing.Source() != source {
			m.logger.Warn("configuration hint already registered by another source",
				"hint", c.Hint(), "source", source, "owner", existing.Source())
			continue
		}
		if _, ok := m.entries[c.Hint()]; !ok {
			added++
		}
		m.entries[c.Hint()] = c
	}
	return added, removed
}

// Has implements Registry
func (m *Memory) Has(hint string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[hint]
	return ok, nil
}

// Get implements Registry
func (m *Memory) Get(hint string) (*client.Configuration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.entries[hint]
	if !ok {
		return nil, errors.NewError(errors.ErrorTypeNotFound, fmt.Sprintf("configuration not found: %s", hint)).
			WithDetail("hint", hint)
	}
	return c, nil
}

// Default implements Registry
func (m *Memory) Default() (*client.Configuration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.fallback == nil {
		return nil, errors.NewError(errors.ErrorTypeUnavailable, "no default configuration registered")
	}
	return m.fallback, nil
}

// Hints returns the registered hints in sorted order
func (m *Memory) Hints() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hints := make([]string, 0, len(m.entries))
	for hint := range m.entries {
		hints = append(hints, hint)
	}
	sort.Strings(hints)
	return hints
}

// Len returns the number of named entries, the default excluded
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
