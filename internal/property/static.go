// Package property provides the fallback stores consulted after the request
// and the session.
package property

import (
	"maps"
	"os"
	"strings"
	"sync"

	"oidcconfig/internal/core"
)

// Settings is a PropertyStore over flat process-wide settings, typically the
// `settings` section of the application config. Environment variables named
// after a key (oidc.groups.mapping → OIDC_GROUPS_MAPPING) override it.
type Settings struct {
	mu        sync.RWMutex
	values    map[string]any
	lookupEnv func(string) (string, bool)
}

var _ core.PropertyStore = (*Settings)(nil)

// NewSettings creates a settings store
func NewSettings(values map[string]any) *Settings {
	s := &Settings{lookupEnv: os.LookupEnv}
	s.Replace(values)
	return s
}

// WithEnv sets the environment lookup, nil disables environment overrides
func (s *Settings) WithEnv(lookup func(string) (string, bool)) *Settings {
	s.mu.Lock()
	s.lookupEnv = lookup
	s.mu.Unlock()
	return s
}

// Replace swaps all values, used when the settings file is reloaded
func (s *Settings) Replace(values map[string]any) {
	copied := maps.Clone(values)
	if copied == nil {
		copied = make(map[string]any)
	}
	s.mu.Lock()
	s.values = copied
	s.mu.Unlock()
}

// Property implements core.PropertyStore
func (s *Settings) Property(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lookupEnv != nil {
		if v, ok := s.lookupEnv(EnvName(key)); ok {
			return v, true
		}
	}
	v, ok := s.values[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Keys returns the configured keys
func (s *Settings) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

// EnvName returns the environment variable overriding key
func EnvName(key string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}
