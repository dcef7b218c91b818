// Package session provides the per-user session tier of configuration
// resolution and the HTTP plumbing that loads and saves it.
package session

import (
	"maps"
	"sync"

	"oidcconfig/internal/core"
)

// Attributes is the in-request view of one session. It records which
// attributes changed so only those are written back.
type Attributes struct {
	mu      sync.Mutex
	id      string
	values  map[string]any
	set     map[string]struct{}
	removed map[string]struct{}
}

var _ core.SessionStore = (*Attributes)(nil)

// NewAttributes wraps the loaded values of session id
func NewAttributes(id string, values map[string]any) *Attributes {
	if values == nil {
		values = make(map[string]any)
	}
	return &Attributes{
		id:      id,
		values:  values,
		set:     make(map[string]struct{}),
		removed: make(map[string]struct{}),
	}
}

// ID returns the session id
func (a *Attributes) ID() string {
	return a.id
}

// Get implements core.SessionStore
func (a *Attributes) Get(name string) (any, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.values[name]
	return v, ok
}

// Set implements core.SessionStore. Setting nil removes the attribute.
func (a *Attributes) Set(name string, value any) {
	if value == nil {
		a.Remove(name)
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values[name] = value
	a.set[name] = struct{}{}
	delete(a.removed, name)
}

// Remove implements core.SessionStore
func (a *Attributes) Remove(name string) (any, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.values[name]
	delete(a.values, name)
	delete(a.set, name)
	a.removed[name] = struct{}{}
	return v, ok
}

// Changes returns the attributes set and removed since the session was loaded
func (a *Attributes) Changes() (set map[string]any, removed []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	set = make(map[string]any, len(a.set))
	for name := range a.set {
		set[name] = a.values[name]
	}
	removed = make([]string, 0, len(a.removed))
	for name := range a.removed {
		removed = append(removed, name)
	}
	return set, removed
}

// Dirty reports whether any attribute changed
func (a *Attributes) Dirty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.set) > 0 || len(a.removed) > 0
}

// Values returns a copy of all attributes
func (a *Attributes) Values() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return maps.Clone(a.values)
}
