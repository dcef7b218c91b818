package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"oidcconfig/internal/session"
)

// entry holds the attributes of one session
type entry struct {
	values     map[string]any
	lastAccess time.Time
}

// Store implements session.Store in process memory. Values are kept as they
// are, without encoding.
type Store struct {
	entries map[string]*entry
	mu      sync.RWMutex
	config  *session.StoreConfig
	now     func() time.Time
	done    chan struct{}
}

var _ session.Store = (*Store)(nil)

// NewStore creates a new memory store
func NewStore(config *session.StoreConfig) *Store {
	if config == nil {
		config = session.DefaultConfig()
	}

	s := &Store{
		entries: make(map[string]*entry),
		config:  config,
		now:     time.Now,
		done:    make(chan struct{}),
	}

	// Start cleanup routine
	if config.CleanupInterval > 0 {
		go s.cleanup()
	}

	return s
}

// Load implements session.Store
func (s *Store) Load(ctx context.Context, id string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || s.expired(e) {
		return nil, nil
	}
	e.lastAccess = s.now()
	return maps.Clone(e.values), nil
}

// Save implements session.Store
func (s *Store) Save(ctx context.Context, id string, set map[string]any, removed []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || s.expired(e) {
		// Check max entries limit
		if s.config.MaxEntries > 0 && len(s.entries) >= s.config.MaxEntries {
			s.evictOldest()
		}
		e = &entry{values: make(map[string]any)}
		s.entries[id] = e
	}

	for name, v := range set {
		e.values[name] = v
	}
	for _, name := range removed {
		delete(e.values, name)
	}
	e.lastAccess = s.now()
	return nil
}

// Delete implements session.Store
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// Len returns the number of sessions held
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close closes the store
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		// Already closed
		return nil
	default:
		close(s.done)
		return nil
	}
}

func (s *Store) expired(e *entry) bool {
	return s.config.TTL > 0 && s.now().Sub(e.lastAccess) > s.config.TTL
}

// cleanup periodically removes expired sessions
func (s *Store) cleanup() {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.removeExpired()
		}
	}
}

// removeExpired removes sessions idle for longer than the TTL
func (s *Store) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, id)
		}
	}
}

// evictOldest removes the least recently used session. Callers hold s.mu.
func (s *Store) evictOldest() {
	var oldestID string
	var oldestTime time.Time
	first := true

	for id, e := range s.entries {
		if first || e.lastAccess.Before(oldestTime) {
			oldestID = id
			oldestTime = e.lastAccess
			first = false
		}
	}

	if !first {
		delete(s.entries, oldestID)
	}
}
