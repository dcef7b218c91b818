package session

import (
	"context"
	"time"
)

// Store persists session attributes between requests
type Store interface {
	// Load returns the attributes of session id, nil when it does not exist
	Load(ctx context.Context, id string) (map[string]any, error)

	// Save applies changed attributes and refreshes the session expiration
	Save(ctx context.Context, id string, set map[string]any, removed []string) error

	// Delete drops the whole session
	Delete(ctx context.Context, id string) error

	// Close closes the store and releases resources
	Close() error
}

// StoreConfig defines common configuration for session stores
type StoreConfig struct {
	// TTL is how long an idle session is kept
	TTL time.Duration
	// CleanupInterval is how often expired sessions are removed (memory only)
	CleanupInterval time.Duration
	// MaxEntries is the maximum number of sessions to keep (0 = unlimited, memory only)
	MaxEntries int
	// KeyPrefix namespaces session keys (redis only)
	KeyPrefix string
}

// DefaultConfig returns default configuration
func DefaultConfig() *StoreConfig {
	return &StoreConfig{
		TTL:             30 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		MaxEntries:      10000, // Prevent unbounded memory growth
		KeyPrefix:       "oidcconfig:session:",
	}
}
