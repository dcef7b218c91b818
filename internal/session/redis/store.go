package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"oidcconfig/internal/session"
)

// Client defines the interface for Redis operations
type Client interface {
	// HGetAll returns all fields of a hash
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// Update sets and deletes hash fields and refreshes the key expiration
	Update(ctx context.Context, key string, set map[string]string, del []string, ttl time.Duration) error
	// Del deletes keys
	Del(ctx context.Context, keys ...string) error
	// Close closes the connection
	Close() error
}

// Store implements session.Store with one Redis hash per session. Each
// attribute is a hash field holding its encoded value.
type Store struct {
	client Client
	config *session.StoreConfig
	logger *slog.Logger
}

var _ session.Store = (*Store)(nil)

// NewStore creates a new Redis store
func NewStore(client Client, config *session.StoreConfig, logger *slog.Logger) *Store {
	if config == nil {
		config = session.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client: client,
		config: config,
		logger: logger.With("component", "session-redis"),
	}
}

// Load implements session.Store. Fields that cannot be decoded are skipped.
func (s *Store) Load(ctx context.Context, id string) (map[string]any, error) {
	fields, err := s.client.HGetAll(ctx, s.key(id))
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	values := make(map[string]any, len(fields))
	for name, raw := range fields {
		v, err := session.Decode(raw)
		if err != nil {
			s.logger.Warn("dropping undecodable session attribute", "attribute", name, "error", err)
			continue
		}
		values[name] = v
	}
	return values, nil
}

// Save implements session.Store
func (s *Store) Save(ctx context.Context, id string, set map[string]any, removed []string) error {
	encoded := make(map[string]string, len(set))
	for name, v := range set {
		raw, err := session.Encode(v)
		if err != nil {
			return fmt.Errorf("failed to encode session attribute %s: %w", name, err)
		}
		encoded[name] = raw
	}

	if err := s.client.Update(ctx, s.key(id), encoded, removed, s.config.TTL); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete implements session.Store
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id))
}

// Close closes the store
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *Store) key(id string) string {
	return s.config.KeyPrefix + id
}
