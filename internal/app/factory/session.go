package factory

import (
	"context"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"oidcconfig/internal/config"
	"oidcconfig/internal/health"
	"oidcconfig/internal/session"
	"oidcconfig/internal/session/memory"
	"oidcconfig/internal/session/redis"
	"oidcconfig/pkg/errors"
	pkgfactory "oidcconfig/pkg/factory"
)

// SessionBackend is a session store built from configuration
type SessionBackend struct {
	Name  string
	Store session.Store
	// Check reports whether the backend is reachable, nil when it is always up
	Check health.Check
}

// memoryBackend builds the in-process session store
type memoryBackend struct {
	config config.Session
	store  *memory.Store
}

func (b *memoryBackend) Init(parse pkgfactory.ConfigParser) error {
	if err := parse(&b.config); err != nil {
		return err
	}
	b.store = memory.NewStore(storeConfig(b.config))
	return nil
}

func (b *memoryBackend) Name() string { return "memory-session" }

func (b *memoryBackend) Validate() error {
	if b.config.TTL <= 0 {
		return errors.NewError(errors.ErrorTypeBadRequest, "session ttl must be positive")
	}
	return nil
}

// redisBackend builds the shared session store
type redisBackend struct {
	config config.Session
	logger *slog.Logger
	client *goredis.Client
	store  *redis.Store
}

func (b *redisBackend) Init(parse pkgfactory.ConfigParser) error {
	if err := parse(&b.config); err != nil {
		return err
	}
	if b.config.Redis == nil {
		return errors.NewError(errors.ErrorTypeBadRequest, "redis session backend requires a redis section")
	}
	client, err := CreateRedisClient(b.config.Redis)
	if err != nil {
		return err
	}
	b.client = client
	b.store = redis.NewStore(redis.NewClientAdapter(client), storeConfig(b.config), b.logger)
	return nil
}

func (b *redisBackend) Name() string { return "redis-session" }

func (b *redisBackend) Validate() error {
	if b.config.Redis.Addr == "" {
		return errors.NewError(errors.ErrorTypeBadRequest, "redis address is required")
	}
	return nil
}

// Health pings the redis server
func (b *redisBackend) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return b.client.Ping(ctx).Err()
}

// CreateRedisClient creates a Redis client from configuration
func CreateRedisClient(cfg *config.Redis) (*goredis.Client, error) {
	if cfg == nil {
		return nil, errors.NewError(errors.ErrorTypeInternal, "Redis configuration is nil")
	}
	return goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}), nil
}

func storeConfig(cfg config.Session) *session.StoreConfig {
	sc := session.DefaultConfig()
	if cfg.TTL > 0 {
		sc.TTL = cfg.TTL
	}
	if cfg.CleanupInterval > 0 {
		sc.CleanupInterval = cfg.CleanupInterval
	}
	sc.MaxEntries = cfg.MaxEntries
	if cfg.Redis != nil && cfg.Redis.KeyPrefix != "" {
		sc.KeyPrefix = cfg.Redis.KeyPrefix
	}
	return sc
}

func sessionBackends(logger *slog.Logger) *pkgfactory.Registry {
	r := pkgfactory.NewRegistry()
	_ = r.Register(config.BackendMemory, func() pkgfactory.Component {
		return &memoryBackend{}
	})
	_ = r.Register(config.BackendRedis, func() pkgfactory.Component {
		return &redisBackend{logger: logger}
	})
	return r
}

// CreateSessionStore creates the session store selected by cfg.Backend
func CreateSessionStore(cfg config.Session, logger *slog.Logger) (*SessionBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.Backend
	if name == "" {
		name = config.BackendMemory
	}

	component, err := sessionBackends(logger).Create(name, cfg)
	if err != nil {
		return nil, errors.NewError(errors.ErrorTypeBadRequest, "failed to create session store").
			WithCause(err).
			WithDetail("backend", name)
	}

	backend := &SessionBackend{Name: name}
	switch c := component.(type) {
	case *memoryBackend:
		backend.Store = c.store
	case *redisBackend:
		backend.Store = c.store
	}
	if hc, ok := component.(pkgfactory.HealthChecker); ok {
		backend.Check = health.DatabaseCheck(func(context.Context) error {
			return hc.Health()
		})
	}

	logger.Info("Session store created", "backend", name, "ttl", cfg.TTL)
	return backend, nil
}
