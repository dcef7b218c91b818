package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"oidcconfig/pkg/errors"
)

// Loader loads configuration from file
type Loader struct {
	path       string
	envEnabled bool
}

// NewLoader creates a config loader
func NewLoader(path string) *Loader {
	return &Loader{
		path:       path,
		envEnabled: true, // Enable env vars by default
	}
}

// WithEnvVars enables or disables environment variable loading
func (l *Loader) WithEnvVars(enabled bool) *Loader {
	l.envEnabled = enabled
	return l
}

// Load loads the configuration. Values missing from the file keep their
// embedded defaults. An empty path loads the defaults only.
func (l *Loader) Load() (*Config, error) {
	cfg, err := LoadDefault()
	if err != nil {
		return nil, errors.NewError(errors.ErrorTypeInternal, "failed to parse default config").WithCause(err)
	}

	if l.path != "" {
		data, err := os.ReadFile(l.path)
		if err != nil {
			return nil, errors.NewError(errors.ErrorTypeInternal, "failed to read config file").WithCause(err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.NewError(errors.ErrorTypeInternal, "failed to parse config").WithCause(err)
		}
	}

	if l.envEnabled {
		if err := LoadEnv(cfg); err != nil {
			return nil, errors.NewError(errors.ErrorTypeInternal, "failed to load env vars").WithCause(err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, errors.NewError(errors.ErrorTypeBadRequest, "invalid configuration").WithCause(err)
	}

	return cfg, nil
}

// Load loads the configuration at path with environment overrides
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// Validate checks cfg for values the application cannot start with
func Validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	switch cfg.Session.Backend {
	case BackendMemory:
	case BackendRedis:
		if cfg.Session.Redis == nil || cfg.Session.Redis.Addr == "" {
			return fmt.Errorf("redis session backend requires session.redis.addr")
		}
	default:
		return fmt.Errorf("unknown session backend: %s", cfg.Session.Backend)
	}
	if cfg.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with /: %q", cfg.Metrics.Path)
	}

	if cfg.Profiles.Debounce < 0 {
		return fmt.Errorf("profiles debounce must not be negative")
	}
	if cfg.Reload.Debounce < 0 {
		return fmt.Errorf("reload debounce must not be negative")
	}

	for key := range cfg.Settings {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("settings contain an empty key")
		}
	}

	return nil
}
