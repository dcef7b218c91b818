// Package config holds the application configuration
package config

import (
	"time"

	"oidcconfig/internal/telemetry"
)

// Session backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds the application configuration
type Config struct {
	Server Server `yaml:"server"`
	// Settings are the static property values of the default configuration,
	// keyed by property name (oidc.clientid, oidc.groups.mapping, ...)
	Settings  map[string]any   `yaml:"settings"`
	Profiles  Profiles         `yaml:"profiles"`
	Session   Session          `yaml:"session"`
	Selector  Selector         `yaml:"selector"`
	Instance  Instance         `yaml:"instance"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Metrics   Metrics          `yaml:"metrics"`
	Reload    Reload           `yaml:"reload"`
}

// Server configures the HTTP listener
type Server struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// Profiles configures persisted profile sources
type Profiles struct {
	// Directory holding *.yaml profile documents, empty disables the source
	Directory string `yaml:"directory"`
	// TrustedAuthors may register profiles
	TrustedAuthors []string `yaml:"trustedAuthors"`
	// Watch reloads profiles when their source changes
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`

	Kubernetes *Kubernetes `yaml:"kubernetes,omitempty"`
}

// Kubernetes configures the ConfigMap profile source
type Kubernetes struct {
	Enabled       bool   `yaml:"enabled"`
	Kubeconfig    string `yaml:"kubeconfig"`
	Namespace     string `yaml:"namespace"`
	LabelSelector string `yaml:"labelSelector"`
}

// Session configures the session store
type Session struct {
	Backend         string        `yaml:"backend"`
	CookieName      string        `yaml:"cookieName"`
	Secure          bool          `yaml:"secure"`
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanupInterval"`
	MaxEntries      int           `yaml:"maxEntries"`
	Redis           *Redis        `yaml:"redis,omitempty"`
}

// Redis configures the redis session backend
type Redis struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// Selector configures how the configuration of a request is chosen. Both
// fields empty gives the plain cookie then default policy.
type Selector struct {
	CookieName   string `yaml:"cookieName"`
	FallbackName string `yaml:"fallbackName"`
}

// Instance configures the instance identity
type Instance struct {
	IDFile string `yaml:"idFile"`
}

// Metrics configures the Prometheus endpoint
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Reload configures the watcher of the configuration file. Only static
// settings are applied without a restart.
type Reload struct {
	Debounce time.Duration `yaml:"debounce"`
}
