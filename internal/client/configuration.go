// Package client provides named OIDC client configurations and the accessors
// answering every configuration question for one request.
package client

import (
	"log/slog"
	"time"

	"oidcconfig/internal/convert"
	"oidcconfig/internal/core"
	"oidcconfig/internal/resolver"
)

// DefaultHint identifies the process wide configuration built from static settings
const DefaultHint = "default"

// Deps are the collaborators shared by all configurations
type Deps struct {
	Converter core.TypeConverter
	Endpoints core.EndpointURIBuilder
	Identity  core.InstanceIdentity
	Logger    *slog.Logger
	// Now is the clock used for user info expiration dates
	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Converter == nil {
		d.Converter = convert.New()
	}
	if d.Endpoints == nil {
		d.Endpoints = resolver.ProviderEndpoints{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Configuration is one named client configuration bound to its fallback
// store. It is immutable and shared by concurrent requests.
type Configuration struct {
	hint   string
	source string
	store  core.PropertyStore
	deps   Deps
	logger *slog.Logger
}

// New creates the configuration named hint. source describes where it was
// loaded from and is only informative.
func New(hint, source string, store core.PropertyStore, deps Deps) *Configuration {
	deps = deps.withDefaults()
	return &Configuration{
		hint:   hint,
		source: source,
		store:  store,
		deps:   deps,
		logger: deps.Logger.With("component", "client", "configuration", hint),
	}
}

// Hint returns the registry identity of the configuration
func (c *Configuration) Hint() string {
	return c.hint
}

// Source returns where the configuration was loaded from
func (c *Configuration) Source() string {
	return c.source
}

// Store returns the fallback property store
func (c *Configuration) Store() core.PropertyStore {
	return c.store
}

// For returns the accessors of c for one request. params and session may be
// nil outside of a request.
func (c *Configuration) For(params core.RequestParams, session core.SessionStore) *View {
	return &View{
		config: c,
		r: resolver.New(params, session, c.store,
			resolver.WithConverter(c.deps.Converter),
			resolver.WithEndpointBuilder(c.deps.Endpoints),
			resolver.WithLogger(c.logger),
		),
	}
}
