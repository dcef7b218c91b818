// Package resolver answers configuration questions by consulting, in order,
// the current request, the session and a fallback property store.
package resolver

import (
	"log/slog"
	"reflect"

	"oidcconfig/internal/convert"
	"oidcconfig/internal/core"
	"oidcconfig/pkg/errors"
)

// Tier names a source a value was resolved from
type Tier string

const (
	TierRequest Tier = "request"
	TierSession Tier = "session"
	TierStore   Tier = "store"
	TierNone    Tier = "none"
)

// Resolver resolves configuration values for one request. It is not safe for
// use by several requests, build one per request with New.
type Resolver struct {
	params    core.RequestParams
	session   core.SessionStore
	store     core.PropertyStore
	converter core.TypeConverter
	endpoints core.EndpointURIBuilder
	logger    *slog.Logger
}

// Option configures a Resolver
type Option func(*Resolver)

// WithConverter overrides the type converter
func WithConverter(c core.TypeConverter) Option {
	return func(r *Resolver) { r.converter = c }
}

// WithEndpointBuilder overrides how endpoints are derived from the provider base
func WithEndpointBuilder(b core.EndpointURIBuilder) Option {
	return func(r *Resolver) { r.endpoints = b }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a resolver. params and session may be nil when there is no
// current request or session, those tiers are then skipped.
func New(params core.RequestParams, session core.SessionStore, store core.PropertyStore, opts ...Option) *Resolver {
	r := &Resolver{
		params:    params,
		session:   session,
		store:     store,
		converter: convert.New(),
		endpoints: ProviderEndpoints{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "resolver")
	return r
}

// Session returns the session tier, nil when there is none
func (r *Resolver) Session() core.SessionStore {
	return r.session
}

// Converter returns the type converter in use
func (r *Resolver) Converter() core.TypeConverter {
	return r.converter
}

// Lookup resolves key as a T. The boolean reports whether any tier had a
// value. Request parameters and store values are converted, session values
// must already be a T. Once a tier has a value, lower tiers are not consulted
// even if conversion fails.
func Lookup[T any](r *Resolver, key string) (T, bool, error) {
	var zero T

	if r.params != nil {
		if raw, ok := r.params.Parameter(key); ok {
			v, err := convert.To[T](r.converter, raw)
			r.trace(key, TierRequest, err)
			if err != nil {
				return zero, true, withKey(err, key)
			}
			return v, true, nil
		}
	}

	if r.session != nil {
		if raw, ok := r.session.Get(key); ok && raw != nil {
			v, ok := raw.(T)
			if !ok {
				err := errors.NewCoercionError(reflect.TypeFor[T]().String(), raw)
				r.trace(key, TierSession, err)
				return zero, true, withKey(err, key)
			}
			r.trace(key, TierSession, nil)
			return v, true, nil
		}
	}

	if r.store != nil {
		if raw, ok := r.store.Property(key); ok {
			v, err := convert.To[T](r.converter, raw)
			r.trace(key, TierStore, err)
			if err != nil {
				return zero, true, withKey(err, key)
			}
			return v, true, nil
		}
	}

	r.trace(key, TierNone, nil)
	return zero, false, nil
}

// Get resolves key as a T, returning def when no tier has a value
func Get[T any](r *Resolver, key string, def T) (T, error) {
	v, ok, err := Lookup[T](r, key)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}

// SessionValue reads a session only attribute. Absent when there is no session.
func SessionValue[T any](r *Resolver, key string) (T, bool, error) {
	var zero T
	if r.session == nil {
		return zero, false, nil
	}
	raw, ok := r.session.Get(key)
	if !ok || raw == nil {
		return zero, false, nil
	}
	v, ok := raw.(T)
	if !ok {
		return zero, true, withKey(errors.NewCoercionError(reflect.TypeFor[T]().String(), raw), key)
	}
	return v, true, nil
}

func (r *Resolver) trace(key string, tier Tier, err error) {
	if err != nil {
		r.logger.Debug("configuration value rejected", "key", key, "tier", tier, "error", err)
		return
	}
	r.logger.Debug("configuration value resolved", "key", key, "tier", tier)
}

func withKey(err error, key string) error {
	var e *errors.Error
	if errors.As(err, &e) {
		return e.WithDetail("key", key)
	}
	return err
}
