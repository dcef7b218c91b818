package core

import (
	"net/http"
	"net/url"
	"reflect"
)

// RequestParams gives read-only access to the parameters of the current request
type RequestParams interface {
	// Parameter returns the first value of the named parameter.
	// ok is false only when the parameter is absent; an empty value is present.
	Parameter(name string) (value string, ok bool)
}

// SessionStore is per-session scratch storage
type SessionStore interface {
	// Get returns the attribute stored under name
	Get(name string) (any, bool)
	// Set stores value under name
	Set(name string, value any)
	// Remove deletes the attribute and returns its previous value
	Remove(name string) (any, bool)
}

// PropertyStore is the lowest precedence source of configuration values
type PropertyStore interface {
	// Property returns the raw, weakly typed value stored under key
	Property(key string) (any, bool)
}

// TypeConverter coerces weakly typed values
type TypeConverter interface {
	// Convert converts raw into a value of the target type
	Convert(target reflect.Type, raw any) (any, error)
}

// EndpointURIBuilder synthesizes provider endpoint URIs
type EndpointURIBuilder interface {
	// BuildFromProviderBase returns the URI of the endpoint named hint under base
	BuildFromProviderBase(base *url.URL, hint string) (*url.URL, error)
}

// InstanceIdentity identifies the running instance
type InstanceIdentity interface {
	ID() string
}

// CookieSource reads cookies of the current request
type CookieSource interface {
	Cookie(name string) (*http.Cookie, bool)
}
