package resolver

import (
	"net/url"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"oidcconfig/internal/core"
	"oidcconfig/pkg/errors"
)

// ProviderEndpoints derives endpoints by appending the hint to the provider base
type ProviderEndpoints struct{}

var _ core.EndpointURIBuilder = ProviderEndpoints{}

// BuildFromProviderBase implements core.EndpointURIBuilder
func (ProviderEndpoints) BuildFromProviderBase(base *url.URL, hint string) (*url.URL, error) {
	s := base.String()
	if !strings.HasSuffix(s, "/") {
		s += "/"
	}
	u, err := url.Parse(s + hint)
	if err != nil {
		return nil, errors.NewCoercionError("*url.URL", s+hint).WithCause(err)
	}
	return u, nil
}

// Endpoint resolves the endpoint identified by hint. An explicit
// oidc.endpoint.<hint> wins, otherwise the URI is derived from the provider
// base. It returns nil when neither is configured.
func Endpoint(r *Resolver, hint string) (*core.Endpoint, error) {
	key := PropEndpointPrefix + hint

	uri, err := endpointURI(r, key, hint)
	if err != nil || uri == nil {
		return nil, err
	}

	list, _, err := Lookup[[]string](r, key+HeadersSuffix)
	if err != nil {
		return nil, err
	}
	return core.NewEndpoint(uri, ParseHeaders(list)), nil
}

func endpointURI(r *Resolver, key, hint string) (*url.URL, error) {
	raw, ok, err := Lookup[string](r, key)
	if err != nil {
		return nil, err
	}
	if ok {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, withKey(errors.NewCoercionError("*url.URL", raw).WithCause(err), key)
		}
		return u, nil
	}

	base, ok, err := Lookup[*url.URL](r, PropProvider)
	if err != nil || !ok {
		return nil, err
	}
	return r.endpoints.BuildFromProviderBase(base, hint)
}

// ParseHeaders reads name:value entries. An entry is kept only when its first
// ':' has at least one character on each side. Values of a repeated name are
// grouped in configuration order.
func ParseHeaders(list []string) *orderedmap.OrderedMap[string, []string] {
	headers := orderedmap.New[string, []string]()
	for _, entry := range list {
		i := strings.IndexByte(entry, ':')
		if i <= 0 || i >= len(entry)-1 {
			continue
		}
		name, value := entry[:i], entry[i+1:]
		values, _ := headers.Get(name)
		headers.Set(name, append(values, value))
	}
	return headers
}
