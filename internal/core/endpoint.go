package core

import (
	"net/http"
	"net/url"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Endpoint is one provider endpoint with the custom headers to send to it.
// It is immutable once built.
type Endpoint struct {
	uri     url.URL
	headers *orderedmap.OrderedMap[string, []string]
}

// NewEndpoint creates an endpoint. headers may be nil.
func NewEndpoint(uri *url.URL, headers *orderedmap.OrderedMap[string, []string]) *Endpoint {
	e := &Endpoint{uri: *uri, headers: orderedmap.New[string, []string]()}
	if headers != nil {
		for pair := headers.Oldest(); pair != nil; pair = pair.Next() {
			e.headers.Set(pair.Key, append([]string(nil), pair.Value...))
		}
	}
	return e
}

// URI returns a copy of the endpoint URI
func (e *Endpoint) URI() *url.URL {
	u := e.uri
	return &u
}

// HeaderNames returns header names in configuration order
func (e *Endpoint) HeaderNames() []string {
	names := make([]string, 0, e.headers.Len())
	for pair := e.headers.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Header returns the configured values of a header, in configuration order
func (e *Endpoint) Header(name string) []string {
	values, _ := e.headers.Get(name)
	return append([]string(nil), values...)
}

// Headers returns all custom headers
func (e *Endpoint) Headers() map[string][]string {
	out := make(map[string][]string, e.headers.Len())
	for pair := e.headers.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = append([]string(nil), pair.Value...)
	}
	return out
}

// Apply adds the custom headers to an outgoing request
func (e *Endpoint) Apply(req *http.Request) {
	for pair := e.headers.Oldest(); pair != nil; pair = pair.Next() {
		for _, v := range pair.Value {
			req.Header.Add(pair.Key, v)
		}
	}
}
