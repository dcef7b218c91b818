package core

import (
	"net/http"
	"net/url"
	"strings"
)

// Request adapts an *http.Request to RequestParams and CookieSource
type Request struct {
	params url.Values
	req    *http.Request
}

// NewRequest wraps r. Query parameters and, for form posts, body parameters
// are both visible, query values first. Parameters are parsed on first use.
func NewRequest(r *http.Request) *Request {
	return &Request{req: r}
}

// Parameter implements RequestParams
func (r *Request) Parameter(name string) (string, bool) {
	if r.params == nil {
		r.params = parseParams(r.req)
	}
	values, ok := r.params[name]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// Cookie implements CookieSource
func (r *Request) Cookie(name string) (*http.Cookie, bool) {
	c, err := r.req.Cookie(name)
	if err != nil {
		return nil, false
	}
	return c, true
}

func parseParams(r *http.Request) url.Values {
	params := make(url.Values)
	if r.URL != nil {
		for k, v := range r.URL.Query() {
			params[k] = append(params[k], v...)
		}
	}
	if isFormPost(r) {
		if err := r.ParseForm(); err == nil {
			for k, v := range r.PostForm {
				params[k] = append(params[k], v...)
			}
		}
	}
	return params
}

func isFormPost(r *http.Request) bool {
	if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
		return false
	}
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
}

// Params is a map backed RequestParams, mostly useful in tests and tools
type Params map[string]string

// Parameter implements RequestParams
func (p Params) Parameter(name string) (string, bool) {
	v, ok := p[name]
	return v, ok
}

// Cookies is a map backed CookieSource
type Cookies map[string]string

// Cookie implements CookieSource
func (c Cookies) Cookie(name string) (*http.Cookie, bool) {
	v, ok := c[name]
	if !ok {
		return nil, false
	}
	return &http.Cookie{Name: name, Value: v}, true
}
