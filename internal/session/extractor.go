package session

import (
	"net/http"
)

// DefaultCookieName names the session cookie
const DefaultCookieName = "OIDCCONFIG_SESSION"

// Extractor extracts the session ID from a request
type Extractor interface {
	Extract(r *http.Request) string
}

// ExtractorFunc is a function that implements Extractor
type ExtractorFunc func(r *http.Request) string

// Extract implements Extractor
func (f ExtractorFunc) Extract(r *http.Request) string {
	return f(r)
}

// Extractor sources
const (
	SourceCookie = "cookie"
	SourceHeader = "header"
)

// NewExtractor creates a session extractor for source
func NewExtractor(source, name string) Extractor {
	switch source {
	case SourceHeader:
		return NewHeaderExtractor(name)
	default:
		return NewCookieExtractor(name)
	}
}

// CookieExtractor extracts the session ID from a cookie
type CookieExtractor struct {
	cookieName string
}

// NewCookieExtractor creates a new cookie extractor
func NewCookieExtractor(cookieName string) *CookieExtractor {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &CookieExtractor{cookieName: cookieName}
}

// Extract extracts the session ID from the cookie
func (e *CookieExtractor) Extract(r *http.Request) string {
	c, err := r.Cookie(e.cookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// HeaderExtractor extracts the session ID from a header, for non browser clients
type HeaderExtractor struct {
	headerName string
}

// NewHeaderExtractor creates a new header extractor
func NewHeaderExtractor(headerName string) *HeaderExtractor {
	if headerName == "" {
		headerName = "X-Session-Id"
	}
	return &HeaderExtractor{headerName: headerName}
}

// Extract extracts the session ID from the header
func (e *HeaderExtractor) Extract(r *http.Request) string {
	return r.Header.Get(e.headerName)
}
