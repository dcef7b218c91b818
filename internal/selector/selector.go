// Package selector chooses the named client configuration of a request
package selector

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"oidcconfig/internal/client"
	"oidcconfig/internal/core"
	"oidcconfig/internal/registry"
	"oidcconfig/pkg/errors"
	"oidcconfig/pkg/metrics"
)

// DefaultCookieName names the cookie holding the hint of the configuration to use
const DefaultCookieName = "oidcClientConfiguration"

// Selector picks a configuration by cookie, then by fallback name when one
// is set, and finally returns the registry default.
type Selector struct {
	registry     registry.Registry
	cookieName   string
	fallbackName string
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	logger       *slog.Logger
}

// Option configures a Selector
type Option func(*Selector)

// WithCookieName changes the cookie holding the configuration hint
func WithCookieName(name string) Option {
	return func(s *Selector) {
		if name != "" {
			s.cookieName = name
		}
	}
}

// WithFallbackName adds a tier between the cookie and the default: the
// configuration registered under name, when there is one.
func WithFallbackName(name string) Option {
	return func(s *Selector) { s.fallbackName = name }
}

// WithMetrics records selections
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Selector) { s.metrics = m }
}

// WithTracer overrides the global tracer
func WithTracer(t trace.Tracer) Option {
	return func(s *Selector) { s.tracer = t }
}

// New creates a selector over reg
func New(reg registry.Registry, logger *slog.Logger, opts ...Option) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Selector{
		registry:   reg,
		cookieName: DefaultCookieName,
		tracer:     otel.Tracer("oidcconfig/selector"),
		logger:     logger.With("component", "selector"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CookieName returns the name of the selection cookie
func (s *Selector) CookieName() string {
	return s.cookieName
}

// Select returns the configuration for the request owning cookies. cookies
// may be nil outside of a request. Registry failures are returned as
// selection errors, only the absence of a matching entry falls back.
func (s *Selector) Select(ctx context.Context, cookies core.CookieSource) (*client.Configuration, error) {
	_, span := s.tracer.Start(ctx, "selector.Select")
	defer span.End()

	start := time.Now()
	c, outcome, err := s.choose(cookies)
	if s.metrics != nil {
		s.metrics.SelectionDuration.Observe(time.Since(start).Seconds())
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "selection failed")
		s.record("", metrics.OutcomeError)
		s.logger.Error("failed to select client configuration", "error", err)
		return nil, errors.NewSelectionError(err)
	}

	span.SetAttributes(
		attribute.String("oidc.configuration", c.Hint()),
		attribute.String("oidc.selection", outcome),
	)
	s.record(c.Hint(), outcome)
	s.logger.Debug("client configuration selected", "hint", c.Hint(), "outcome", outcome)
	return c, nil
}

func (s *Selector) choose(cookies core.CookieSource) (*client.Configuration, string, error) {
	if cookies != nil {
		if cookie, ok := cookies.Cookie(s.cookieName); ok {
			c, err := s.lookup(cookie.Value)
			if err != nil || c != nil {
				return c, metrics.OutcomeCookie, err
			}
		}
	}

	if s.fallbackName != "" {
		c, err := s.lookup(s.fallbackName)
		if err != nil || c != nil {
			return c, metrics.OutcomeFallback, err
		}
	}

	c, err := s.registry.Default()
	return c, metrics.OutcomeDefault, err
}

// lookup returns nil without error when hint is not registered. A single
// Get keeps a hint removed by a concurrent sync from failing the request.
func (s *Selector) lookup(hint string) (*client.Configuration, error) {
	c, err := s.registry.Get(hint)
	if errors.IsType(err, errors.ErrorTypeNotFound) {
		return nil, nil
	}
	return c, err
}

func (s *Selector) record(hint, outcome string) {
	if s.metrics != nil {
		s.metrics.SelectionsTotal.WithLabelValues(hint, outcome).Inc()
	}
}
