package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"oidcconfig/internal/core"
	"oidcconfig/pkg/metrics"
)

type contextKey struct{}

// WithSession returns a copy of ctx carrying s
func WithSession(ctx context.Context, s *Attributes) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session of the request, nil when there is none.
// The result is a core.SessionStore so a missing session stays a nil interface.
func FromContext(ctx context.Context) core.SessionStore {
	s, ok := ctx.Value(contextKey{}).(*Attributes)
	if !ok || s == nil {
		return nil
	}
	return s
}

// ManagerConfig configures a Manager
type ManagerConfig struct {
	// Backend names the store in metrics and logs
	Backend string
	// CookieName names the cookie carrying new session ids
	CookieName string
	// Secure marks the session cookie secure
	Secure bool
	// TTL is the session cookie max age
	TTL time.Duration
}

// Manager loads the session of every request before the handler runs and
// saves the attributes it changed afterwards. Concurrent requests of one
// session do not coordinate, the last write of an attribute wins.
type Manager struct {
	store     Store
	extractor Extractor
	config    ManagerConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewManager creates a session manager
func NewManager(store Store, extractor Extractor, config ManagerConfig, m *metrics.Metrics, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if config.CookieName == "" {
		config.CookieName = DefaultCookieName
	}
	if extractor == nil {
		extractor = NewCookieExtractor(config.CookieName)
	}
	return &Manager{
		store:     store,
		extractor: extractor,
		config:    config,
		metrics:   m,
		logger:    logger.With("component", "session", "backend", config.Backend),
	}
}

// Middleware attaches the session to the request context
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id := m.extractor.Extract(r)
		var values map[string]any
		if id != "" {
			var err error
			values, err = m.store.Load(ctx, id)
			m.record("load", err)
			if err != nil {
				// Serve the request without its previous state rather than failing it.
				m.logger.Error("failed to load session", "error", err)
			}
		}
		if id == "" || values == nil {
			id = uuid.NewString()
			m.setCookie(w, id)
		}

		m.logger.Debug("session attached", "session_id", id)
		s := NewAttributes(id, values)
		next.ServeHTTP(w, r.WithContext(WithSession(ctx, s)))

		if err := m.Save(context.WithoutCancel(ctx), s); err != nil {
			m.logger.Error("failed to save session", "session_id", id, "error", err)
		}
	})
}

// Save writes the changed attributes of s
func (m *Manager) Save(ctx context.Context, s *Attributes) error {
	if !s.Dirty() {
		return nil
	}
	set, removed := s.Changes()
	err := m.store.Save(ctx, s.ID(), set, removed)
	m.record("save", err)
	return err
}

// Invalidate drops the session of s
func (m *Manager) Invalidate(ctx context.Context, s *Attributes) error {
	err := m.store.Delete(ctx, s.ID())
	m.record("delete", err)
	return err
}

func (m *Manager) setCookie(w http.ResponseWriter, id string) {
	c := &http.Cookie{
		Name:     m.config.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if m.config.TTL > 0 {
		c.MaxAge = int(m.config.TTL.Seconds())
	}
	http.SetCookie(w, c)
}

func (m *Manager) record(operation string, err error) {
	if m.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.metrics.SessionOperations.WithLabelValues(m.config.Backend, operation, status).Inc()
}
