package selector

import (
	"context"
	"encoding/json"
	"net/http"

	"oidcconfig/internal/client"
	"oidcconfig/internal/core"
	"oidcconfig/pkg/errors"
)

type contextKey struct{}

// WithConfiguration returns a copy of ctx carrying c
func WithConfiguration(ctx context.Context, c *client.Configuration) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the configuration selected for the request
func FromContext(ctx context.Context) (*client.Configuration, bool) {
	c, ok := ctx.Value(contextKey{}).(*client.Configuration)
	return c, ok && c != nil
}

// Middleware selects the configuration of every request and stores it in
// the request context. Requests fail with 500 when selection fails.
func (s *Selector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := s.Select(r.Context(), core.NewRequest(r))
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithConfiguration(r.Context(), c)))
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "Internal Server Error"

	var e *errors.Error
	if errors.As(err, &e) {
		status = e.HTTPStatusCode()
		message = e.Message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
