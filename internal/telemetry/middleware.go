package telemetry

import (
	"net/http"
)

// Middleware wraps an HTTP handler in a server span
func (t *Telemetry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := t.StartHTTPServerSpan(r)

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}
		next.ServeHTTP(rw, r.WithContext(ctx))

		EndHTTPServerSpan(span, rw.statusCode)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
