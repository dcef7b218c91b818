// Package middleware provides the HTTP middlewares wrapping every request
package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"oidcconfig/internal/telemetry"
	"oidcconfig/pkg/errors"
	"oidcconfig/pkg/requestid"
)

// Middleware wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Chain combines multiple middleware, the first one runs outermost
func Chain(middlewares ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// RequestID reuses the request ID header of the caller or generates one,
// stores it in the request context and echoes it in the response
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestid.Header)
			if id == "" {
				id = requestid.GenerateRequestID()
			}
			w.Header().Set(requestid.Header, id)
			next.ServeHTTP(w, r.WithContext(requestid.WithRequestID(r.Context(), id)))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Logging logs every request at debug level once it completed, with the
// trace id when an outer middleware started a span
func Logging(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			telemetry.LogEvent(r.Context(), logger, slog.LevelDebug, "request",
				"id", requestid.FromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.status,
				"duration", time.Since(start),
			)
		})
	}
}

// RecoveryConfig holds recovery middleware configuration
type RecoveryConfig struct {
	// StackTrace enables stack trace logging
	StackTrace bool
}

// Recovery turns panics into 500 responses
func Recovery(config RecoveryConfig, logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered",
					"panic", rec,
					"id", requestid.FromContext(r.Context()),
					"path", r.URL.Path,
					"method", r.Method,
				)
				if config.StackTrace {
					logger.Error("stack trace", "stack", string(debug.Stack()))
				}

				err := errors.NewError(errors.ErrorTypeInternal, "Internal server error").
					WithDetail("panic", fmt.Sprintf("%v", rec))
				http.Error(w, err.Message, err.HTTPStatusCode())
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Default is the chain applied to every request. inner runs between
// recovery and logging, tracing goes there so access logs carry trace ids.
func Default(logger *slog.Logger, inner ...Middleware) Middleware {
	chain := []Middleware{
		RequestID(),
		Recovery(RecoveryConfig{StackTrace: true}, logger),
	}
	chain = append(chain, inner...)
	chain = append(chain, Logging(logger))
	return Chain(chain...)
}
