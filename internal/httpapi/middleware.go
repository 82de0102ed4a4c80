// Package httpapi binds unlocker.Service to the three literal REST routes
// from spec §6 using net/http.ServeMux method+path patterns (Go 1.22+),
// JWT bearer authentication, and JSON request/response bodies.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrPanicRecovered indicates a handler panicked and was recovered.
var ErrPanicRecovered = errors.New("httpapi: panic recovered in handler")

// ErrMissingBearerToken indicates the Authorization header was absent or
// malformed.
var ErrMissingBearerToken = errors.New("httpapi: missing bearer token")

type contextKey string

const userIDContextKey contextKey = "user_id"

// UserIDFromContext returns the authenticated user ID resolved by
// JWTMiddleware, if present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDContextKey).(string)
	return id, ok
}

// claims is the minimal JWT claim set this API relies on: the registered
// "sub" claim carries the user ID (spec §6: "Bearer auth middleware (JWT)
// resolves user_id into request context").
type claims struct {
	jwt.RegisteredClaims
}

// JWTMiddleware validates the request's bearer token against secret and
// injects the resulting user ID into the request context. Handlers then
// enforce user_id == instance.UserID themselves (spec §6), this
// middleware only establishes identity.
func JWTMiddleware(secret []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "httpapi.jwt"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenStr == "" {
				logger.Warn("missing bearer token", slog.String("path", r.URL.Path))
				writeError(w, http.StatusUnauthorized, ErrMissingBearerToken)
				return
			}

			var c claims
			_, err := jwt.ParseWithClaims(tokenStr, &c, func(*jwt.Token) (interface{}, error) {
				return secret, nil
			})
			if err != nil {
				logger.Warn("jwt validation failed", slog.String("error", err.Error()))
				writeError(w, http.StatusUnauthorized, fmt.Errorf("httpapi: invalid token: %w", err))
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, c.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggingMiddleware logs every request with its method, path, duration,
// and status, mirroring the teacher's LoggingInterceptor.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "httpapi.logging"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			duration := time.Since(start)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", duration),
			}
			if rec.status >= 400 {
				logger.LogAttrs(r.Context(), slog.LevelWarn, "request completed with error", attrs...)
			} else {
				logger.LogAttrs(r.Context(), slog.LevelInfo, "request completed", attrs...)
			}
		})
	}
}

// RecoveryMiddleware recovers from panics in downstream handlers, logs the
// stack trace, and responds with 500, mirroring the teacher's
// RecoveryInterceptor.
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "httpapi.recovery"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					buf := make([]byte, 4096)
					n := runtime.Stack(buf, false)
					logger.ErrorContext(r.Context(), "panic recovered in handler",
						slog.String("path", r.URL.Path),
						slog.Any("panic", rec),
						slog.String("stack", string(buf[:n])),
					)
					writeError(w, http.StatusInternalServerError, ErrPanicRecovered)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Chain applies middleware in order, so the first entry wraps outermost.
func Chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
