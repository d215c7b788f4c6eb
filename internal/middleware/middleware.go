// Package middleware provides HTTP middleware for the UPI Guard server.
package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/upiguard/upiguard/internal/auth"
	"go.uber.org/zap"
)

// StructuredLogger returns a middleware that logs HTTP requests with zap
func StructuredLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.statusCode),
				zap.Duration("latency", time.Since(start)),
				zap.String("request_id", chimw.GetReqID(r.Context())),
			}

			switch {
			case ww.statusCode >= 500:
				logger.Error("HTTP Request", fields...)
			case ww.statusCode >= 400:
				logger.Warn("HTTP Request", fields...)
			default:
				logger.Info("HTTP Request", fields...)
			}
		})
	}
}

// SecurityHeaders sets conservative response headers on every request
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth validates the bearer session token and stores the user id
// in the request context
func RequireAuth(issuer *auth.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "Authorization required")
				return
			}

			scheme, tokenStr, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenStr == "" {
				writeJSONError(w, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}

			userID, _, err := issuer.Parse(tokenStr)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}

// Counter counts hits per key within the current rate-limit window
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
}

// RateLimit rejects clients that exceed requestsPerMinute. When shared is
// non-nil the count is kept there (Redis) so limits hold across instances;
// if it errors the in-memory window is used for that request.
func RateLimit(requestsPerMinute int, shared Counter, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	local := newMemoryCounter(time.Minute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)

			var (
				count int64
				err   error
			)
			if shared != nil {
				count, err = shared.Incr(r.Context(), key)
				if err != nil {
					logger.Warnw("Shared rate limiter unavailable", "error", err)
				}
			}
			if shared == nil || err != nil {
				count, _ = local.Incr(r.Context(), key)
			}

			if count > int64(requestsPerMinute) {
				w.Header().Set("Retry-After", "60")
				writeJSONError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey uses the address chimw.RealIP resolved
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// memoryCounter is a fixed-window counter kept in process
type memoryCounter struct {
	mu      sync.Mutex
	window  time.Duration
	clients map[string]*windowEntry
	swept   time.Time
}

type windowEntry struct {
	count int64
	start time.Time
}

func newMemoryCounter(window time.Duration) *memoryCounter {
	return &memoryCounter{window: window, clients: make(map[string]*windowEntry), swept: time.Now()}
}

func (m *memoryCounter) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()

	// Drop stale entries at most once per window
	if now.Sub(m.swept) > m.window {
		for k, e := range m.clients {
			if now.Sub(e.start) > 2*m.window {
				delete(m.clients, k)
			}
		}
		m.swept = now
	}

	e, ok := m.clients[key]
	if !ok || now.Sub(e.start) > m.window {
		m.clients[key] = &windowEntry{count: 1, start: now}
		return 1, nil
	}
	e.count++
	return e.count, nil
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
