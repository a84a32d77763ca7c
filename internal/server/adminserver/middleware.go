package adminserver

import (
	"crypto/rand"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kvgate/kvgate/internal/telemetry/logger"
)

// Middleware decorates an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares around h, first listed outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for _, mw := range slices.Backward(middlewares) {
		h = mw(h)
	}
	return h
}

// RequestID tags every request with an identifier, minting one when the
// caller did not send X-Request-ID. The ID travels in the response
// header and the request context.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				entropy := ulid.Monotonic(rand.Reader, 0)
				id = "req-" + ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
			}
			w.Header().Set("X-Request-ID", id)

			ctx := logger.WithRequestID(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Recover converts handler panics into a 500 response so one bad
// request cannot take the endpoint down.
func Recover(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					log.Error("panic recovered",
						"request_id", logger.RequestIDFromContext(r.Context()),
						"panic", v,
						"path", r.URL.Path)
					writeJSON(w, http.StatusInternalServerError, map[string]string{
						"error": "internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Logging emits one line per completed request. Successes log at debug
// so periodic scrapes stay out of the operational log.
func Logging(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			reqLog := log.With(
				"request_id", logger.RequestIDFromContext(r.Context()),
				"method", r.Method, "path", r.URL.Path,
				"status", sw.status, "client_ip", clientIP(r),
				"duration_ms", time.Since(start).Milliseconds())
			switch {
			case sw.status >= 500:
				reqLog.Error("request completed with error")
			case sw.status >= 400:
				reqLog.Warn("request completed with client error")
			default:
				reqLog.Debug("request completed")
			}
		})
	}
}

// statusRecorder remembers the code passed to WriteHeader.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// clientIP reports the originating address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}

	// SplitHostPort copes with bracketed IPv6 like [::1]:7379.
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
