package adminserver

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/kvgate/kvgate/internal/telemetry/logger"
)

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text"})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestChainOrder(t *testing.T) {
	var trace []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				trace = append(trace, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		trace = append(trace, "handler")
	}), tag("outer"), tag("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	want := []string{"outer", "inner", "handler"}
	if !slices.Equal(trace, want) {
		t.Errorf("execution order = %v, want %v", trace, want)
	}
}

func TestRequestIDMinted(t *testing.T) {
	var fromCtx string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = logger.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	id := rec.Header().Get("X-Request-ID")
	if !strings.HasPrefix(id, "req-") {
		t.Errorf("minted ID = %q, want req- prefix", id)
	}
	if fromCtx != id {
		t.Errorf("context carries %q, response header carries %q", fromCtx, id)
	}
}

func TestRequestIDPreserved(t *testing.T) {
	h := RequestID()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "req-caller-7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-caller-7" {
		t.Errorf("X-Request-ID = %q, want the caller's value", got)
	}
}

func TestRequestIDUnique(t *testing.T) {
	h := RequestID()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	seen := make(map[string]bool)
	for range 20 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		id := rec.Header().Get("X-Request-ID")
		if seen[id] {
			t.Fatalf("ID %s issued twice", id)
		}
		seen[id] = true
	}
}

func TestRecoverPanic(t *testing.T) {
	h := Recover(testLogger(t))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "internal server error") {
		t.Errorf("body = %s, want a generic error", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestRecoverPassThrough(t *testing.T) {
	h := Recover(testLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestLoggingLevels(t *testing.T) {
	tests := []struct {
		status    int
		wantLevel string
		wantMsg   string
	}{
		{http.StatusOK, "DEBUG", "request completed"},
		{http.StatusNotFound, "WARN", "client error"},
		{http.StatusBadGateway, "ERROR", "request completed with error"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			var buf bytes.Buffer
			log, err := logger.New(logger.Config{Level: "debug", Format: "json", Output: &buf})
			if err != nil {
				t.Fatalf("logger.New: %v", err)
			}

			h := Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))

			req := httptest.NewRequest("GET", "/probe", nil)
			req.RemoteAddr = "198.51.100.7:50000"
			h.ServeHTTP(httptest.NewRecorder(), req)

			line := buf.String()
			for _, want := range []string{tt.wantLevel, tt.wantMsg, "198.51.100.7", "/probe"} {
				if !strings.Contains(line, want) {
					t.Errorf("log line missing %q: %s", want, line)
				}
			}
		})
	}
}

func TestStatusRecorder(t *testing.T) {
	sw := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	if sw.status != http.StatusOK {
		t.Fatalf("initial status = %d, want 200", sw.status)
	}

	sw.WriteHeader(http.StatusTeapot)
	if sw.status != http.StatusTeapot {
		t.Errorf("recorded status = %d, want 418", sw.status)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		header     map[string]string
		want       string
	}{
		{
			name:       "forwarded chain keeps first hop",
			remoteAddr: "192.168.1.1:12345",
			header:     map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"},
			want:       "10.0.0.1",
		},
		{
			name:       "real ip header",
			remoteAddr: "192.168.1.1:12345",
			header:     map[string]string{"X-Real-IP": "10.9.8.7"},
			want:       "10.9.8.7",
		},
		{
			name:       "remote addr with port",
			remoteAddr: "192.168.1.1:12345",
			want:       "192.168.1.1",
		},
		{
			name:       "bracketed ipv6",
			remoteAddr: "[::1]:12345",
			want:       "::1",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "203.0.113.9",
			want:       "203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
