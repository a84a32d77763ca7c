package metric

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// scrape renders a registry's /metrics output.
func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d, want 200", rec.Code)
	}
	return rec.Body.String()
}

func TestRegistryCollectors(t *testing.T) {
	r := NewRegistry()

	body := scrape(t, r.Handler())
	// Runtime and process collectors ride along with the app metrics.
	for _, want := range []string{"go_goroutines", "process_", "kvgate_server_connections_active"} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape missing %q", want)
		}
	}
}

func TestGlobalIsSingleton(t *testing.T) {
	if Global() != Global() {
		t.Error("Global() must hand out one shared registry")
	}
	if Handler() == nil {
		t.Fatal("Handler() returned nil")
	}
}

func TestConnectionGauge(t *testing.T) {
	r := NewRegistry()

	r.ConnOpened()
	r.ConnOpened()
	r.ConnClosed()

	if got := testutil.ToFloat64(r.ConnectionsActive); got != 1 {
		t.Errorf("ConnectionsActive = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.ConnectionsTotal); got != 2 {
		t.Errorf("ConnectionsTotal = %v, want 2", got)
	}
}

func TestObserveCommand(t *testing.T) {
	r := NewRegistry()

	r.ObserveCommand("GET", 2*time.Millisecond)
	r.ObserveCommand("GET", 3*time.Millisecond)
	r.ObserveCommand("SET", time.Millisecond)

	if got := testutil.ToFloat64(r.CommandsTotal.WithLabelValues("GET")); got != 2 {
		t.Errorf("CommandsTotal{GET} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.CommandsTotal.WithLabelValues("SET")); got != 1 {
		t.Errorf("CommandsTotal{SET} = %v, want 1", got)
	}
	if body := scrape(t, r.Handler()); !strings.Contains(body, "kvgate_server_command_duration_seconds_bucket") {
		t.Error("scrape missing the command duration histogram")
	}
}

func TestFailureCounters(t *testing.T) {
	r := NewRegistry()

	r.CountDecodeError("malformed")
	r.CountDecodeError("malformed")
	r.CountDecodeError("size_limit")
	r.RateLimited.Inc()
	r.RateLimited.Inc()
	r.AuthFailures.Inc()
	r.TxnAborts.Inc()

	for _, tt := range []struct {
		name string
		got  float64
		want float64
	}{
		{`DecodeErrors{kind="malformed"}`, testutil.ToFloat64(r.DecodeErrors.WithLabelValues("malformed")), 2},
		{`DecodeErrors{kind="size_limit"}`, testutil.ToFloat64(r.DecodeErrors.WithLabelValues("size_limit")), 1},
		{"RateLimited", testutil.ToFloat64(r.RateLimited), 2},
		{"AuthFailures", testutil.ToFloat64(r.AuthFailures), 1},
		{"TxnAborts", testutil.ToFloat64(r.TxnAborts), 1},
	} {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestPrometheusAccessor(t *testing.T) {
	// Engines hang their own collectors off the same registry.
	if NewRegistry().Prometheus() == nil {
		t.Fatal("Prometheus() returned nil")
	}
}

func TestConcurrentUpdates(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.ConnOpened()
				r.ObserveCommand("GET", time.Millisecond)
				r.CountDecodeError("shape")
				r.ConnClosed()
			}
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(r.ConnectionsTotal); got != 800 {
		t.Errorf("ConnectionsTotal = %v, want 800", got)
	}
	if got := testutil.ToFloat64(r.ConnectionsActive); got != 0 {
		t.Errorf("ConnectionsActive = %v, want 0 after balanced open/close", got)
	}
}
