package adminserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kvgate/kvgate/internal/infra/buildinfo"
	"github.com/kvgate/kvgate/internal/telemetry/logger"
	"github.com/kvgate/kvgate/internal/telemetry/metric"
)

// RouterConfig holds configuration for the admin router.
type RouterConfig struct {
	// Metrics is the registry served at /metrics. Nil falls back to the
	// process-wide registry.
	Metrics *metric.Registry

	// Logger for request logging. Nil falls back to the default logger.
	Logger logger.Logger
}

// NewRouter creates the admin handler with all routes and middleware.
//
// @design DS-0502
func NewRouter(cfg *RouterConfig) http.Handler {
	if cfg == nil {
		cfg = &RouterConfig{}
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	reg := cfg.Metrics
	if reg == nil {
		reg = metric.Global()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.Handle("GET /metrics", reg.Handler())

	return Chain(mux, Recover(log), RequestID(), Logging(log))
}

// handleHealthz reports liveness and the running build.
func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	info := buildinfo.Get()
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": info.Version,
		"commit":  info.Commit,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
