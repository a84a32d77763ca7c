package adminserver

import (
	"context"
	"net/http"
	"time"
)

// Server hosts the operational endpoint on its own listener.
//
// @design DS-0502
type Server struct {
	http *http.Server
}

// New builds the admin server for addr. Timeouts are fixed rather than
// configurable: the endpoint serves probes and scrapes, nothing
// long-lived.
func New(addr string, handler http.Handler) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       time.Minute,
		},
	}
}

// ListenAndServe blocks serving requests until Shutdown is called or
// the listener fails.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight
// requests up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
