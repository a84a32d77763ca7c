package server

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/kvgate/kvgate/internal/executor"
	"github.com/kvgate/kvgate/internal/resp"
	"github.com/kvgate/kvgate/internal/telemetry/metric"
	"github.com/kvgate/kvgate/pkg/cmap"
)

// Config holds the RESP server configuration.
type Config struct {
	// Addr is the TCP listen address.
	Addr string
	// Unixsocket is an optional unix domain socket path. Empty disables
	// the socket listener.
	Unixsocket string
	// TLSConfig wraps the TCP listener in TLS when set.
	TLSConfig *tls.Config
	// IdleTimeout closes connections that sit idle between commands.
	// Zero means connections never time out while idle.
	IdleTimeout time.Duration
	// ReadTimeout bounds reading the remainder of a frame once its first
	// byte arrived (default: 30s). Helps prevent slowloris attacks.
	ReadTimeout time.Duration
	// WriteTimeout bounds writing one reply (default: 30s).
	WriteTimeout time.Duration
	// MaxClients caps concurrent connections (default: 10000).
	MaxClients int
	// Rate is the per-client-IP command budget in commands per second.
	// Zero disables rate limiting.
	Rate float64
	// Burst is the token bucket depth used with Rate.
	Burst int
	// Limits bounds frame decoding. Zero fields mean protocol defaults.
	Limits resp.Limits
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:         "127.0.0.1:6379",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		MaxClients:   10000,
	}
}

// Server is the RESP protocol server.
type Server struct {
	cfg     *Config
	exec    *executor.Executor
	metrics *metric.Registry
	logger  *slog.Logger

	tcpLn  net.Listener
	unixLn net.Listener

	baseCtx context.Context
	cancel  context.CancelFunc

	running atomic.Bool
	wg      sync.WaitGroup

	conns    *cmap.Map[*clientConn]
	limiters *cmap.Map[*rate.Limiter]
}

// New creates a RESP server. A nil cfg uses defaults; a nil logger
// falls back to slog.Default.
func New(cfg *Config, exec *executor.Executor, metrics *metric.Registry, logger *slog.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.MaxClients == 0 {
		cfg.MaxClients = 10000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		exec:     exec,
		metrics:  metrics,
		logger:   logger,
		baseCtx:  context.Background(),
		conns:    cmap.New[*clientConn](),
		limiters: cmap.New[*rate.Limiter](),
	}
}

// Start binds the listeners and begins accepting connections. Binding
// happens synchronously so address errors surface here; accept loops
// run in the background until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.baseCtx, s.cancel = context.WithCancel(ctx)
	s.running.Store(true)

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	if s.cfg.TLSConfig != nil {
		ln = tls.NewListener(ln, s.cfg.TLSConfig)
		s.logger.Info("resp server listening", "address", ln.Addr().String(), "tls", true)
	} else {
		s.logger.Info("resp server listening", "address", ln.Addr().String(), "tls", false)
	}
	s.tcpLn = ln

	if s.cfg.Unixsocket != "" {
		// A stale socket from an unclean exit blocks the bind.
		if err := os.Remove(s.cfg.Unixsocket); err != nil && !os.IsNotExist(err) {
			s.tcpLn.Close()
			return err
		}
		uln, err := net.Listen("unix", s.cfg.Unixsocket)
		if err != nil {
			s.tcpLn.Close()
			return err
		}
		s.unixLn = uln
		s.logger.Info("resp server listening", "address", s.cfg.Unixsocket, "network", "unix")
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(s.tcpLn)
	}()
	if s.unixLn != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.acceptLoop(s.unixLn)
		}()
	}
	return nil
}

// Addr returns the bound TCP address, useful when Addr was ":0".
func (s *Server) Addr() net.Addr {
	if s.tcpLn == nil {
		return nil
	}
	return s.tcpLn.Addr()
}

// ConnCount returns the number of live connections.
func (s *Server) ConnCount() int {
	return s.conns.Count()
}

// Shutdown stops accepting, cancels in-flight work and waits for
// connection handlers to finish. When ctx expires first, remaining
// connections are force-closed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var firstErr error
	if s.tcpLn != nil {
		if err := s.tcpLn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.unixLn != nil {
		if err := s.unixLn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return firstErr
	case <-ctx.Done():
	}

	// Grace expired: closing the sockets unblocks every read loop.
	s.conns.Range(func(_ string, c *clientConn) bool {
		c.Close()
		return true
	})
	<-done
	if firstErr == nil {
		firstErr = ctx.Err()
	}
	return firstErr
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("accept failed", "error", err)
			return
		}

		if s.conns.Count() >= s.cfg.MaxClients {
			s.logger.Warn("connection limit reached", "remote", conn.RemoteAddr().String())
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			conn.Write([]byte("-ERR max number of clients reached\r\n"))
			conn.Close()
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(conn)
		}()
	}
}

// limiterFor returns the token bucket for a client IP, creating it on
// first sight.
func (s *Server) limiterFor(ip string) *rate.Limiter {
	if lim, ok := s.limiters.Get(ip); ok {
		return lim
	}
	lim, _ := s.limiters.GetOrSet(ip, rate.NewLimiter(rate.Limit(s.cfg.Rate), s.cfg.Burst))
	return lim
}

// clientIP is the rate-limit bucket key for a connection. Unix socket
// peers share one local bucket.
func clientIP(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "local"
	}
	return host
}

func newConnID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
