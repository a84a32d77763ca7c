package executor

import (
	"github.com/kvgate/kvgate/internal/command"
)

// Session is the per-connection execution state. It is owned by the
// connection's read loop and is not safe for concurrent use.
type Session struct {
	// ID identifies the connection in logs and the HELLO reply.
	ID string

	proto  int
	authed bool
	user   string
	name   string

	inMulti bool
	dirty   bool
	queue   []command.Command
	watches map[string]<-chan struct{}

	quit bool
}

// NewSession returns a session speaking RESP2, as every connection does
// before HELLO.
func NewSession(id string) *Session {
	return &Session{
		ID:      id,
		proto:   2,
		watches: make(map[string]<-chan struct{}),
	}
}

// Protocol returns the negotiated protocol version (2 or 3).
func (s *Session) Protocol() int { return s.proto }

// Authenticated reports whether the connection has authenticated.
func (s *Session) Authenticated() bool { return s.authed }

// User returns the authenticated username, "" before authentication.
func (s *Session) User() string { return s.user }

// Name returns the client name set via HELLO SETNAME, "" if unset.
func (s *Session) Name() string { return s.name }

// InMulti reports whether the session is queuing commands for EXEC.
func (s *Session) InMulti() bool { return s.inMulti }

// Quitting reports whether QUIT was executed; the connection owner
// should flush and close.
func (s *Session) Quitting() bool { return s.quit }

// FailQueued taints an open MULTI block. The connection owner calls it
// when a command fails to decode, so a later EXEC aborts instead of
// running a partial queue.
func (s *Session) FailQueued() {
	if s.inMulti {
		s.dirty = true
	}
}

func (s *Session) resetMulti() {
	s.inMulti = false
	s.dirty = false
	s.queue = nil
}

// clearWatches drops the session's interest in its watched keys. Engine
// registrations stay behind until they fire or the connection context
// ends; a dropped channel is never consulted again.
func (s *Session) clearWatches() {
	s.watches = make(map[string]<-chan struct{})
}
