package executor

import (
	"errors"

	"github.com/kvgate/kvgate/internal/auth"
	"github.com/kvgate/kvgate/internal/command"
	"github.com/kvgate/kvgate/internal/infra/buildinfo"
	"github.com/kvgate/kvgate/internal/resp"
)

func (e *Executor) execPing(c *command.Ping, w *resp.Writer) error {
	if msg, ok := c.Message.Get(); ok {
		return w.BulkString(msg)
	}
	return w.SimpleString("PONG")
}

func (e *Executor) execEcho(c *command.Echo, w *resp.Writer) error {
	return w.BulkString(c.Message)
}

func (e *Executor) execAuth(sess *Session, c *command.Auth, w *resp.Writer) error {
	user := c.Username.Or(auth.DefaultUser)
	ok, err := e.authenticate(sess, user, c.Password, w)
	if err != nil || !ok {
		return err
	}
	return w.OK()
}

// authenticate verifies the pair and marks the session on success. On
// failure the error reply has already been written and ok is false.
func (e *Executor) authenticate(sess *Session, user, password string, w *resp.Writer) (ok bool, err error) {
	switch err := e.users.Authenticate(user, password); {
	case err == nil:
		sess.authed = true
		sess.user = user
		e.logger.Debug("authenticated", "session", sess.ID, "user", user)
		return true, nil
	case errors.Is(err, auth.ErrAuthDisabled):
		return false, w.Error("ERR Client sent AUTH, but no password is set. Did you mean AUTH <username> <password>?")
	case errors.Is(err, auth.ErrThrottled):
		e.countAuthFailure()
		e.logger.Warn("authentication throttled", "session", sess.ID, "user", user)
		return false, w.Error("ERR too many authentication attempts, slow down")
	default:
		e.countAuthFailure()
		e.logger.Warn("authentication failed", "session", sess.ID, "user", user)
		return false, w.Error("WRONGPASS invalid username-password pair or user is disabled.")
	}
}

func (e *Executor) execHello(sess *Session, c *command.Hello, w *resp.Writer) error {
	proto := sess.proto
	if v, ok := c.ProtoVer.Get(); ok {
		if v < 2 || v > 3 {
			return w.Error("NOPROTO unsupported protocol version")
		}
		proto = int(v)
	}

	if a, ok := c.Auth.Get(); ok {
		authed, err := e.authenticate(sess, a.Username, a.Password, w)
		if err != nil || !authed {
			return err
		}
	} else if e.users.Enabled() && !sess.authed {
		return w.Error("NOAUTH HELLO must be called with the client already authenticated, " +
			"otherwise the HELLO <proto> AUTH <user> <pass> option can be used to authenticate " +
			"the client and select the RESP protocol version at the same time")
	}

	if name, ok := c.SetName.Get(); ok {
		sess.name = name
	}

	// The reply itself is already encoded in the negotiated protocol.
	sess.proto = proto
	w.SetProtocol(proto)

	if err := w.MapHeader(7); err != nil {
		return err
	}
	if err := writePair(w, "server", func() error { return w.BulkString("kvgate") }); err != nil {
		return err
	}
	if err := writePair(w, "version", func() error { return w.BulkString(buildinfo.Version) }); err != nil {
		return err
	}
	if err := writePair(w, "proto", func() error { return w.Int(int64(proto)) }); err != nil {
		return err
	}
	if err := writePair(w, "id", func() error { return w.BulkString(sess.ID) }); err != nil {
		return err
	}
	if err := writePair(w, "mode", func() error { return w.BulkString("standalone") }); err != nil {
		return err
	}
	if err := writePair(w, "role", func() error { return w.BulkString("master") }); err != nil {
		return err
	}
	return writePair(w, "modules", func() error { return w.ArrayHeader(0) })
}

func writePair(w *resp.Writer, field string, value func() error) error {
	if err := w.BulkString(field); err != nil {
		return err
	}
	return value()
}
