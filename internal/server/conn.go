package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kvgate/kvgate/internal/command"
	"github.com/kvgate/kvgate/internal/executor"
	"github.com/kvgate/kvgate/internal/resp"
	"github.com/kvgate/kvgate/internal/resp/bind"
	"github.com/kvgate/kvgate/internal/telemetry/logger"
)

// maxInlineBytes caps an inline command line. Anything longer is not a
// typed-by-hand command.
const maxInlineBytes = 64 * 1024

// clientConn is one accepted connection plus its accumulated input.
type clientConn struct {
	id      string
	netConn net.Conn
	sess    *executor.Session
	w       *resp.Writer

	buf    []byte
	chunk  []byte
	closed atomic.Bool
}

func (c *clientConn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}

// consume drops the decoded prefix, keeping rest (a tail of c.buf) as
// the new buffer contents.
func (c *clientConn) consume(rest []byte) {
	c.buf = append(c.buf[:0], rest...)
}

func (s *Server) serveConn(conn net.Conn) {
	id := newConnID()
	c := &clientConn{
		id:      id,
		netConn: conn,
		sess:    executor.NewSession(id),
		w:       resp.NewWriter(conn),
		chunk:   make([]byte, 4096),
	}
	s.conns.Set(id, c)
	if s.metrics != nil {
		s.metrics.ConnOpened()
	}

	log := s.logger.With("conn_id", id, "remote", conn.RemoteAddr().String())
	log.Debug("connection accepted")

	defer func() {
		c.Close()
		s.conns.Delete(id)
		if s.metrics != nil {
			s.metrics.ConnClosed()
		}
		log.Debug("connection closed")
	}()

	ctx, cancel := context.WithCancel(s.baseCtx)
	defer cancel()
	ctx = logger.WithConnID(ctx, id)

	for {
		if len(c.buf) == 0 {
			if err := s.fill(c, true); err != nil {
				logReadEnd(log, err)
				return
			}
			continue
		}

		switch b := c.buf[0]; {
		case b == byte(resp.TypeArray):
			cmd, rest, err := command.ParseLimits(c.buf, s.cfg.Limits)
			switch {
			case err == nil:
				c.consume(rest)
				if !s.dispatch(ctx, c, cmd, log) {
					return
				}
			case errors.Is(err, resp.ErrIncomplete):
				if err := s.fill(c, false); err != nil {
					logReadEnd(log, err)
					return
				}
			case errors.Is(err, command.ErrEmptyCommand):
				// Empty request arrays are ignored.
				c.consume(rest)
			default:
				if !s.recoverDecodeError(c, err, log) {
					return
				}
			}

		case resp.KnownType(b):
			// A well-formed frame of the wrong kind: answer and skip it.
			if !s.recoverDecodeError(c, &notArrayError{got: b}, log) {
				return
			}

		default:
			if !s.handleInline(ctx, c, log) {
				return
			}
		}
	}
}

// fill reads more input into c.buf. idle selects the between-commands
// deadline; mid-frame reads use the tighter ReadTimeout.
func (s *Server) fill(c *clientConn, idle bool) error {
	var deadline time.Time
	if idle {
		if s.cfg.IdleTimeout > 0 {
			deadline = time.Now().Add(s.cfg.IdleTimeout)
		}
	} else {
		deadline = time.Now().Add(s.cfg.ReadTimeout)
	}
	if err := c.netConn.SetReadDeadline(deadline); err != nil {
		return err
	}

	n, err := c.netConn.Read(c.chunk)
	if n > 0 {
		c.buf = append(c.buf, c.chunk[:n]...)
		return nil
	}
	if err == nil {
		err = io.EOF
	}
	return err
}

func logReadEnd(log *slog.Logger, err error) {
	switch {
	case errors.Is(err, io.EOF):
	case isTimeout(err):
		log.Debug("connection timed out")
	case errors.Is(err, net.ErrClosed):
	default:
		log.Debug("connection read error", "error", err)
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// dispatch runs one parsed command through the executor. It returns
// false when the connection should close.
func (s *Server) dispatch(ctx context.Context, c *clientConn, cmd command.Command, log *slog.Logger) bool {
	if s.cfg.Rate > 0 {
		if !s.limiterFor(clientIP(c.netConn.RemoteAddr())).Allow() {
			if s.metrics != nil {
				s.metrics.RateLimited.Inc()
			}
			return s.reply(c, "ERR rate limit exceeded", log)
		}
	}

	if err := c.netConn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		return false
	}

	start := time.Now()
	err := s.exec.Execute(ctx, c.sess, cmd, c.w)
	if s.metrics != nil {
		s.metrics.ObserveCommand(strings.ToLower(cmd.Name()), time.Since(start))
	}
	if err != nil {
		log.Debug("reply write failed", "command", cmd.Name(), "error", err)
		return false
	}
	if err := c.w.Flush(); err != nil {
		return false
	}
	return !c.sess.Quitting()
}

// reply writes a lone error line outside the executor path.
func (s *Server) reply(c *clientConn, msg string, log *slog.Logger) bool {
	if err := c.netConn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		return false
	}
	if err := c.w.Error(msg); err != nil {
		return false
	}
	if err := c.w.Flush(); err != nil {
		return false
	}
	return true
}

// notArrayError reports a request frame that is valid RESP but not the
// array shape requests must have.
type notArrayError struct{ got byte }

func (e *notArrayError) Error() string {
	return "request frame is " + resp.Type(e.got).String() + ", not array"
}

// recoverDecodeError answers a failed decode and, where the stream
// allows it, resynchronizes by skipping exactly one well-formed frame.
// It returns false when the connection is beyond recovery.
func (s *Server) recoverDecodeError(c *clientConn, decodeErr error, log *slog.Logger) bool {
	if s.metrics != nil {
		s.metrics.CountDecodeError(decodeErrorKind(decodeErr))
	}
	// A request that cannot be decoded taints an open MULTI block.
	if c.sess.InMulti() {
		c.sess.FailQueued()
	}
	log.Debug("request decode failed", "error", decodeErr)

	if !s.reply(c, decodeErrorReply(decodeErr), log) {
		return false
	}

	// Grammar-level corruption leaves no frame boundary to skip to.
	if errors.Is(decodeErr, resp.ErrMalformed) || errors.Is(decodeErr, resp.ErrSizeLimit) {
		log.Warn("closing unrecoverable connection", "error", decodeErr)
		return false
	}
	return s.skipFrame(c, log)
}

// skipFrame drains exactly one frame from the stream, reading more
// input as needed. Used after shape errors: the frame is valid RESP,
// just not a valid request.
func (s *Server) skipFrame(c *clientConn, log *slog.Logger) bool {
	for {
		cur, err := resp.SkipFrame(resp.NewCursorLimits(c.buf, s.cfg.Limits))
		switch {
		case err == nil:
			c.consume(cur.Remaining())
			return true
		case errors.Is(err, resp.ErrIncomplete):
			if err := s.fill(c, false); err != nil {
				logReadEnd(log, err)
				return false
			}
		default:
			log.Warn("closing unrecoverable connection", "error", err)
			return false
		}
	}
}

// handleInline consumes one text-protocol line and runs it as a
// command. Blank lines are ignored.
func (s *Server) handleInline(ctx context.Context, c *clientConn, log *slog.Logger) bool {
	nl := bytes.IndexByte(c.buf, '\n')
	if nl < 0 {
		if len(c.buf) > maxInlineBytes {
			s.reply(c, "ERR Protocol error: too big inline request", log)
			return false
		}
		if err := s.fill(c, false); err != nil {
			logReadEnd(log, err)
			return false
		}
		return true
	}

	line := bytes.TrimSuffix(c.buf[:nl], []byte("\r"))
	rest := c.buf[nl+1:]

	cmd, err := command.ParseInline(line)
	c.consume(rest)
	switch {
	case err == nil:
		return s.dispatch(ctx, c, cmd, log)
	case errors.Is(err, command.ErrEmptyCommand):
		return true
	default:
		if s.metrics != nil {
			s.metrics.CountDecodeError(decodeErrorKind(err))
		}
		if c.sess.InMulti() {
			c.sess.FailQueued()
		}
		return s.reply(c, decodeErrorReply(err), log)
	}
}

// decodeErrorKind buckets a decode failure for the error counter.
func decodeErrorKind(err error) string {
	var unknown *command.UnknownCommandError
	switch {
	case errors.As(err, &unknown):
		return "unknown_command"
	case errors.Is(err, resp.ErrSizeLimit):
		return "size_limit"
	case errors.Is(err, resp.ErrMalformed):
		return "malformed"
	default:
		return "shape"
	}
}

// decodeErrorReply maps a decode failure to its client-facing error
// line.
func decodeErrorReply(err error) string {
	var unknown *command.UnknownCommandError
	if errors.As(err, &unknown) {
		if unknown.Attempted == "" {
			return "ERR unknown command ''"
		}
		return "ERR unknown command '" + unknown.Attempted + "'"
	}

	var cmdErr *command.CommandError
	if errors.As(err, &cmdErr) {
		name := strings.ToLower(cmdErr.Name)
		switch {
		case errors.Is(cmdErr.Err, bind.ErrExhausted), errors.Is(cmdErr.Err, bind.ErrTrailing):
			return "ERR wrong number of arguments for '" + name + "' command"
		case errors.Is(cmdErr.Err, bind.ErrOutOfRange):
			return "ERR value is not an integer or out of range"
		case errors.Is(cmdErr.Err, resp.ErrInvalidUTF8):
			return "ERR invalid UTF-8 in argument"
		default:
			return "ERR syntax error"
		}
	}

	var notArray *notArrayError
	switch {
	case errors.As(err, &notArray):
		return "ERR Protocol error: expected '*', got '" + string(notArray.got) + "'"
	case errors.Is(err, resp.ErrSizeLimit):
		return "ERR Protocol error: invalid bulk length"
	case errors.Is(err, resp.ErrInvalidUTF8):
		return "ERR Protocol error: invalid payload encoding"
	case errors.Is(err, resp.ErrMalformed):
		return "ERR Protocol error: malformed frame"
	default:
		return "ERR Protocol error: " + err.Error()
	}
}
