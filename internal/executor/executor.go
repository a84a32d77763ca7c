package executor

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/kvgate/kvgate/internal/auth"
	"github.com/kvgate/kvgate/internal/command"
	"github.com/kvgate/kvgate/internal/resp"
	"github.com/kvgate/kvgate/internal/storage"
	"github.com/kvgate/kvgate/internal/telemetry/metric"
)

// Executor maps commands onto the storage engine. One instance is
// shared by every connection.
type Executor struct {
	eng     storage.Engine
	users   *auth.Registry
	logger  *slog.Logger
	metrics *metric.Registry
}

// New creates an Executor. A nil logger falls back to slog.Default.
func New(eng storage.Engine, users *auth.Registry, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{eng: eng, users: users, logger: logger}
}

// WithMetrics attaches a metric registry for auth-failure and
// transaction-abort counters. Returns e for chaining.
func (e *Executor) WithMetrics(m *metric.Registry) *Executor {
	e.metrics = m
	return e
}

func (e *Executor) countAuthFailure() {
	if e.metrics != nil {
		e.metrics.AuthFailures.Inc()
	}
}

func (e *Executor) countTxnAbort() {
	if e.metrics != nil {
		e.metrics.TxnAborts.Inc()
	}
}

// serverError renders an unexpected error as a reply string.
func serverError(err error) string {
	return "ERR " + err.Error()
}

// Execute runs one command and writes its reply. The returned error
// reports a failed reply write, meaning the connection is broken;
// command-level failures are written as error replies and return nil.
// ctx should be connection-scoped: WATCH registrations live until it
// ends.
func (e *Executor) Execute(ctx context.Context, sess *Session, cmd command.Command, w *resp.Writer) error {
	if e.users.Enabled() && !sess.authed {
		switch cmd.(type) {
		case *command.Auth, *command.Hello, *command.Quit:
		default:
			return w.Error("NOAUTH Authentication required.")
		}
	}

	if sess.inMulti {
		switch cmd.(type) {
		case *command.Multi:
			return w.Error("ERR MULTI calls can not be nested")
		case *command.Watch:
			return w.Error("ERR WATCH inside MULTI is not allowed")
		case *command.Auth, *command.Hello:
			// Connection-state changes cannot be deferred to EXEC.
			sess.dirty = true
			return w.Error("ERR " + cmd.Name() + " is not allowed in transactions")
		case *command.Exec, *command.Discard, *command.Quit:
		default:
			sess.queue = append(sess.queue, cmd)
			return w.SimpleString("QUEUED")
		}
	}

	switch c := cmd.(type) {
	case *command.Ping:
		return e.execPing(c, w)
	case *command.Echo:
		return e.execEcho(c, w)
	case *command.Quit:
		sess.quit = true
		return w.OK()
	case *command.Auth:
		return e.execAuth(sess, c, w)
	case *command.Hello:
		return e.execHello(sess, c, w)
	case *command.CommandInfo:
		return e.execCommandInfo(c, w)

	case *command.Get:
		return e.runView(ctx, w, func(tx storage.Tx) error { return e.storeGet(tx, c, w) })
	case *command.Exists:
		return e.runView(ctx, w, func(tx storage.Tx) error { return e.storeExists(tx, c.Keys, w) })
	case *command.TTL:
		return e.runView(ctx, w, func(tx storage.Tx) error { return e.storeTTL(tx, c.Key, w) })
	case *command.Scan:
		return e.runView(ctx, w, func(tx storage.Tx) error { return e.storeScan(tx, c, w) })

	case *command.GetDel:
		return e.runUpdate(ctx, w, func(tx storage.Tx, sw *resp.Writer) error { return e.storeGetDel(tx, c, sw) })
	case *command.Set:
		return e.runUpdate(ctx, w, func(tx storage.Tx, sw *resp.Writer) error { return e.storeSet(tx, c, sw) })
	case *command.Del:
		return e.runUpdate(ctx, w, func(tx storage.Tx, sw *resp.Writer) error { return e.storeDel(tx, c.Keys, sw) })
	case *command.Incr:
		return e.runUpdate(ctx, w, func(tx storage.Tx, sw *resp.Writer) error { return e.storeAdd(tx, c.Key, 1, sw) })
	case *command.Decr:
		return e.runUpdate(ctx, w, func(tx storage.Tx, sw *resp.Writer) error { return e.storeAdd(tx, c.Key, -1, sw) })
	case *command.IncrBy:
		return e.runUpdate(ctx, w, func(tx storage.Tx, sw *resp.Writer) error { return e.storeAdd(tx, c.Key, c.Delta, sw) })
	case *command.DecrBy:
		return e.runUpdate(ctx, w, func(tx storage.Tx, sw *resp.Writer) error { return e.storeDecrBy(tx, c, sw) })
	case *command.Expire:
		return e.runUpdate(ctx, w, func(tx storage.Tx, sw *resp.Writer) error { return e.storeExpire(tx, c, sw) })
	case *command.FlushDB:
		return e.runUpdate(ctx, w, func(tx storage.Tx, sw *resp.Writer) error { return e.storeFlush(tx, sw) })

	case *command.Multi:
		return e.execMulti(sess, w)
	case *command.Exec:
		return e.execExec(ctx, sess, w)
	case *command.Discard:
		return e.execDiscard(sess, w)
	case *command.Watch:
		return e.execWatch(ctx, sess, c, w)
	case *command.Unwatch:
		sess.clearWatches()
		return w.OK()
	}

	// The parser's registry and this dispatch enumerate the same set.
	return w.Error("ERR unknown command '" + cmd.Name() + "'")
}

// runView runs fn in a read-only transaction, writing replies straight
// to the connection. Reads never hit commit conflicts, so there is no
// retry and nothing to stage.
func (e *Executor) runView(ctx context.Context, w *resp.Writer, fn func(storage.Tx) error) error {
	if err := e.eng.View(ctx, fn); err != nil {
		return w.Error(serverError(err))
	}
	return nil
}

// runUpdate runs fn in a write transaction with conflict retries. The
// reply is staged on a buffer and reaches the connection only after the
// winning attempt commits.
func (e *Executor) runUpdate(ctx context.Context, w *resp.Writer, fn func(storage.Tx, *resp.Writer) error) error {
	var out []byte
	err := storage.Update(ctx, e.eng, func(tx storage.Tx) error {
		var buf bytes.Buffer
		sw := resp.NewWriter(&buf)
		sw.SetProtocol(w.Protocol())
		if err := fn(tx, sw); err != nil {
			return err
		}
		if err := sw.Flush(); err != nil {
			return err
		}
		out = buf.Bytes()
		return nil
	})
	if err != nil {
		e.logger.Warn("update failed", "error", err)
		return w.Error(serverError(err))
	}
	return w.Raw(out)
}

// applyQueued dispatches one queued command inside an EXEC transaction.
// Replies go to the staged element writer; a command-level failure is
// an error element, not an abort.
func (e *Executor) applyQueued(tx storage.Tx, cmd command.Command, w *resp.Writer) error {
	switch c := cmd.(type) {
	case *command.Ping:
		return e.execPing(c, w)
	case *command.Echo:
		return e.execEcho(c, w)
	case *command.CommandInfo:
		return e.execCommandInfo(c, w)
	case *command.Get:
		return e.storeGet(tx, c, w)
	case *command.Exists:
		return e.storeExists(tx, c.Keys, w)
	case *command.TTL:
		return e.storeTTL(tx, c.Key, w)
	case *command.Scan:
		return e.storeScan(tx, c, w)
	case *command.GetDel:
		return e.storeGetDel(tx, c, w)
	case *command.Set:
		return e.storeSet(tx, c, w)
	case *command.Del:
		return e.storeDel(tx, c.Keys, w)
	case *command.Incr:
		return e.storeAdd(tx, c.Key, 1, w)
	case *command.Decr:
		return e.storeAdd(tx, c.Key, -1, w)
	case *command.IncrBy:
		return e.storeAdd(tx, c.Key, c.Delta, w)
	case *command.DecrBy:
		return e.storeDecrBy(tx, c, w)
	case *command.Expire:
		return e.storeExpire(tx, c, w)
	case *command.FlushDB:
		return e.storeFlush(tx, w)
	}
	return w.Error("ERR " + cmd.Name() + " is not allowed in transactions")
}
