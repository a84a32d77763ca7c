package executor

import (
	"bytes"
	"context"
	"errors"

	"github.com/kvgate/kvgate/internal/command"
	"github.com/kvgate/kvgate/internal/resp"
	"github.com/kvgate/kvgate/internal/storage"
)

func (e *Executor) execMulti(sess *Session, w *resp.Writer) error {
	sess.inMulti = true
	sess.dirty = false
	sess.queue = nil
	return w.OK()
}

func (e *Executor) execDiscard(sess *Session, w *resp.Writer) error {
	if !sess.inMulti {
		return w.Error("ERR DISCARD without MULTI")
	}
	sess.resetMulti()
	sess.clearWatches()
	return w.OK()
}

func (e *Executor) execWatch(ctx context.Context, sess *Session, c *command.Watch, w *resp.Writer) error {
	for _, key := range c.Keys {
		if _, ok := sess.watches[key]; ok {
			continue
		}
		ch, err := e.eng.Watch(ctx, key)
		if err != nil {
			return w.Error(serverError(err))
		}
		sess.watches[key] = ch
	}
	return w.OK()
}

// execExec runs the queued commands in one storage transaction. The
// whole block aborts with a null reply, never a retry, when a watched
// key changed, either before EXEC (the watch notification fired) or
// during it (the commit conflicted). Failures of individual commands
// become error elements and do not abort the rest.
func (e *Executor) execExec(ctx context.Context, sess *Session, w *resp.Writer) error {
	if !sess.inMulti {
		return w.Error("ERR EXEC without MULTI")
	}

	queue := sess.queue
	dirty := sess.dirty
	watches := sess.watches
	sess.resetMulti()
	sess.clearWatches()

	if dirty {
		e.countTxnAbort()
		return w.Error("EXECABORT Transaction discarded because of previous errors.")
	}
	for _, ch := range watches {
		select {
		case <-ch:
			e.countTxnAbort()
			return w.NullArray()
		default:
		}
	}

	var buf bytes.Buffer
	sw := resp.NewWriter(&buf)
	sw.SetProtocol(w.Protocol())

	tx := e.eng.Begin(true)
	defer tx.Discard()

	// Reading the watched keys puts them in the conflict set, closing
	// the gap between the fired-watch check and the snapshot.
	for key := range watches {
		if _, err := tx.Get(key); err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
			return w.Error(serverError(err))
		}
	}

	for _, qc := range queue {
		if err := e.applyQueued(tx, qc, sw); err != nil {
			return w.Error(serverError(err))
		}
	}
	if err := sw.Flush(); err != nil {
		return w.Error(serverError(err))
	}

	if err := tx.Commit(); err != nil {
		if e.eng.IsRetryable(err) {
			e.countTxnAbort()
			return w.NullArray()
		}
		e.logger.Warn("transaction commit failed", "session", sess.ID, "error", err)
		return w.Error(serverError(err))
	}

	if err := w.ArrayHeader(len(queue)); err != nil {
		return err
	}
	return w.Raw(buf.Bytes())
}
