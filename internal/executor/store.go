package executor

import (
	"encoding/hex"
	"errors"
	"math"
	"time"

	"github.com/gobwas/glob"

	"github.com/kvgate/kvgate/internal/command"
	"github.com/kvgate/kvgate/internal/resp"
	"github.com/kvgate/kvgate/internal/storage"
	"github.com/kvgate/kvgate/pkg/optional"
)

// SCAN examination window: the default when the client gives no COUNT,
// and a ceiling so one call cannot walk an unbounded keyspace slice.
const (
	defaultScanCount = 10
	maxScanCount     = 1 << 20
)

func (e *Executor) storeGet(tx storage.Tx, c *command.Get, w *resp.Writer) error {
	val, err := tx.Get(c.Key)
	switch {
	case err == nil:
		return w.Bulk(val)
	case errors.Is(err, storage.ErrKeyNotFound):
		return w.Null()
	default:
		return w.Error(serverError(err))
	}
}

func (e *Executor) storeGetDel(tx storage.Tx, c *command.GetDel, w *resp.Writer) error {
	val, err := tx.Get(c.Key)
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
		return w.Null()
	case err != nil:
		return w.Error(serverError(err))
	}
	if err := tx.Delete(c.Key); err != nil {
		return w.Error(serverError(err))
	}
	return w.Bulk(val)
}

func (e *Executor) storeSet(tx storage.Tx, c *command.Set, w *resp.Writer) error {
	opts := c.Options

	// The old value is only read when an option needs it, so a plain
	// SET stays a blind write and cannot hit a read conflict.
	var old []byte
	exists := false
	if opts.Get || opts.Existence.IsSome() {
		v, err := tx.Get(c.Key)
		switch {
		case err == nil:
			old, exists = v, true
		case errors.Is(err, storage.ErrKeyNotFound):
		default:
			return w.Error(serverError(err))
		}
	}

	if cond, ok := opts.Existence.Get(); ok {
		blocked := cond == command.IfAbsent && exists ||
			cond == command.IfPresent && !exists
		if blocked {
			if opts.Get && exists {
				return w.Bulk(old)
			}
			return w.Null()
		}
	}

	if err := e.writeValue(tx, c.Key, c.Value, opts.Expiry); err != nil {
		if errors.Is(err, errInvalidExpire) {
			return w.Error("ERR invalid expire time in 'set' command")
		}
		return w.Error(serverError(err))
	}

	if opts.Get {
		if !exists {
			return w.Null()
		}
		return w.Bulk(old)
	}
	return w.OK()
}

var errInvalidExpire = errors.New("invalid expire time")

// writeValue stores value at key honoring the optional expiry modifier.
// An absolute deadline already in the past deletes the key: the write
// succeeds and the value is born expired.
func (e *Executor) writeValue(tx storage.Tx, key, value string, expiry optional.Value[command.Expiry]) error {
	exp, ok := expiry.Get()
	if !ok {
		return tx.Set(key, []byte(value))
	}

	if exp.Kind == command.ExpiryKeep {
		ttl, has, err := tx.TTL(key)
		if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
			return err
		}
		if err == nil && has {
			return tx.SetTTL(key, []byte(value), ttl)
		}
		return tx.Set(key, []byte(value))
	}

	ttl, err := relativeTTL(exp)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return tx.Delete(key)
	}
	return tx.SetTTL(key, []byte(value), ttl)
}

// relativeTTL converts an expiry modifier to a duration from now.
// Relative kinds must be positive and representable; absolute kinds may
// come out non-positive, meaning the deadline has passed.
func relativeTTL(exp command.Expiry) (time.Duration, error) {
	switch exp.Kind {
	case command.ExpirySeconds:
		if exp.Value == 0 || exp.Value > uint64(math.MaxInt64/int64(time.Second)) {
			return 0, errInvalidExpire
		}
		return time.Duration(exp.Value) * time.Second, nil
	case command.ExpiryMillis:
		if exp.Value == 0 || exp.Value > uint64(math.MaxInt64/int64(time.Millisecond)) {
			return 0, errInvalidExpire
		}
		return time.Duration(exp.Value) * time.Millisecond, nil
	case command.ExpiryUnixSeconds:
		if exp.Value > uint64(math.MaxInt64/int64(time.Second)) {
			return 0, errInvalidExpire
		}
		return time.Until(time.Unix(int64(exp.Value), 0)), nil
	case command.ExpiryUnixMillis:
		if exp.Value > uint64(math.MaxInt64/int64(time.Millisecond)) {
			return 0, errInvalidExpire
		}
		return time.Until(time.UnixMilli(int64(exp.Value))), nil
	}
	return 0, errInvalidExpire
}

func (e *Executor) storeDel(tx storage.Tx, keys []string, w *resp.Writer) error {
	removed := int64(0)
	for _, k := range keys {
		_, err := tx.Get(k)
		switch {
		case errors.Is(err, storage.ErrKeyNotFound):
			continue
		case err != nil:
			return w.Error(serverError(err))
		}
		if err := tx.Delete(k); err != nil {
			return w.Error(serverError(err))
		}
		removed++
	}
	return w.Int(removed)
}

func (e *Executor) storeExists(tx storage.Tx, keys []string, w *resp.Writer) error {
	// Repeated keys count once per mention.
	found := int64(0)
	for _, k := range keys {
		_, err := tx.Get(k)
		switch {
		case err == nil:
			found++
		case errors.Is(err, storage.ErrKeyNotFound):
		default:
			return w.Error(serverError(err))
		}
	}
	return w.Int(found)
}

func (e *Executor) storeAdd(tx storage.Tx, key string, delta int64, w *resp.Writer) error {
	n, err := tx.Add(key, delta)
	switch {
	case err == nil:
		return w.Int(n)
	case errors.Is(err, storage.ErrNotInteger):
		return w.Error("ERR value is not an integer or out of range")
	case errors.Is(err, storage.ErrIntegerOverflow):
		return w.Error("ERR increment or decrement would overflow")
	default:
		return w.Error(serverError(err))
	}
}

func (e *Executor) storeDecrBy(tx storage.Tx, c *command.DecrBy, w *resp.Writer) error {
	// -MinInt64 is not representable.
	if c.Delta == math.MinInt64 {
		return w.Error("ERR decrement would overflow")
	}
	return e.storeAdd(tx, c.Key, -c.Delta, w)
}

func (e *Executor) storeTTL(tx storage.Tx, key string, w *resp.Writer) error {
	dur, has, err := tx.TTL(key)
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
		return w.Int(-2)
	case err != nil:
		return w.Error(serverError(err))
	case !has:
		return w.Int(-1)
	}
	return w.Int(int64((dur + time.Second/2) / time.Second))
}

func (e *Executor) storeExpire(tx storage.Tx, c *command.Expire, w *resp.Writer) error {
	if c.Seconds > math.MaxInt64/int64(time.Second) || c.Seconds < math.MinInt64/int64(time.Second) {
		return w.Error("ERR invalid expire time in 'expire' command")
	}

	val, err := tx.Get(c.Key)
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
		return w.Int(0)
	case err != nil:
		return w.Error(serverError(err))
	}

	cur, has, err := tx.TTL(c.Key)
	if err != nil {
		return w.Error(serverError(err))
	}

	if flag, ok := c.Flag.Get(); ok {
		next := time.Duration(c.Seconds) * time.Second
		allowed := true
		switch flag {
		case command.ExpireIfNone:
			allowed = !has
		case command.ExpireIfSome:
			allowed = has
		case command.ExpireIfGreater:
			// No current expiry counts as infinite, so nothing is greater.
			allowed = has && next > cur
		case command.ExpireIfLess:
			allowed = !has || next < cur
		}
		if !allowed {
			return w.Int(0)
		}
	}

	if c.Seconds <= 0 {
		if err := tx.Delete(c.Key); err != nil {
			return w.Error(serverError(err))
		}
		return w.Int(1)
	}
	if err := tx.SetTTL(c.Key, val, time.Duration(c.Seconds)*time.Second); err != nil {
		return w.Error(serverError(err))
	}
	return w.Int(1)
}

func (e *Executor) storeScan(tx storage.Tx, c *command.Scan, w *resp.Writer) error {
	start, err := decodeCursor(c.Cursor)
	if err != nil {
		return w.Error("ERR invalid cursor")
	}

	var matcher glob.Glob
	if pat, ok := c.Match.Get(); ok {
		m, err := glob.Compile(pat)
		if err != nil {
			return w.Error("ERR invalid MATCH pattern")
		}
		matcher = m
	}

	count := defaultScanCount
	if n, ok := c.Count.Get(); ok {
		if n == 0 {
			return w.Error("ERR syntax error")
		}
		if n > maxScanCount {
			n = maxScanCount
		}
		count = int(n)
	}

	// COUNT bounds the keys examined, not the keys returned; MATCH
	// filters the examined window.
	var keys []string
	var last string
	examined := 0
	more := false
	err = tx.ScanKeys(start, func(k string) bool {
		if examined == count {
			more = true
			return false
		}
		examined++
		last = k
		if matcher == nil || matcher.Match(k) {
			keys = append(keys, k)
		}
		return true
	})
	if err != nil {
		return w.Error(serverError(err))
	}

	next := "0"
	if more {
		next = encodeCursor(last)
	}
	if err := w.ArrayHeader(2); err != nil {
		return err
	}
	if err := w.BulkString(next); err != nil {
		return err
	}
	if err := w.ArrayHeader(len(keys)); err != nil {
		return err
	}
	for _, k := range keys {
		if err := w.BulkString(k); err != nil {
			return err
		}
	}
	return nil
}

// Cursors are resume-after tokens: the hex encoding of the last key the
// previous call examined. "0" means start from the beginning, and is
// unambiguous because hex encodings have even length.
func encodeCursor(lastKey string) string {
	return hex.EncodeToString([]byte(lastKey))
}

func decodeCursor(cursor string) (start string, err error) {
	if cursor == "0" {
		return "", nil
	}
	b, err := hex.DecodeString(cursor)
	if err != nil {
		return "", err
	}
	// Resume strictly after the cursor key.
	return string(b) + "\x00", nil
}

func (e *Executor) storeFlush(tx storage.Tx, w *resp.Writer) error {
	// ASYNC and SYNC both clear within the transaction; the distinction
	// is accepted for compatibility.
	if err := tx.Clear(); err != nil {
		return w.Error(serverError(err))
	}
	return w.OK()
}
