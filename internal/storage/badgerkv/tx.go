package badgerkv

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/kvgate/kvgate/internal/storage"
)

// Tx wraps a Badger transaction. A shared Tx belongs to db.View, which
// owns its lifecycle.
type Tx struct {
	txn    *badger.Txn
	update bool
	shared bool
	dead   bool
	done   bool
}

var _ storage.Tx = (*Tx)(nil)

// mapErr translates Badger failures onto the storage sentinels.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return storage.ErrKeyNotFound
	case errors.Is(err, badger.ErrConflict):
		return storage.ErrConflict
	case errors.Is(err, badger.ErrDiscardedTxn):
		return storage.ErrTxClosed
	case errors.Is(err, badger.ErrReadOnlyTxn):
		return storage.ErrReadOnly
	case errors.Is(err, badger.ErrTxnTooBig):
		return fmt.Errorf("badgerkv: %w", err)
	case errors.Is(err, badger.ErrDBClosed):
		return storage.ErrClosed
	default:
		return err
	}
}

func (t *Tx) usable() error {
	if t.dead {
		return storage.ErrClosed
	}
	if t.done {
		return storage.ErrTxClosed
	}
	return nil
}

func (t *Tx) writable() error {
	if err := t.usable(); err != nil {
		return err
	}
	if !t.update {
		return storage.ErrReadOnly
	}
	return nil
}

func (t *Tx) Get(key string) ([]byte, error) {
	if err := t.usable(); err != nil {
		return nil, err
	}
	item, err := t.txn.Get([]byte(key))
	if err != nil {
		return nil, mapErr(err)
	}
	return item.ValueCopy(nil)
}

func (t *Tx) Set(key string, value []byte) error {
	if err := t.writable(); err != nil {
		return err
	}
	return mapErr(t.txn.Set([]byte(key), value))
}

func (t *Tx) SetTTL(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return t.Set(key, value)
	}
	if err := t.writable(); err != nil {
		return err
	}
	e := badger.NewEntry([]byte(key), value).WithTTL(ttl)
	return mapErr(t.txn.SetEntry(e))
}

func (t *Tx) TTL(key string) (time.Duration, bool, error) {
	if err := t.usable(); err != nil {
		return 0, false, err
	}
	item, err := t.txn.Get([]byte(key))
	if err != nil {
		return 0, false, mapErr(err)
	}
	exp := item.ExpiresAt()
	if exp == 0 {
		return 0, false, nil
	}
	remaining := time.Until(time.Unix(int64(exp), 0))
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true, nil
}

func (t *Tx) Delete(key string) error {
	if err := t.writable(); err != nil {
		return err
	}
	return mapErr(t.txn.Delete([]byte(key)))
}

func (t *Tx) Add(key string, delta int64) (int64, error) {
	if err := t.writable(); err != nil {
		return 0, err
	}

	var cur int64
	var ttl time.Duration
	item, err := t.txn.Get([]byte(key))
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		// Created as zero.
	case err != nil:
		return 0, mapErr(err)
	default:
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return 0, mapErr(err)
		}
		n, perr := strconv.ParseInt(string(raw), 10, 64)
		if perr != nil {
			return 0, storage.ErrNotInteger
		}
		cur = n
		if exp := item.ExpiresAt(); exp != 0 {
			ttl = time.Until(time.Unix(int64(exp), 0))
		}
	}

	if (delta > 0 && cur > math.MaxInt64-delta) || (delta < 0 && cur < math.MinInt64-delta) {
		return 0, storage.ErrIntegerOverflow
	}
	next := cur + delta
	raw := []byte(strconv.FormatInt(next, 10))
	if ttl > 0 {
		e := badger.NewEntry([]byte(key), raw).WithTTL(ttl)
		if err := t.txn.SetEntry(e); err != nil {
			return 0, mapErr(err)
		}
	} else if err := t.txn.Set([]byte(key), raw); err != nil {
		return 0, mapErr(err)
	}
	return next, nil
}

func (t *Tx) ScanKeys(start string, fn func(key string) bool) error {
	if err := t.usable(); err != nil {
		return err
	}
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := t.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek([]byte(start)); it.Valid(); it.Next() {
		if !fn(string(it.Item().Key())) {
			return nil
		}
	}
	return nil
}

func (t *Tx) ClearRange(start, end string) error {
	if err := t.writable(); err != nil {
		return err
	}

	// Collect first: mutating while iterating the same transaction is
	// not supported.
	var victims [][]byte
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := t.txn.NewIterator(opts)
	for it.Seek([]byte(start)); it.Valid(); it.Next() {
		key := it.Item().KeyCopy(nil)
		if end != "" && string(key) >= end {
			break
		}
		victims = append(victims, key)
	}
	it.Close()

	for _, key := range victims {
		if err := t.txn.Delete(key); err != nil {
			return mapErr(err)
		}
	}
	return nil
}

func (t *Tx) Clear() error {
	return t.ClearRange("", "")
}

func (t *Tx) Commit() error {
	if err := t.usable(); err != nil {
		return err
	}
	t.done = true
	if t.shared {
		return nil
	}
	return mapErr(t.txn.Commit())
}

func (t *Tx) Discard() {
	if t.dead || t.done {
		t.done = true
		return
	}
	t.done = true
	if !t.shared {
		t.txn.Discard()
	}
}
