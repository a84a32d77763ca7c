package storage

import (
	"context"
	"errors"
	"time"
)

// Common errors
var (
	// ErrKeyNotFound reports a point read of an absent (or expired) key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrConflict reports a commit that lost a write-write race. It is
	// the only retryable failure.
	ErrConflict = errors.New("transaction conflict")

	// ErrTxClosed reports use of a transaction after Commit or Discard.
	ErrTxClosed = errors.New("transaction closed")

	// ErrReadOnly reports a write through a read-only transaction.
	ErrReadOnly = errors.New("read-only transaction")

	// ErrClosed reports use of an engine after Close.
	ErrClosed = errors.New("kv engine closed")

	// ErrNotInteger reports an arithmetic op on a value that does not
	// hold a decimal integer.
	ErrNotInteger = errors.New("value is not an integer")

	// ErrIntegerOverflow reports an arithmetic op whose result would
	// not fit in a signed 64-bit integer.
	ErrIntegerOverflow = errors.New("increment or decrement would overflow")
)

// Tx is one transaction against an engine. Write transactions buffer
// their mutations until Commit; read transactions observe a stable
// snapshot. A transaction is not safe for concurrent use.
type Tx interface {
	// Get returns a copy of the value at key, or ErrKeyNotFound.
	Get(key string) ([]byte, error)

	// Set stores value at key and clears any expiry.
	Set(key string, value []byte) error

	// SetTTL stores value at key with a relative expiry. A ttl of zero
	// or less behaves like Set.
	SetTTL(key string, value []byte, ttl time.Duration) error

	// TTL reports the remaining lifetime of key. The bool is false for
	// a key with no expiry. Missing keys return ErrKeyNotFound.
	TTL(key string) (time.Duration, bool, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	// Add atomically adds delta to the decimal integer stored at key,
	// creating it as zero first, and returns the new value. The key's
	// expiry is preserved. Fails with ErrNotInteger or
	// ErrIntegerOverflow.
	Add(key string, delta int64) (int64, error)

	// ScanKeys walks live keys in ascending byte order starting at
	// start (inclusive). The walk stops when fn returns false.
	ScanKeys(start string, fn func(key string) bool) error

	// ClearRange deletes every key k with start <= k < end. An empty
	// end is unbounded.
	ClearRange(start, end string) error

	// Clear deletes every key. Equivalent to ClearRange("", "").
	Clear() error

	// Commit applies the buffered writes. Fails with ErrConflict when
	// a key read or written here changed since the transaction began.
	Commit() error

	// Discard drops the transaction. Safe to call after Commit.
	Discard()
}

// Engine is a transactional key-value store.
type Engine interface {
	// Begin opens a transaction. Only update transactions may write.
	Begin(update bool) Tx

	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(Tx) error) error

	// Watch returns a channel that is closed the first time key is
	// written or deleted after the call. The registration is dropped
	// once fired or when ctx is done.
	Watch(ctx context.Context, key string) (<-chan struct{}, error)

	// IsRetryable reports whether err is a transient conflict worth
	// retrying with a fresh transaction.
	IsRetryable(err error) bool

	// Close releases the engine. Transactions in flight fail.
	Close() error
}
