// Package memkv provides an in-memory engine with per-key versions and
// optimistic commit-time validation. It backs tests and dev mode, so
// the conflict and retry contract behaves the same as the durable
// engine.
package memkv

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/kvgate/kvgate/internal/storage"
)

type entry struct {
	value     []byte
	version   uint64
	expiresAt time.Time // zero = no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !e.expiresAt.After(now)
}

// Store is an in-memory storage.Engine.
type Store struct {
	mu sync.RWMutex

	entries map[string]entry

	// tombstones remembers the write stamp of deleted keys so a
	// read-of-absence still conflicts with a later re-create.
	tombstones map[string]uint64

	watchers  map[string]map[uint64]chan struct{}
	nextWatch uint64

	stamp  uint64
	closed bool
}

var _ storage.Engine = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		entries:    make(map[string]entry),
		tombstones: make(map[string]uint64),
		watchers:   make(map[string]map[uint64]chan struct{}),
	}
}

// version reports the current write stamp of key, 0 if never written.
// Expired entries keep their stamp until removed, so reads that saw
// them stay valid as long as the store state is unchanged.
func (s *Store) version(key string) uint64 {
	if e, ok := s.entries[key]; ok {
		return e.version
	}
	return s.tombstones[key]
}

func (s *Store) bump() uint64 {
	s.stamp++
	return s.stamp
}

// fireLocked closes every watcher of key. Callers hold mu.
func (s *Store) fireLocked(key string) {
	for _, ch := range s.watchers[key] {
		close(ch)
	}
	delete(s.watchers, key)
}

// Begin opens a transaction.
func (s *Store) Begin(update bool) storage.Tx {
	return &Tx{
		s:       s,
		update:  update,
		reads:   make(map[string]uint64),
		pending: make(map[string]pendingWrite),
	}
}

// View runs fn in a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := s.Begin(false)
	defer tx.Discard()
	return fn(tx)
}

// Watch registers a one-shot notification for key.
func (s *Store) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, storage.ErrClosed
	}
	ch := make(chan struct{})
	s.nextWatch++
	id := s.nextWatch
	m := s.watchers[key]
	if m == nil {
		m = make(map[uint64]chan struct{})
		s.watchers[key] = m
	}
	m[id] = ch
	s.mu.Unlock()

	go func() {
		select {
		case <-ch:
		case <-ctx.Done():
			s.mu.Lock()
			if m, ok := s.watchers[key]; ok {
				delete(m, id)
				if len(m) == 0 {
					delete(s.watchers, key)
				}
			}
			s.mu.Unlock()
		}
	}()
	return ch, nil
}

// IsRetryable reports whether err is a commit conflict.
func (s *Store) IsRetryable(err error) bool {
	return errors.Is(err, storage.ErrConflict)
}

// Sweep removes expired entries and fires their watchers, returning
// how many were removed. Expiry by sweep counts as a modification.
func (s *Store) Sweep() int {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, e := range s.entries {
		if e.expired(now) {
			s.tombstones[k] = s.bump()
			delete(s.entries, k)
			s.fireLocked(k)
			removed++
		}
	}
	return removed
}

// Len reports the number of live keys.
func (s *Store) Len() int {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

// Close marks the store closed. Later transactions fail to commit.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	s.closed = true
	for key := range s.watchers {
		s.fireLocked(key)
	}
	return nil
}

type pendingWrite struct {
	value     []byte
	expiresAt time.Time
	delete    bool
}

// Tx is an optimistic transaction: reads record the version they saw,
// writes buffer until Commit, and Commit validates that every read key
// is unchanged before applying. Only keys actually read participate in
// conflict detection; blind writes follow last-writer-wins, matching
// the durable engine.
type Tx struct {
	s       *Store
	update  bool
	reads   map[string]uint64
	pending map[string]pendingWrite
	done    bool
}

var _ storage.Tx = (*Tx)(nil)

// lookup resolves key through pending writes, recording the read
// version for store-level reads. Callers hold s.mu at least for read.
func (t *Tx) lookup(key string, now time.Time) (entry, bool) {
	if w, ok := t.pending[key]; ok {
		if w.delete {
			return entry{}, false
		}
		return entry{value: w.value, expiresAt: w.expiresAt}, true
	}
	e, ok := t.s.entries[key]
	t.reads[key] = t.s.version(key)
	if !ok || e.expired(now) {
		return entry{}, false
	}
	return e, true
}

func (t *Tx) Get(key string) ([]byte, error) {
	if t.done {
		return nil, storage.ErrTxClosed
	}
	t.s.mu.RLock()
	e, ok := t.lookup(key, time.Now())
	t.s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (t *Tx) TTL(key string) (time.Duration, bool, error) {
	if t.done {
		return 0, false, storage.ErrTxClosed
	}
	now := time.Now()
	t.s.mu.RLock()
	e, ok := t.lookup(key, now)
	t.s.mu.RUnlock()
	if !ok {
		return 0, false, storage.ErrKeyNotFound
	}
	if e.expiresAt.IsZero() {
		return 0, false, nil
	}
	return e.expiresAt.Sub(now), true, nil
}

func (t *Tx) write(key string, w pendingWrite) error {
	if t.done {
		return storage.ErrTxClosed
	}
	if !t.update {
		return storage.ErrReadOnly
	}
	t.pending[key] = w
	return nil
}

func (t *Tx) Set(key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	return t.write(key, pendingWrite{value: v})
}

func (t *Tx) SetTTL(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return t.Set(key, value)
	}
	v := make([]byte, len(value))
	copy(v, value)
	return t.write(key, pendingWrite{value: v, expiresAt: time.Now().Add(ttl)})
}

func (t *Tx) Delete(key string) error {
	return t.write(key, pendingWrite{delete: true})
}

func (t *Tx) Add(key string, delta int64) (int64, error) {
	if t.done {
		return 0, storage.ErrTxClosed
	}
	if !t.update {
		return 0, storage.ErrReadOnly
	}
	now := time.Now()
	t.s.mu.RLock()
	e, ok := t.lookup(key, now)
	t.s.mu.RUnlock()

	var cur int64
	var expiresAt time.Time
	if ok {
		n, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, storage.ErrNotInteger
		}
		cur = n
		expiresAt = e.expiresAt
	}
	if (delta > 0 && cur > math.MaxInt64-delta) || (delta < 0 && cur < math.MinInt64-delta) {
		return 0, storage.ErrIntegerOverflow
	}
	next := cur + delta
	w := pendingWrite{value: []byte(strconv.FormatInt(next, 10)), expiresAt: expiresAt}
	if err := t.write(key, w); err != nil {
		return 0, err
	}
	return next, nil
}

func (t *Tx) ScanKeys(start string, fn func(key string) bool) error {
	if t.done {
		return storage.ErrTxClosed
	}
	now := time.Now()
	t.s.mu.RLock()
	keys := make([]string, 0, len(t.s.entries))
	for k, e := range t.s.entries {
		if k < start || e.expired(now) {
			continue
		}
		if w, ok := t.pending[k]; ok && w.delete {
			continue
		}
		keys = append(keys, k)
	}
	for k, w := range t.pending {
		if w.delete || k < start {
			continue
		}
		if _, exists := t.s.entries[k]; !exists {
			keys = append(keys, k)
		}
	}
	t.s.mu.RUnlock()

	sort.Strings(keys)
	for _, k := range keys {
		// Returned keys join the read set so a racing write conflicts.
		t.s.mu.RLock()
		t.reads[k] = t.s.version(k)
		t.s.mu.RUnlock()
		if !fn(k) {
			return nil
		}
	}
	return nil
}

func (t *Tx) ClearRange(start, end string) error {
	if t.done {
		return storage.ErrTxClosed
	}
	if !t.update {
		return storage.ErrReadOnly
	}
	t.s.mu.RLock()
	victims := make([]string, 0, len(t.s.entries))
	for k := range t.s.entries {
		if k >= start && (end == "" || k < end) {
			victims = append(victims, k)
		}
	}
	t.s.mu.RUnlock()
	for k, w := range t.pending {
		if !w.delete && k >= start && (end == "" || k < end) {
			victims = append(victims, k)
		}
	}
	for _, k := range victims {
		t.pending[k] = pendingWrite{delete: true}
	}
	return nil
}

func (t *Tx) Clear() error {
	return t.ClearRange("", "")
}

func (t *Tx) Commit() error {
	if t.done {
		return storage.ErrTxClosed
	}
	t.done = true
	if !t.update || len(t.pending) == 0 {
		return nil
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.closed {
		return storage.ErrClosed
	}
	for key, saw := range t.reads {
		if t.s.version(key) != saw {
			return storage.ErrConflict
		}
	}
	for key, w := range t.pending {
		if w.delete {
			if _, ok := t.s.entries[key]; !ok {
				continue
			}
			t.s.tombstones[key] = t.s.bump()
			delete(t.s.entries, key)
		} else {
			delete(t.s.tombstones, key)
			t.s.entries[key] = entry{value: w.value, version: t.s.bump(), expiresAt: w.expiresAt}
		}
		t.s.fireLocked(key)
	}
	return nil
}

func (t *Tx) Discard() {
	t.done = true
}
