package storage

import (
	"fmt"
	"sync/atomic"
)

// AlreadyOpenError reports an Open whose parameters conflict with the
// engine already initialized through the same guard.
type AlreadyOpenError struct {
	Current   string
	Requested string
}

func (e *AlreadyOpenError) Error() string {
	return fmt.Sprintf("kv engine already open at %q, requested %q", e.Current, e.Requested)
}

// Guard serializes one-time engine initialization. The first caller to
// reserve the guard runs its open function with no lock held; everyone
// else waits for that outcome. A later Open with the same identity
// returns the existing value; a different identity fails with
// AlreadyOpenError. A failed open releases the guard so the next
// attempt starts fresh.
type Guard[T comparable] struct {
	slot atomic.Pointer[guardSlot[T]]
}

type guardSlot[T comparable] struct {
	id   string
	done chan struct{}
	val  T
	err  error
}

// Open returns the value produced for id, running open only if this
// caller wins the reservation.
func (g *Guard[T]) Open(id string, open func() (T, error)) (T, error) {
	var zero T
	for {
		mine := &guardSlot[T]{id: id, done: make(chan struct{})}
		if g.slot.CompareAndSwap(nil, mine) {
			mine.val, mine.err = open()
			if mine.err != nil {
				// Publish the failure to current waiters, then free
				// the slot for the next attempt.
				close(mine.done)
				g.slot.CompareAndSwap(mine, nil)
				return zero, mine.err
			}
			close(mine.done)
			return mine.val, nil
		}

		cur := g.slot.Load()
		if cur == nil {
			// The reserving opener failed and released between our CAS
			// and Load. Race for the reservation again.
			continue
		}
		<-cur.done
		if cur.err != nil {
			continue
		}
		if cur.id != id {
			return zero, &AlreadyOpenError{Current: cur.id, Requested: id}
		}
		return cur.val, nil
	}
}

// Release frees the guard if it still holds val, letting a future Open
// initialize again. Engines call it from Close.
func (g *Guard[T]) Release(val T) {
	cur := g.slot.Load()
	if cur != nil && cur.err == nil && cur.val == val {
		g.slot.CompareAndSwap(cur, nil)
	}
}
