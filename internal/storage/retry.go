package storage

import (
	"context"
	"time"
)

// Retry policy for Update. Conflicts under contention resolve within a
// few attempts; the cap keeps a pathological hot key from spinning.
const (
	maxUpdateAttempts = 8
	baseBackoff       = time.Millisecond
	maxBackoff        = 64 * time.Millisecond
)

// Update runs fn in a write transaction and commits it, retrying with
// doubling backoff while the engine reports the failure as retryable.
// fn may run several times and must not have side effects outside the
// transaction.
func Update(ctx context.Context, eng Engine, fn func(Tx) error) error {
	backoff := baseBackoff
	var err error
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		tx := eng.Begin(true)
		if err = fn(tx); err == nil {
			err = tx.Commit()
		} else {
			tx.Discard()
		}
		if err == nil || !eng.IsRetryable(err) {
			return err
		}
	}
	return err
}
