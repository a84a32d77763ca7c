package bind

import (
	"errors"

	"github.com/kvgate/kvgate/internal/resp"
)

// Candidate is one alternative shape of an untagged union.
type Candidate[T any] struct {
	Name   string
	Decode func(*Seq) (T, error)
}

// ResolveFirst tries candidates in declared order against a copy of the
// sequence state and commits the first success by adopting the trial's
// cursor and element accounting; the consumed length comes from the trial
// itself, never from re-decoding. Declaration order is the tie-break for
// ambiguous grammars.
//
// A candidate failing with ErrIncomplete aborts the whole resolution:
// more input could change which candidate wins. If every candidate fails,
// the NoMatchError lists each failure in order.
func ResolveFirst[T any](s *Seq, cands ...Candidate[T]) (T, error) {
	var zero T
	fails := make([]CandidateError, 0, len(cands))
	for _, cand := range cands {
		trialDec := *s.d
		trial := Seq{d: &trialDec, remaining: s.remaining, unbounded: s.unbounded}
		v, err := cand.Decode(&trial)
		if err == nil {
			s.d.cur = trialDec.cur
			s.remaining = trial.remaining
			return v, nil
		}
		if errors.Is(err, resp.ErrIncomplete) {
			return zero, err
		}
		fails = append(fails, CandidateError{Name: cand.Name, Err: err})
	}
	return zero, &NoMatchError{Candidates: fails}
}

// Slot is one modifier of an options aggregate. Decode consumes the
// modifier's full shape (marker plus any argument) and stores the result.
type Slot struct {
	Name   string
	Decode func(*Seq) error
}

// CollectOptions repeatedly matches the remaining elements against the
// slots in declared order. A successful match fills its slot; matching an
// already-filled slot fails with DuplicateOptionError. The loop stops when
// no slot matches or the sequence is exhausted, leaving the remainder to
// the caller.
func CollectOptions(s *Seq, slots ...Slot) error {
	filled := make([]bool, len(slots))
	for s.More() {
		matched := false
		for i, slot := range slots {
			trialDec := *s.d
			trial := Seq{d: &trialDec, remaining: s.remaining, unbounded: s.unbounded}
			err := slot.Decode(&trial)
			if err == nil {
				if filled[i] {
					return &DuplicateOptionError{Name: slot.Name}
				}
				filled[i] = true
				s.d.cur = trialDec.cur
				s.remaining = trial.remaining
				matched = true
				break
			}
			if errors.Is(err, resp.ErrIncomplete) {
				return err
			}
		}
		if !matched {
			return nil
		}
	}
	return nil
}
