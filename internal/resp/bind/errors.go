package bind

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrOutOfRange reports an integer frame outside the requested width.
	ErrOutOfRange = errors.New("bind: integer out of range")

	// ErrNameMismatch reports a marker token that named something else.
	ErrNameMismatch = errors.New("bind: name mismatch")

	// ErrNoMatch reports that no candidate of an untagged union decoded.
	ErrNoMatch = errors.New("bind: no candidate matched")

	// ErrDuplicateOption reports a modifier slot filled twice.
	ErrDuplicateOption = errors.New("bind: duplicate option")

	// ErrExhausted reports a read past the end of a counted sequence.
	// The frame itself is complete, so this is never ErrIncomplete.
	ErrExhausted = errors.New("bind: sequence exhausted")

	// ErrTrailing reports sequence elements left over after a shape was
	// fully decoded.
	ErrTrailing = errors.New("bind: trailing elements")
)

// OutOfRangeError carries the requested width and the offending value.
// It matches ErrOutOfRange under errors.Is.
type OutOfRangeError struct {
	Min    int64
	Max    uint64
	Actual int64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("bind: integer %d out of range [%d, %d]", e.Actual, e.Min, e.Max)
}

func (e *OutOfRangeError) Is(target error) bool { return target == ErrOutOfRange }

// NameMismatchError carries the expected marker name and what was found.
type NameMismatchError struct {
	Expected string
	Found    string
}

func (e *NameMismatchError) Error() string {
	return fmt.Sprintf("bind: expected %q, found %q", e.Expected, e.Found)
}

func (e *NameMismatchError) Is(target error) bool { return target == ErrNameMismatch }

// DuplicateOptionError names the slot that was populated twice.
type DuplicateOptionError struct {
	Name string
}

func (e *DuplicateOptionError) Error() string {
	return fmt.Sprintf("bind: duplicate option %s", e.Name)
}

func (e *DuplicateOptionError) Is(target error) bool { return target == ErrDuplicateOption }

// CandidateError is one candidate's failure inside a NoMatchError.
type CandidateError struct {
	Name string
	Err  error
}

// NoMatchError aggregates every candidate failure of an untagged
// resolution, in declaration order.
type NoMatchError struct {
	Candidates []CandidateError
}

func (e *NoMatchError) Error() string {
	var b strings.Builder
	b.WriteString("bind: no candidate matched")
	for i, c := range e.Candidates {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(c.Name)
		b.WriteString(": ")
		b.WriteString(c.Err.Error())
	}
	return b.String()
}

func (e *NoMatchError) Is(target error) bool { return target == ErrNoMatch }
