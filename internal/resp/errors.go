package resp

import (
	"errors"
	"fmt"
)

// Decode failure classes. Incomplete is the only retryable one: the caller
// should buffer more input and decode again from the same position. Every
// other class means the bytes already read contradict the grammar.
var (
	// ErrIncomplete reports that the buffer ends before the frame does.
	ErrIncomplete = errors.New("resp: incomplete frame")

	// ErrMalformed reports bytes that contradict the RESP grammar.
	ErrMalformed = errors.New("resp: malformed frame")

	// ErrSizeLimit reports a declared length or nesting depth beyond the
	// decode bounds.
	ErrSizeLimit = errors.New("resp: size limit exceeded")

	// ErrTypeMismatch reports a well-formed frame of the wrong type for
	// the requested shape.
	ErrTypeMismatch = errors.New("resp: type mismatch")

	// ErrInvalidUTF8 reports non-UTF-8 payload bytes where text was
	// required.
	ErrInvalidUTF8 = errors.New("resp: invalid utf-8 in string")
)

// TypeMismatchError carries the requested shape and the prefix byte that
// was actually present. It matches ErrTypeMismatch under errors.Is.
type TypeMismatchError struct {
	Want string
	Got  byte
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("resp: type mismatch: want %s, got %q", e.Want, e.Got)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

func mismatch(want string, got byte) error {
	return &TypeMismatchError{Want: want, Got: got}
}
