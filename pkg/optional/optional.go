// Package optional provides a small optional-value type for decoded fields
// that may be legitimately absent, avoiding pointer-or-nil conventions in
// command structs.
package optional

import "fmt"

// Value holds either a T or nothing. The zero Value is None.
type Value[T any] struct {
	val T
	ok  bool
}

// Some returns a present Value.
func Some[T any](v T) Value[T] {
	return Value[T]{val: v, ok: true}
}

// None returns an absent Value.
func None[T any]() Value[T] {
	return Value[T]{}
}

// Get returns the held value and whether one is present.
func (v Value[T]) Get() (T, bool) {
	return v.val, v.ok
}

// IsSome reports whether a value is present.
func (v Value[T]) IsSome() bool {
	return v.ok
}

// Or returns the held value, or fallback when absent.
func (v Value[T]) Or(fallback T) T {
	if v.ok {
		return v.val
	}
	return fallback
}

func (v Value[T]) String() string {
	if !v.ok {
		return "None"
	}
	return fmt.Sprintf("Some(%v)", v.val)
}
