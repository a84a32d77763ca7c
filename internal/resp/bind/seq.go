package bind

import (
	"fmt"

	"github.com/kvgate/kvgate/internal/resp"
	"github.com/kvgate/kvgate/pkg/optional"
)

// Seq is a sequence being decoded. Counted sequences come from an array,
// set or push header and hand out exactly the declared number of elements;
// a length-less Seq consumes items until the input runs out. Structs decode
// as a Seq of their fields in declared order.
type Seq struct {
	d         *Decoder
	remaining int
	unbounded bool
}

// Seq opens the next aggregate frame as a counted sequence, or a
// length-less sequence when no aggregate header is present.
func (d *Decoder) Seq() (*Seq, error) {
	b, ok := d.cur.Peek()
	if !ok {
		return nil, resp.ErrIncomplete
	}
	switch resp.Type(b) {
	case resp.TypeArray, resp.TypeSet, resp.TypePush:
		return d.CountedSeq()
	default:
		return &Seq{d: d, unbounded: true}, nil
	}
}

// CountedSeq opens the next aggregate frame, which must be present.
func (d *Decoder) CountedSeq() (*Seq, error) {
	b, ok := d.cur.Peek()
	if !ok {
		return nil, resp.ErrIncomplete
	}
	var (
		cur resp.Cursor
		n   int
		err error
	)
	switch resp.Type(b) {
	case resp.TypeArray:
		cur, n, err = resp.DecodeArrayHeader(d.cur)
	case resp.TypeSet:
		cur, n, err = resp.DecodeSetHeader(d.cur)
	case resp.TypePush:
		cur, n, err = resp.DecodePushHeader(d.cur)
	default:
		return nil, &resp.TypeMismatchError{Want: "array", Got: b}
	}
	if err != nil {
		return nil, err
	}
	d.cur = cur
	return &Seq{d: d, remaining: n}, nil
}

// Remaining returns the undecoded element count, or -1 for a length-less
// sequence.
func (s *Seq) Remaining() int {
	if s.unbounded {
		return -1
	}
	return s.remaining
}

// More reports whether another element is available.
func (s *Seq) More() bool {
	if s.unbounded {
		return !s.d.cur.Empty()
	}
	return s.remaining > 0
}

// Done verifies the sequence was fully consumed.
func (s *Seq) Done() error {
	if !s.More() {
		return nil
	}
	if s.unbounded {
		return fmt.Errorf("%w: %d bytes", ErrTrailing, s.d.cur.Len())
	}
	return fmt.Errorf("%w: %d elements", ErrTrailing, s.remaining)
}

// item runs one element decode, accounting for the element on success.
func item[T any](s *Seq, decode func(*Decoder) (T, error)) (T, error) {
	var zero T
	if !s.More() {
		return zero, ErrExhausted
	}
	v, err := decode(s.d)
	if err != nil {
		return zero, err
	}
	if !s.unbounded {
		s.remaining--
	}
	return v, nil
}

// String decodes the next element as a string.
func (s *Seq) String() (string, error) { return item(s, (*Decoder).String) }

// Int64 decodes the next element as a signed 64-bit integer.
func (s *Seq) Int64() (int64, error) { return item(s, (*Decoder).Int64) }

// Uint64 decodes the next element as a non-negative integer.
func (s *Seq) Uint64() (uint64, error) { return item(s, (*Decoder).Uint64) }

// Uint8 decodes the next element as an 8-bit unsigned integer.
func (s *Seq) Uint8() (uint8, error) { return item(s, (*Decoder).Uint8) }

// Float64 decodes the next element as a double.
func (s *Seq) Float64() (float64, error) { return item(s, (*Decoder).Float64) }

// Bool decodes the next element as a boolean token.
func (s *Seq) Bool() (bool, error) { return item(s, (*Decoder).Bool) }

// Value decodes the next element generically.
func (s *Seq) Value() (resp.Value, error) { return item(s, (*Decoder).Value) }

// Marker decodes the next element as a named unit: a string equal to name
// case-insensitively.
func (s *Seq) Marker(name string) error {
	_, err := item(s, func(d *Decoder) (struct{}, error) {
		return struct{}{}, d.Marker(name)
	})
	return err
}

// Skip advances past the next element without decoding it.
func (s *Seq) Skip() error {
	_, err := item(s, func(d *Decoder) (struct{}, error) {
		return struct{}{}, d.Skip()
	})
	return err
}

// Strings drains the remaining elements as strings. At least min elements
// must be present.
func (s *Seq) Strings(min int) ([]string, error) {
	var out []string
	for s.More() {
		v, err := s.String()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if len(out) < min {
		return nil, fmt.Errorf("%w: want at least %d elements, have %d", ErrExhausted, min, len(out))
	}
	return out, nil
}

// OptionItem decodes the next element as an optional: absent when the
// sequence is exhausted or the element is a null frame.
func OptionItem[T any](s *Seq, decode func(*Decoder) (T, error)) (optional.Value[T], error) {
	if !s.More() {
		return optional.None[T](), nil
	}
	return item(s, func(d *Decoder) (optional.Value[T], error) {
		return Option(d, decode)
	})
}
