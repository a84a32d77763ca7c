package bind

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kvgate/kvgate/internal/resp"
	"github.com/kvgate/kvgate/pkg/optional"
)

// Decoder decodes successive frames from one cursor. It is created per
// top-level decode, mutated by field decodes, and discarded afterwards.
// Copying a Decoder forks its state; trial resolution relies on that.
type Decoder struct {
	cur resp.Cursor
}

// NewDecoder wraps an existing cursor.
func NewDecoder(c resp.Cursor) *Decoder {
	return &Decoder{cur: c}
}

// FromBytes starts a decoder at the beginning of buf with default limits.
func FromBytes(buf []byte) *Decoder {
	return &Decoder{cur: resp.NewCursor(buf)}
}

// Cursor returns the current position, for callers that hand the
// remainder to another consumer.
func (d *Decoder) Cursor() resp.Cursor { return d.cur }

// Empty reports whether all input has been consumed.
func (d *Decoder) Empty() bool { return d.cur.Empty() }

// integerToken consumes one numeric frame: an integer token, or a textual
// frame holding decimal digits (commands carry numbers as bulk strings).
func (d *Decoder) integerToken() (int64, error) {
	b, ok := d.cur.Peek()
	if !ok {
		return 0, resp.ErrIncomplete
	}
	switch resp.Type(b) {
	case resp.TypeInteger:
		cur, n, err := resp.DecodeInteger(d.cur)
		if err != nil {
			return 0, err
		}
		d.cur = cur
		return n, nil
	case resp.TypeSimpleString, resp.TypeBulkString, resp.TypeVerbatim:
		cur, s, err := resp.DecodeString(d.cur)
		if err != nil {
			return 0, err
		}
		n, perr := strconv.ParseInt(s, 10, 64)
		if perr != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", resp.ErrTypeMismatch, s)
		}
		d.cur = cur
		return n, nil
	default:
		return 0, &resp.TypeMismatchError{Want: "integer", Got: b}
	}
}

// Int64 decodes a signed 64-bit integer.
func (d *Decoder) Int64() (int64, error) { return d.integerToken() }

// Int32 decodes an integer and range-checks it against int32.
func (d *Decoder) Int32() (int32, error) {
	n, err := d.ranged(math.MinInt32, math.MaxInt32)
	return int32(n), err
}

// Int16 decodes an integer and range-checks it against int16.
func (d *Decoder) Int16() (int16, error) {
	n, err := d.ranged(math.MinInt16, math.MaxInt16)
	return int16(n), err
}

// Int8 decodes an integer and range-checks it against int8.
func (d *Decoder) Int8() (int8, error) {
	n, err := d.ranged(math.MinInt8, math.MaxInt8)
	return int8(n), err
}

// Uint64 decodes a non-negative integer.
func (d *Decoder) Uint64() (uint64, error) {
	n, err := d.integerToken()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, &OutOfRangeError{Min: 0, Max: math.MaxUint64, Actual: n}
	}
	return uint64(n), nil
}

// Uint32 decodes an integer and range-checks it against uint32.
func (d *Decoder) Uint32() (uint32, error) {
	n, err := d.ranged(0, math.MaxUint32)
	return uint32(n), err
}

// Uint16 decodes an integer and range-checks it against uint16.
func (d *Decoder) Uint16() (uint16, error) {
	n, err := d.ranged(0, math.MaxUint16)
	return uint16(n), err
}

// Uint8 decodes an integer and range-checks it against uint8.
func (d *Decoder) Uint8() (uint8, error) {
	n, err := d.ranged(0, math.MaxUint8)
	return uint8(n), err
}

func (d *Decoder) ranged(min, max int64) (int64, error) {
	n, err := d.integerToken()
	if err != nil {
		return 0, err
	}
	if n < min || n > max {
		return 0, &OutOfRangeError{Min: min, Max: uint64(max), Actual: n}
	}
	return n, nil
}

// Float64 decodes a double: an integer token, a double token, or a textual
// frame holding a decimal rendering.
func (d *Decoder) Float64() (float64, error) {
	b, ok := d.cur.Peek()
	if !ok {
		return 0, resp.ErrIncomplete
	}
	switch resp.Type(b) {
	case resp.TypeInteger:
		cur, n, err := resp.DecodeInteger(d.cur)
		if err != nil {
			return 0, err
		}
		d.cur = cur
		return float64(n), nil
	case resp.TypeDouble:
		cur, f, err := resp.DecodeDouble(d.cur)
		if err != nil {
			return 0, err
		}
		d.cur = cur
		return f, nil
	case resp.TypeSimpleString, resp.TypeBulkString, resp.TypeVerbatim:
		cur, s, err := resp.DecodeString(d.cur)
		if err != nil {
			return 0, err
		}
		f, perr := resp.ParseDouble(s)
		if perr != nil {
			return 0, fmt.Errorf("%w: %q is not a double", resp.ErrTypeMismatch, s)
		}
		d.cur = cur
		return f, nil
	default:
		return 0, &resp.TypeMismatchError{Want: "double", Got: b}
	}
}

// Float32 decodes a double and narrows it to float32.
func (d *Decoder) Float32() (float32, error) {
	f, err := d.Float64()
	return float32(f), err
}

// Bool decodes a boolean token.
func (d *Decoder) Bool() (bool, error) {
	cur, v, err := resp.DecodeBoolean(d.cur)
	if err != nil {
		return false, err
	}
	d.cur = cur
	return v, nil
}

// String decodes any textual frame: simple, bulk or verbatim.
func (d *Decoder) String() (string, error) {
	cur, s, err := resp.DecodeString(d.cur)
	if err != nil {
		return "", err
	}
	d.cur = cur
	return s, nil
}

// Null decodes any null form as the unit shape.
func (d *Decoder) Null() error {
	cur, err := resp.DecodeNullValue(d.cur)
	if err != nil {
		return err
	}
	d.cur = cur
	return nil
}

// Marker decodes a textual frame that must equal name case-insensitively.
// A mismatch classifies as "not this shape" and drives untagged dispatch.
func (d *Decoder) Marker(name string) error {
	cur, s, err := resp.DecodeString(d.cur)
	if err != nil {
		return err
	}
	if !strings.EqualFold(s, name) {
		return &NameMismatchError{Expected: name, Found: s}
	}
	d.cur = cur
	return nil
}

// Value decodes one frame generically.
func (d *Decoder) Value() (resp.Value, error) {
	cur, v, err := resp.DecodeValue(d.cur)
	if err != nil {
		return resp.Value{}, err
	}
	d.cur = cur
	return v, nil
}

// Skip advances past one frame without decoding it.
func (d *Decoder) Skip() error {
	cur, err := resp.SkipFrame(d.cur)
	if err != nil {
		return err
	}
	d.cur = cur
	return nil
}

// Option decodes a null frame as absent, or the inner shape as present.
func Option[T any](d *Decoder, decode func(*Decoder) (T, error)) (optional.Value[T], error) {
	null, err := resp.PeekNull(d.cur)
	if err != nil {
		return optional.None[T](), err
	}
	if null {
		if err := d.Null(); err != nil {
			return optional.None[T](), err
		}
		return optional.None[T](), nil
	}
	v, err := decode(d)
	if err != nil {
		return optional.None[T](), err
	}
	return optional.Some(v), nil
}

// Map decodes a `%` frame as the declared number of key-value pairs. Keys
// must be unique within the frame.
func Map[K comparable, V any](d *Decoder, key func(*Decoder) (K, error), value func(*Decoder) (V, error)) (map[K]V, error) {
	cur, n, err := resp.DecodeMapHeader(d.cur)
	if err != nil {
		return nil, err
	}
	d.cur = cur
	out := make(map[K]V, n)
	for i := 0; i < n; i++ {
		k, err := key(d)
		if err != nil {
			return nil, err
		}
		if _, dup := out[k]; dup {
			return nil, fmt.Errorf("%w: duplicate map key", resp.ErrMalformed)
		}
		v, err := value(d)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}
