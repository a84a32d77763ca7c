package resp

import (
	"fmt"
	"math/big"
)

// MapEntry is one key/value pair of a decoded map frame, in wire order.
type MapEntry struct {
	Key   Value
	Value Value
}

// Value is one decoded frame of any type, for callers that cannot name a
// static target shape (reply rendering, frame skipping). Only the fields
// implied by Type are meaningful; Null marks the three null forms.
type Value struct {
	Type   Type
	Null   bool
	Str    string
	Format string
	Int    int64
	Float  float64
	Bool   bool
	Big    *big.Int
	Elems  []Value
	Pairs  []MapEntry
}

// IsError reports whether the value is a simple or bulk error frame.
func (v Value) IsError() bool {
	return v.Type == TypeSimpleError || v.Type == TypeBulkError
}

// DecodeValue decodes whichever frame is next into a Value. Aggregates are
// decoded recursively; map keys must be unique within the frame and set
// duplicates collapse.
func DecodeValue(c Cursor) (Cursor, Value, error) {
	return decodeValue(c, 0)
}

func decodeValue(c Cursor, depth int) (Cursor, Value, error) {
	if depth > c.lim.MaxDepth {
		return c, Value{}, fmt.Errorf("%w: nesting depth %d", ErrSizeLimit, depth)
	}
	b, ok := c.Peek()
	if !ok {
		return c, Value{}, ErrIncomplete
	}
	t := Type(b)
	switch t {
	case TypeSimpleString, TypeSimpleError:
		c, s, err := decodeLineText(c.advance(1))
		return c, Value{Type: t, Str: s}, err

	case TypeInteger:
		c, n, err := DecodeInteger(c)
		return c, Value{Type: t, Int: n}, err

	case TypeBoolean:
		c, v, err := DecodeBoolean(c)
		return c, Value{Type: t, Bool: v}, err

	case TypeDouble:
		c, f, err := DecodeDouble(c)
		return c, Value{Type: t, Float: f}, err

	case TypeBigNumber:
		c, n, err := DecodeBigNumber(c)
		return c, Value{Type: t, Big: n}, err

	case TypeNull:
		c, err := DecodeNull(c)
		return c, Value{Type: t, Null: true}, err

	case TypeBulkString, TypeBulkError:
		null, err := PeekNull(c)
		if err != nil {
			return c, Value{}, err
		}
		if null {
			c, err := DecodeNullValue(c)
			return c, Value{Type: t, Null: true}, err
		}
		c, payload, err := decodeBulk(c, t, t.String())
		return c, Value{Type: t, Str: string(payload)}, err

	case TypeVerbatim:
		c, v, err := DecodeVerbatimString(c)
		return c, Value{Type: t, Str: string(v.Text), Format: v.Format}, err

	case TypeArray, TypeSet, TypePush:
		return decodeElems(c, t, depth)

	case TypeMap:
		return decodeMap(c, depth)

	default:
		return c, Value{}, fmt.Errorf("%w: unknown type prefix %q", ErrMalformed, b)
	}
}

func decodeElems(c Cursor, t Type, depth int) (Cursor, Value, error) {
	if t == TypeArray {
		null, err := PeekNull(c)
		if err != nil {
			return c, Value{}, err
		}
		if null {
			c, err := DecodeNullValue(c)
			return c, Value{Type: t, Null: true}, err
		}
	}
	c, n, err := decodeCountHeader(c, t, t.String())
	if err != nil {
		return c, Value{}, err
	}
	elems := make([]Value, 0, min(n, 64))
	var seen map[string]struct{}
	if t == TypeSet {
		seen = make(map[string]struct{}, min(n, 64))
	}
	for i := 0; i < n; i++ {
		start := c
		var el Value
		c, el, err = decodeValue(c, depth+1)
		if err != nil {
			return c, Value{}, err
		}
		if t == TypeSet {
			// Collapse duplicate members by their wire encoding.
			wire := string(start.Remaining()[:c.ConsumedSince(start)])
			if _, dup := seen[wire]; dup {
				continue
			}
			seen[wire] = struct{}{}
		}
		elems = append(elems, el)
	}
	return c, Value{Type: t, Elems: elems}, nil
}

func decodeMap(c Cursor, depth int) (Cursor, Value, error) {
	c, n, err := DecodeMapHeader(c)
	if err != nil {
		return c, Value{}, err
	}
	pairs := make([]MapEntry, 0, min(n, 64))
	seen := make(map[string]struct{}, min(n, 64))
	for i := 0; i < n; i++ {
		start := c
		var k, v Value
		c, k, err = decodeValue(c, depth+1)
		if err != nil {
			return c, Value{}, err
		}
		wire := string(start.Remaining()[:c.ConsumedSince(start)])
		if _, dup := seen[wire]; dup {
			return c, Value{}, fmt.Errorf("%w: duplicate map key", ErrMalformed)
		}
		seen[wire] = struct{}{}
		c, v, err = decodeValue(c, depth+1)
		if err != nil {
			return c, Value{}, err
		}
		pairs = append(pairs, MapEntry{Key: k, Value: v})
	}
	return c, Value{Type: TypeMap, Pairs: pairs}, nil
}

// SkipFrame advances past exactly one frame without building a Value. The
// transport uses it to resynchronize after a shape-level decode error.
func SkipFrame(c Cursor) (Cursor, error) {
	return skipFrame(c, 0)
}

func skipFrame(c Cursor, depth int) (Cursor, error) {
	if depth > c.lim.MaxDepth {
		return c, fmt.Errorf("%w: nesting depth %d", ErrSizeLimit, depth)
	}
	b, ok := c.Peek()
	if !ok {
		return c, ErrIncomplete
	}
	t := Type(b)
	switch t {
	case TypeSimpleString, TypeSimpleError, TypeInteger, TypeBoolean,
		TypeDouble, TypeBigNumber, TypeNull:
		c, _, err := readLine(c.advance(1))
		return c, err

	case TypeBulkString, TypeBulkError, TypeVerbatim:
		c2, line, err := readLine(c.advance(1))
		if err != nil {
			return c, err
		}
		if isNullLine(line) {
			return c2, nil
		}
		n, err := parseLength(line)
		if err != nil {
			return c, err
		}
		if n > c.lim.MaxBulkLen {
			return c, fmt.Errorf("%w: bulk length %d", ErrSizeLimit, n)
		}
		c, _, err = readBulkPayload(c2, int(n))
		return c, err

	case TypeArray, TypeSet, TypePush, TypeMap:
		c2, line, err := readLine(c.advance(1))
		if err != nil {
			return c, err
		}
		if isNullLine(line) {
			return c2, nil
		}
		n, err := parseLength(line)
		if err != nil {
			return c, err
		}
		if n > int64(c.lim.MaxElements) {
			return c, fmt.Errorf("%w: %s of %d elements", ErrSizeLimit, t, n)
		}
		items := int(n)
		if t == TypeMap {
			items *= 2
		}
		c = c2
		for i := 0; i < items; i++ {
			c, err = skipFrame(c, depth+1)
			if err != nil {
				return c, err
			}
		}
		return c, nil

	default:
		return c, fmt.Errorf("%w: unknown type prefix %q", ErrMalformed, b)
	}
}
