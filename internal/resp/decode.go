package resp

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"
)

// readLine consumes bytes up to and including the next CRLF and returns the
// bytes before it. A line may not contain CR or LF.
func readLine(c Cursor) (Cursor, []byte, error) {
	rem := c.Remaining()
	i := bytes.IndexByte(rem, '\r')
	if i < 0 {
		if bytes.IndexByte(rem, '\n') >= 0 {
			return c, nil, fmt.Errorf("%w: bare LF in line", ErrMalformed)
		}
		return c, nil, ErrIncomplete
	}
	if j := bytes.IndexByte(rem[:i], '\n'); j >= 0 {
		return c, nil, fmt.Errorf("%w: bare LF in line", ErrMalformed)
	}
	if i+1 >= len(rem) {
		return c, nil, ErrIncomplete
	}
	if rem[i+1] != '\n' {
		return c, nil, fmt.Errorf("%w: CR not followed by LF", ErrMalformed)
	}
	return c.advance(i + 2), rem[:i], nil
}

// expectPrefix consumes the prefix byte of type t or fails with a type
// mismatch naming want.
func expectPrefix(c Cursor, t Type, want string) (Cursor, error) {
	b, ok := c.Peek()
	if !ok {
		return c, ErrIncomplete
	}
	if b != byte(t) {
		return c, mismatch(want, b)
	}
	return c.advance(1), nil
}

// parseLength parses a non-negative decimal length. Anything over the bulk
// hard ceiling order of magnitude fails early so the accumulator cannot
// overflow.
func parseLength(line []byte) (int64, error) {
	if len(line) == 0 {
		return 0, fmt.Errorf("%w: empty length", ErrMalformed)
	}
	var n int64
	for _, b := range line {
		if b < '0' || b > '9' {
			return 0, fmt.Errorf("%w: length %q is not a number", ErrMalformed, line)
		}
		n = n*10 + int64(b-'0')
		if n > 1<<40 {
			return 0, fmt.Errorf("%w: declared length %q", ErrSizeLimit, line)
		}
	}
	return n, nil
}

func isNullLine(line []byte) bool {
	return len(line) == 2 && line[0] == '-' && line[1] == '1'
}

// DecodeInteger decodes a `:` frame into a signed 64-bit integer.
func DecodeInteger(c Cursor) (Cursor, int64, error) {
	c, err := expectPrefix(c, TypeInteger, "integer")
	if err != nil {
		return c, 0, err
	}
	c, line, err := readLine(c)
	if err != nil {
		return c, 0, err
	}
	n, err := strconv.ParseInt(string(line), 10, 64)
	if err != nil {
		return c, 0, fmt.Errorf("%w: integer %q", ErrMalformed, line)
	}
	return c, n, nil
}

// DecodeSimpleString decodes a `+` frame. The payload must be UTF-8.
func DecodeSimpleString(c Cursor) (Cursor, string, error) {
	c, err := expectPrefix(c, TypeSimpleString, "simple string")
	if err != nil {
		return c, "", err
	}
	return decodeLineText(c)
}

// DecodeSimpleError decodes a `-` frame. The payload must be UTF-8.
func DecodeSimpleError(c Cursor) (Cursor, string, error) {
	c, err := expectPrefix(c, TypeSimpleError, "simple error")
	if err != nil {
		return c, "", err
	}
	return decodeLineText(c)
}

func decodeLineText(c Cursor) (Cursor, string, error) {
	c, line, err := readLine(c)
	if err != nil {
		return c, "", err
	}
	if !utf8.Valid(line) {
		return c, "", ErrInvalidUTF8
	}
	return c, string(line), nil
}

// DecodeBoolean decodes a `#` frame: exactly `#t` or `#f`.
func DecodeBoolean(c Cursor) (Cursor, bool, error) {
	c, err := expectPrefix(c, TypeBoolean, "boolean")
	if err != nil {
		return c, false, err
	}
	c, line, err := readLine(c)
	if err != nil {
		return c, false, err
	}
	if len(line) != 1 || (line[0] != 't' && line[0] != 'f') {
		return c, false, fmt.Errorf("%w: boolean %q", ErrMalformed, line)
	}
	return c, line[0] == 't', nil
}

// DecodeDouble decodes a `,` frame. The special payloads inf, -inf and nan
// are accepted alongside decimal and exponent notation.
func DecodeDouble(c Cursor) (Cursor, float64, error) {
	c, err := expectPrefix(c, TypeDouble, "double")
	if err != nil {
		return c, 0, err
	}
	c, line, err := readLine(c)
	if err != nil {
		return c, 0, err
	}
	f, err := ParseDouble(string(line))
	if err != nil {
		return c, 0, err
	}
	return c, f, nil
}

// ParseDouble parses a RESP double payload: decimal or exponent notation,
// or the special words inf, -inf and nan.
func ParseDouble(s string) (float64, error) {
	switch strings.ToLower(s) {
	case "inf", "+inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	case "nan", "-nan":
		return math.NaN(), nil
	}
	// ParseFloat also accepts Go hex-float syntax, which RESP does not.
	if strings.ContainsAny(s, "xX") {
		return 0, fmt.Errorf("%w: double %q", ErrMalformed, s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: double %q", ErrMalformed, s)
	}
	return f, nil
}

// DecodeBigNumber decodes a `(` frame into an arbitrary-precision integer.
func DecodeBigNumber(c Cursor) (Cursor, *big.Int, error) {
	c, err := expectPrefix(c, TypeBigNumber, "big number")
	if err != nil {
		return c, nil, err
	}
	c, line, err := readLine(c)
	if err != nil {
		return c, nil, err
	}
	s := string(line)
	digits := s
	if len(digits) > 0 && (digits[0] == '+' || digits[0] == '-') {
		digits = digits[1:]
	}
	if len(digits) == 0 {
		return c, nil, fmt.Errorf("%w: big number %q", ErrMalformed, s)
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return c, nil, fmt.Errorf("%w: big number %q", ErrMalformed, s)
		}
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return c, nil, fmt.Errorf("%w: big number %q", ErrMalformed, s)
	}
	return c, n, nil
}

// DecodeNull decodes the RESP3 `_` frame.
func DecodeNull(c Cursor) (Cursor, error) {
	c, err := expectPrefix(c, TypeNull, "null")
	if err != nil {
		return c, err
	}
	c, line, err := readLine(c)
	if err != nil {
		return c, err
	}
	if len(line) != 0 {
		return c, fmt.Errorf("%w: null frame with payload %q", ErrMalformed, line)
	}
	return c, nil
}

// DecodeBulkString decodes a `$` frame and returns its payload. The slice
// aliases the input buffer. The RESP2 null form `$-1` is not a bulk string;
// use PeekNull to detect it.
func DecodeBulkString(c Cursor) (Cursor, []byte, error) {
	return decodeBulk(c, TypeBulkString, "bulk string")
}

// DecodeBulkError decodes a `!` frame and returns its payload.
func DecodeBulkError(c Cursor) (Cursor, []byte, error) {
	return decodeBulk(c, TypeBulkError, "bulk error")
}

func decodeBulk(c Cursor, t Type, want string) (Cursor, []byte, error) {
	c, err := expectPrefix(c, t, want)
	if err != nil {
		return c, nil, err
	}
	c, line, err := readLine(c)
	if err != nil {
		return c, nil, err
	}
	if isNullLine(line) {
		return c, nil, fmt.Errorf("%w: null is not a %s", ErrMalformed, want)
	}
	n, err := parseLength(line)
	if err != nil {
		return c, nil, err
	}
	if n > c.lim.MaxBulkLen {
		return c, nil, fmt.Errorf("%w: bulk length %d", ErrSizeLimit, n)
	}
	return readBulkPayload(c, int(n))
}

func readBulkPayload(c Cursor, n int) (Cursor, []byte, error) {
	rem := c.Remaining()
	if len(rem) < n+2 {
		return c, nil, ErrIncomplete
	}
	if rem[n] != '\r' || rem[n+1] != '\n' {
		return c, nil, fmt.Errorf("%w: bulk payload not terminated by CRLF", ErrMalformed)
	}
	return c.advance(n + 2), rem[:n], nil
}

// Verbatim is a decoded `=` frame: a three-letter format tag plus the text
// that followed it. The declared wire length covers tag, colon and text.
type Verbatim struct {
	Format string
	Text   []byte
}

// DecodeVerbatimString decodes a `=` frame.
func DecodeVerbatimString(c Cursor) (Cursor, Verbatim, error) {
	c, err := expectPrefix(c, TypeVerbatim, "verbatim string")
	if err != nil {
		return c, Verbatim{}, err
	}
	c, line, err := readLine(c)
	if err != nil {
		return c, Verbatim{}, err
	}
	n, err := parseLength(line)
	if err != nil {
		return c, Verbatim{}, err
	}
	if n > c.lim.MaxBulkLen {
		return c, Verbatim{}, fmt.Errorf("%w: verbatim length %d", ErrSizeLimit, n)
	}
	if n < 4 {
		return c, Verbatim{}, fmt.Errorf("%w: verbatim length %d shorter than format tag", ErrMalformed, n)
	}
	c, payload, err := readBulkPayload(c, int(n))
	if err != nil {
		return c, Verbatim{}, err
	}
	if payload[3] != ':' {
		return c, Verbatim{}, fmt.Errorf("%w: verbatim format tag not terminated by colon", ErrMalformed)
	}
	return c, Verbatim{Format: string(payload[:3]), Text: payload[4:]}, nil
}

// DecodeArrayHeader decodes a `*` header and returns the declared element
// count. The RESP2 null form `*-1` is not an array; use PeekNull.
func DecodeArrayHeader(c Cursor) (Cursor, int, error) {
	return decodeCountHeader(c, TypeArray, "array")
}

// DecodeSetHeader decodes a `~` header.
func DecodeSetHeader(c Cursor) (Cursor, int, error) {
	return decodeCountHeader(c, TypeSet, "set")
}

// DecodePushHeader decodes a `>` header.
func DecodePushHeader(c Cursor) (Cursor, int, error) {
	return decodeCountHeader(c, TypePush, "push")
}

// DecodeMapHeader decodes a `%` header and returns the declared pair count.
func DecodeMapHeader(c Cursor) (Cursor, int, error) {
	return decodeCountHeader(c, TypeMap, "map")
}

func decodeCountHeader(c Cursor, t Type, want string) (Cursor, int, error) {
	c, err := expectPrefix(c, t, want)
	if err != nil {
		return c, 0, err
	}
	c, line, err := readLine(c)
	if err != nil {
		return c, 0, err
	}
	if isNullLine(line) {
		return c, 0, fmt.Errorf("%w: null is not a %s", ErrMalformed, want)
	}
	n, err := parseLength(line)
	if err != nil {
		return c, 0, err
	}
	if n > int64(c.lim.MaxElements) {
		return c, 0, fmt.Errorf("%w: %s of %d elements", ErrSizeLimit, want, n)
	}
	return c, int(n), nil
}

// DecodeString decodes whichever textual frame is next: simple string, bulk
// string or verbatim string (payload only). The payload must be UTF-8.
func DecodeString(c Cursor) (Cursor, string, error) {
	b, ok := c.Peek()
	if !ok {
		return c, "", ErrIncomplete
	}
	switch Type(b) {
	case TypeSimpleString:
		return DecodeSimpleString(c)
	case TypeBulkString:
		c, payload, err := DecodeBulkString(c)
		if err != nil {
			return c, "", err
		}
		if !utf8.Valid(payload) {
			return c, "", ErrInvalidUTF8
		}
		return c, string(payload), nil
	case TypeVerbatim:
		c, v, err := DecodeVerbatimString(c)
		if err != nil {
			return c, "", err
		}
		if !utf8.Valid(v.Text) {
			return c, "", ErrInvalidUTF8
		}
		return c, string(v.Text), nil
	default:
		return c, "", mismatch("string", b)
	}
}

// PeekNull reports whether the next frame is one of the three null forms
// (`_`, `$-1`, `*-1`) without consuming it. It fails with ErrIncomplete
// when the answer cannot be known yet.
func PeekNull(c Cursor) (bool, error) {
	b, ok := c.Peek()
	if !ok {
		return false, ErrIncomplete
	}
	switch Type(b) {
	case TypeNull:
		return true, nil
	case TypeBulkString, TypeArray:
		_, line, err := readLine(c.advance(1))
		if err != nil {
			// A malformed line is settled: it is not a null frame, and
			// the real decoder will report the grammar error.
			if errors.Is(err, ErrIncomplete) {
				return false, err
			}
			return false, nil
		}
		return isNullLine(line), nil
	default:
		return false, nil
	}
}

// DecodeNullValue consumes whichever null form is next.
func DecodeNullValue(c Cursor) (Cursor, error) {
	b, ok := c.Peek()
	if !ok {
		return c, ErrIncomplete
	}
	switch Type(b) {
	case TypeNull:
		return DecodeNull(c)
	case TypeBulkString, TypeArray:
		c2, line, err := readLine(c.advance(1))
		if err != nil {
			return c, err
		}
		if !isNullLine(line) {
			return c, mismatch("null", b)
		}
		return c2, nil
	default:
		return c, mismatch("null", b)
	}
}
