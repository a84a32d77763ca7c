package resp

import (
	"bufio"
	"io"
	"math"
	"math/big"
	"strconv"
)

// Writer emits reply frames. RESP3-only types are downgraded to their
// conventional RESP2 encodings until the session negotiates protocol 3
// via SetProtocol. A Writer is not safe for concurrent use.
type Writer struct {
	w       *bufio.Writer
	proto   int
	scratch []byte
}

// NewWriter wraps w. The protocol starts at 2, matching a connection that
// has not issued HELLO.
func NewWriter(w io.Writer) *Writer {
	bw, ok := w.(*bufio.Writer)
	if !ok {
		bw = bufio.NewWriter(w)
	}
	return &Writer{w: bw, proto: 2}
}

// SetProtocol switches between RESP2 and RESP3 reply encodings.
func (w *Writer) SetProtocol(v int) {
	if v == 3 {
		w.proto = 3
	} else {
		w.proto = 2
	}
}

// Protocol returns the negotiated protocol version.
func (w *Writer) Protocol() int { return w.proto }

// Flush writes any buffered reply bytes to the underlying writer.
func (w *Writer) Flush() error { return w.w.Flush() }

func (w *Writer) line(prefix byte, s string) error {
	w.scratch = append(w.scratch[:0], prefix)
	w.scratch = append(w.scratch, s...)
	w.scratch = append(w.scratch, '\r', '\n')
	_, err := w.w.Write(w.scratch)
	return err
}

func (w *Writer) intLine(prefix byte, n int64) error {
	w.scratch = append(w.scratch[:0], prefix)
	w.scratch = strconv.AppendInt(w.scratch, n, 10)
	w.scratch = append(w.scratch, '\r', '\n')
	_, err := w.w.Write(w.scratch)
	return err
}

// SimpleString writes `+s`.
func (w *Writer) SimpleString(s string) error { return w.line('+', s) }

// OK writes the canonical `+OK` reply.
func (w *Writer) OK() error { return w.SimpleString("OK") }

// Error writes `-msg`. The message should already carry its error class
// prefix (ERR, NOAUTH, ...).
func (w *Writer) Error(msg string) error { return w.line('-', msg) }

// Int writes `:n`.
func (w *Writer) Int(n int64) error { return w.intLine(':', n) }

// Bulk writes a `$`-framed payload.
func (w *Writer) Bulk(b []byte) error {
	if err := w.intLine('$', int64(len(b))); err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	_, err := w.w.WriteString("\r\n")
	return err
}

// BulkString writes a `$`-framed string.
func (w *Writer) BulkString(s string) error { return w.Bulk([]byte(s)) }

// Null writes the null scalar: `_` on RESP3, `$-1` on RESP2.
func (w *Writer) Null() error {
	if w.proto == 3 {
		return w.line('_', "")
	}
	return w.line('$', "-1")
}

// NullArray writes the null aggregate: `_` on RESP3, `*-1` on RESP2.
func (w *Writer) NullArray() error {
	if w.proto == 3 {
		return w.line('_', "")
	}
	return w.line('*', "-1")
}

// Boolean writes `#t`/`#f` on RESP3 and `:1`/`:0` on RESP2.
func (w *Writer) Boolean(v bool) error {
	if w.proto == 3 {
		if v {
			return w.line('#', "t")
		}
		return w.line('#', "f")
	}
	if v {
		return w.Int(1)
	}
	return w.Int(0)
}

// Double writes `,f` on RESP3 and a bulk string rendering on RESP2.
func (w *Writer) Double(f float64) error {
	s := formatDouble(f)
	if w.proto == 3 {
		return w.line(',', s)
	}
	return w.BulkString(s)
}

func formatDouble(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// BigNumber writes `(n` on RESP3 and a bulk string rendering on RESP2.
func (w *Writer) BigNumber(n *big.Int) error {
	s := n.String()
	if w.proto == 3 {
		return w.line('(', s)
	}
	return w.BulkString(s)
}

// Verbatim writes `=` framing on RESP3 and a plain bulk string on RESP2.
// format must be a three-letter tag such as "txt".
func (w *Writer) Verbatim(format, s string) error {
	if w.proto != 3 {
		return w.BulkString(s)
	}
	if err := w.intLine('=', int64(len(format)+1+len(s))); err != nil {
		return err
	}
	w.scratch = append(w.scratch[:0], format...)
	w.scratch = append(w.scratch, ':')
	w.scratch = append(w.scratch, s...)
	w.scratch = append(w.scratch, '\r', '\n')
	_, err := w.w.Write(w.scratch)
	return err
}

// ArrayHeader writes a `*n` header; the caller writes n elements after it.
func (w *Writer) ArrayHeader(n int) error { return w.intLine('*', int64(n)) }

// MapHeader writes `%n` on RESP3 and a flat `*2n` array header on RESP2.
func (w *Writer) MapHeader(pairs int) error {
	if w.proto == 3 {
		return w.intLine('%', int64(pairs))
	}
	return w.intLine('*', int64(pairs*2))
}

// SetHeader writes `~n` on RESP3 and `*n` on RESP2.
func (w *Writer) SetHeader(n int) error {
	if w.proto == 3 {
		return w.intLine('~', int64(n))
	}
	return w.intLine('*', int64(n))
}

// PushHeader writes a `>n` header. Push frames only exist on RESP3; the
// caller must not emit them on a RESP2 session.
func (w *Writer) PushHeader(n int) error { return w.intLine('>', int64(n)) }

// Raw writes pre-encoded frame bytes as-is. The caller is responsible
// for their framing; replies staged on a side buffer are spliced in
// through here.
func (w *Writer) Raw(b []byte) error {
	_, err := w.w.Write(b)
	return err
}

// AppendCommand appends the request encoding of a command (an array of
// bulk strings) to dst. Clients and inline-command synthesis share it.
func AppendCommand(dst []byte, args ...string) []byte {
	dst = append(dst, '*')
	dst = strconv.AppendInt(dst, int64(len(args)), 10)
	dst = append(dst, '\r', '\n')
	for _, a := range args {
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(a)), 10)
		dst = append(dst, '\r', '\n')
		dst = append(dst, a...)
		dst = append(dst, '\r', '\n')
	}
	return dst
}
