package resp

// Protocol limits. The bulk ceiling is fixed by the protocol; the other
// bounds exist to stop a hostile peer from making the decoder allocate or
// recurse without sending the matching payload.
const (
	// HardMaxBulkLen is the protocol ceiling for a single bulk payload
	// (512 MiB). Declared lengths above it are rejected before any
	// payload bytes are required.
	HardMaxBulkLen = 512 * 1024 * 1024

	// DefaultMaxElements bounds the declared element count of a single
	// aggregate frame (array, map, set, push).
	DefaultMaxElements = 1024 * 1024

	// DefaultMaxDepth bounds aggregate nesting.
	DefaultMaxDepth = 128
)

// Limits carries the per-connection decode bounds. A zero field means the
// default for that bound; MaxBulkLen is clamped to HardMaxBulkLen.
type Limits struct {
	MaxBulkLen  int64
	MaxElements int
	MaxDepth    int
}

// DefaultLimits returns the protocol defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxBulkLen:  HardMaxBulkLen,
		MaxElements: DefaultMaxElements,
		MaxDepth:    DefaultMaxDepth,
	}
}

func (l Limits) sanitized() Limits {
	if l.MaxBulkLen <= 0 || l.MaxBulkLen > HardMaxBulkLen {
		l.MaxBulkLen = HardMaxBulkLen
	}
	if l.MaxElements <= 0 {
		l.MaxElements = DefaultMaxElements
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultMaxDepth
	}
	return l
}

// Cursor is an immutable position in a byte buffer. Decoders take a Cursor
// by value and return the advanced Cursor; the buffer itself is never
// written. Copying a Cursor is how trial decoding snapshots state.
type Cursor struct {
	buf []byte
	pos int
	lim Limits
}

// NewCursor returns a Cursor at the start of buf with default limits.
func NewCursor(buf []byte) Cursor {
	return Cursor{buf: buf, lim: DefaultLimits()}
}

// NewCursorLimits returns a Cursor at the start of buf with explicit limits.
func NewCursorLimits(buf []byte, lim Limits) Cursor {
	return Cursor{buf: buf, lim: lim.sanitized()}
}

// Remaining returns the unconsumed tail of the buffer. The slice aliases
// the original buffer.
func (c Cursor) Remaining() []byte { return c.buf[c.pos:] }

// Len returns the number of unconsumed bytes.
func (c Cursor) Len() int { return len(c.buf) - c.pos }

// Empty reports whether all input has been consumed.
func (c Cursor) Empty() bool { return c.pos >= len(c.buf) }

// Pos returns the absolute position in the buffer.
func (c Cursor) Pos() int { return c.pos }

// ConsumedSince returns how many bytes c has consumed past start. Both
// cursors must view the same buffer.
func (c Cursor) ConsumedSince(start Cursor) int { return c.pos - start.pos }

// Peek returns the next byte without consuming it. ok is false at end of
// input.
func (c Cursor) Peek() (b byte, ok bool) {
	if c.Empty() {
		return 0, false
	}
	return c.buf[c.pos], true
}

// Limits returns the bounds this cursor decodes under.
func (c Cursor) Limits() Limits { return c.lim }

func (c Cursor) advance(n int) Cursor {
	c.pos += n
	return c
}
