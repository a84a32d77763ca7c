// Package resp implements the RESP2/RESP3 wire format spoken by the gateway.
//
// The package decodes one frame at a time from a byte buffer through a
// Cursor, an immutable (buffer, position) view. Every decoder is a pure
// function from a Cursor to an advanced Cursor plus the decoded token, so
// partial input is detected without consuming anything and concurrent
// decoders never need locks.
//
// Two error classes matter to callers feeding a socket: ErrIncomplete
// (the buffer ends before the frame does; read more and retry) and
// everything else (the bytes contradict the grammar and rereading will
// not help). See errors.go for the full taxonomy.
//
// The reply direction is intentionally thin: Writer emits the handful of
// reply forms the executor produces, downgrading RESP3-only types to their
// conventional RESP2 encodings when the session negotiated protocol 2.
//
// @req RQ-0101
// @design DS-0101
package resp
