// Package bind maps RESP frames onto Go values without any type metadata
// on the wire: the requested target shape decides which tokens must come
// next.
//
// A Decoder wraps one resp.Cursor for the duration of a top-level decode.
// Scalar methods consume exactly one frame each; Seq iterates a counted
// aggregate (or a length-less tail for top-level command input) and tracks
// how many elements remain so struct decoding cannot read past its frame.
//
// Untagged unions resolve by trial: ResolveFirst runs each candidate in
// declared order against a copy of the decoder state and commits the first
// success by adopting the trial's cursor, which carries the exact consumed
// length. CollectOptions applies the same machinery to modifier slots,
// rejecting a second fill of the same slot.
//
// Numeric shapes accept both `:` integer frames and string frames holding
// decimal digits, because commands transport their arguments as bulk
// strings.
//
// @req RQ-0102
// @design DS-0102
package bind
