package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kvgate/kvgate/internal/resp"
)

// Reply renders a decoded reply frame as terminal text. The result has
// no trailing newline; callers add one per reply.
func Reply(v resp.Value) string {
	var b strings.Builder
	writeValue(&b, v, "")
	return b.String()
}

// writeValue appends the rendering of v. The caller has already written
// whatever prefix the first line carries; indent is prepended to every
// later line of a multi-line rendering.
func writeValue(b *strings.Builder, v resp.Value, indent string) {
	if v.Null {
		b.WriteString("(nil)")
		return
	}

	switch v.Type {
	case resp.TypeSimpleString:
		b.WriteString(v.Str)
	case resp.TypeSimpleError, resp.TypeBulkError:
		b.WriteString("(error) ")
		b.WriteString(v.Str)
	case resp.TypeInteger:
		b.WriteString("(integer) ")
		b.WriteString(strconv.FormatInt(v.Int, 10))
	case resp.TypeBulkString:
		b.WriteString(strconv.Quote(v.Str))
	case resp.TypeBoolean:
		if v.Bool {
			b.WriteString("(true)")
		} else {
			b.WriteString("(false)")
		}
	case resp.TypeDouble:
		b.WriteString("(double) ")
		b.WriteString(formatDouble(v.Float))
	case resp.TypeBigNumber:
		b.WriteString("(big number) ")
		if v.Big != nil {
			b.WriteString(v.Big.String())
		} else {
			b.WriteString("0")
		}
	case resp.TypeVerbatim:
		// Verbatim payloads are preformatted text; print them as-is.
		b.WriteString(v.Str)
	case resp.TypeArray, resp.TypePush:
		writeElems(b, v.Elems, indent, "(empty array)")
	case resp.TypeSet:
		writeElems(b, v.Elems, indent, "(empty set)")
	case resp.TypeMap:
		writePairs(b, v.Pairs, indent)
	default:
		b.WriteString(strconv.Quote(v.Str))
	}
}

// writeElems renders an array-like aggregate, one element per line:
//
//	1) "first"
//	2) (integer) 2
//
// Indices are right-aligned to the widest index so columns line up past
// nine elements.
func writeElems(b *strings.Builder, elems []resp.Value, indent, empty string) {
	if len(elems) == 0 {
		b.WriteString(empty)
		return
	}
	pad := len(strconv.Itoa(len(elems)))
	for i, e := range elems {
		if i > 0 {
			b.WriteByte('\n')
			b.WriteString(indent)
		}
		prefix := fmt.Sprintf("%*d) ", pad, i+1)
		b.WriteString(prefix)
		writeValue(b, e, indent+strings.Repeat(" ", len(prefix)))
	}
}

// writePairs renders a map frame, one pair per line:
//
//	1# "key" => "value"
func writePairs(b *strings.Builder, pairs []resp.MapEntry, indent string) {
	if len(pairs) == 0 {
		b.WriteString("(empty map)")
		return
	}
	pad := len(strconv.Itoa(len(pairs)))
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('\n')
			b.WriteString(indent)
		}
		prefix := fmt.Sprintf("%*d# ", pad, i+1)
		b.WriteString(prefix)
		cont := indent + strings.Repeat(" ", len(prefix))
		writeValue(b, p.Key, cont)
		b.WriteString(" => ")
		writeValue(b, p.Value, cont)
	}
}

// formatDouble matches the wire spelling for doubles: shortest
// round-trip decimal, with inf/-inf/nan in lowercase.
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
