package resp

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// ============================================================================
// Generic Value Decoding Tests
// ============================================================================

func TestDecodeValueScalars(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Value
	}{
		{"simple string", "+OK\r\n", Value{Type: TypeSimpleString, Str: "OK"}},
		{"simple error", "-ERR boom\r\n", Value{Type: TypeSimpleError, Str: "ERR boom"}},
		{"integer", ":1000\r\n", Value{Type: TypeInteger, Int: 1000}},
		{"bulk", "$5\r\nhello\r\n", Value{Type: TypeBulkString, Str: "hello"}},
		{"bulk error", "!8\r\nERR whoa\r\n", Value{Type: TypeBulkError, Str: "ERR whoa"}},
		{"verbatim", "=15\r\ntxt:Some string\r\n", Value{Type: TypeVerbatim, Str: "Some string", Format: "txt"}},
		{"boolean", "#t\r\n", Value{Type: TypeBoolean, Bool: true}},
		{"double", ",3.5\r\n", Value{Type: TypeDouble, Float: 3.5}},
		{"null", "_\r\n", Value{Type: TypeNull, Null: true}},
		{"null bulk", "$-1\r\n", Value{Type: TypeBulkString, Null: true}},
		{"null array", "*-1\r\n", Value{Type: TypeArray, Null: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rest, got, err := DecodeValue(NewCursor([]byte(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
			if !rest.Empty() {
				t.Errorf("left %d unconsumed bytes", rest.Len())
			}
		})
	}
}

func TestDecodeValueMap(t *testing.T) {
	input := "%2\r\n+first\r\n:1\r\n+second\r\n:2\r\n"
	want := Value{Type: TypeMap, Pairs: []MapEntry{
		{Key: Value{Type: TypeSimpleString, Str: "first"}, Value: Value{Type: TypeInteger, Int: 1}},
		{Key: Value{Type: TypeSimpleString, Str: "second"}, Value: Value{Type: TypeInteger, Int: 2}},
	}}

	_, got, err := DecodeValue(NewCursor([]byte(input)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("map mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeValueMapDuplicateKey(t *testing.T) {
	input := "%2\r\n+k\r\n:1\r\n+k\r\n:2\r\n"
	_, _, err := DecodeValue(NewCursor([]byte(input)))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("error = %v, want ErrMalformed", err)
	}
}

func TestDecodeValueNestedArray(t *testing.T) {
	input := "*3\r\n*1\r\n:1\r\n$3\r\nfoo\r\n_\r\n"
	want := Value{Type: TypeArray, Elems: []Value{
		{Type: TypeArray, Elems: []Value{{Type: TypeInteger, Int: 1}}},
		{Type: TypeBulkString, Str: "foo"},
		{Type: TypeNull, Null: true},
	}}

	_, got, err := DecodeValue(NewCursor([]byte(input)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("array mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeValueSetCollapsesDuplicates(t *testing.T) {
	input := "~3\r\n:1\r\n:1\r\n:2\r\n"
	want := Value{Type: TypeSet, Elems: []Value{
		{Type: TypeInteger, Int: 1},
		{Type: TypeInteger, Int: 2},
	}}

	_, got, err := DecodeValue(NewCursor([]byte(input)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("set mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeValuePush(t *testing.T) {
	input := ">2\r\n+message\r\n:1\r\n"
	want := Value{Type: TypePush, Elems: []Value{
		{Type: TypeSimpleString, Str: "message"},
		{Type: TypeInteger, Int: 1},
	}}

	_, got, err := DecodeValue(NewCursor([]byte(input)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("push mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeValueIncompleteAggregate(t *testing.T) {
	// Two elements declared, only one present.
	input := "*2\r\n$3\r\nGET\r\n"
	_, _, err := DecodeValue(NewCursor([]byte(input)))
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("error = %v, want ErrIncomplete", err)
	}
}

// ============================================================================
// Frame Skipping Tests
// ============================================================================

func TestSkipFrame(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"integer", ":42\r\n"},
		{"bulk", "$5\r\nhello\r\n"},
		{"null bulk", "$-1\r\n"},
		{"null array", "*-1\r\n"},
		{"nested", "*2\r\n*1\r\n:1\r\n%1\r\n+k\r\n$1\r\nv\r\n"},
		{"verbatim", "=15\r\ntxt:Some string\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := tt.input + ":99\r\n"
			rest, err := SkipFrame(NewCursor([]byte(payload)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(rest.Remaining()) != ":99\r\n" {
				t.Errorf("remainder = %q, want %q", rest.Remaining(), ":99\r\n")
			}
		})
	}
}

func TestSkipFrameIncomplete(t *testing.T) {
	_, err := SkipFrame(NewCursor([]byte("*2\r\n:1\r\n")))
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("error = %v, want ErrIncomplete", err)
	}
}

func TestSkipFrameUnknownPrefix(t *testing.T) {
	_, err := SkipFrame(NewCursor([]byte("?what\r\n")))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("error = %v, want ErrMalformed", err)
	}
}
