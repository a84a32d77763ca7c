package repl

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCompleterSuggestions(t *testing.T) {
	c := NewCompleter()

	for _, tt := range []struct {
		name   string
		prefix string
		want   []string
	}{
		{"GE prefix", "GE", []string{"GET", "GETDEL"}},
		{"lowercase matches too", "ge", []string{"GET", "GETDEL"}},
		{"IN prefix", "IN", []string{"INCR", "INCRBY"}},
		{"DE prefix", "DE", []string{"DECR", "DECRBY", "DEL"}},
		{"q matches both cases", "q", []string{"QUIT", "quit"}},
		{"exact", "FLUSHDB", []string{"FLUSHDB"}},
		{"no match", "zz", nil},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, c.Complete(tt.prefix)); diff != "" {
				t.Errorf("Complete(%q) mismatch (-want +got):\n%s", tt.prefix, diff)
			}
		})
	}
}

func TestCompleterEmptyPrefix(t *testing.T) {
	c := NewCompleter()
	if got := c.Complete(""); len(got) != len(c.commands) {
		t.Errorf("Complete(\"\") returned %d items, want all %d", len(got), len(c.commands))
	}
}

func TestCompleterCoversGatewayVerbs(t *testing.T) {
	all := NewCompleter().Commands()

	for _, want := range []string{
		"GET", "SET", "DEL", "EXISTS", "EXPIRE", "TTL", "SCAN",
		"MULTI", "EXEC", "DISCARD", "WATCH", "UNWATCH",
		"PING", "HELLO", "AUTH",
		"help", "exit", "quit",
	} {
		if !slices.Contains(all, want) {
			t.Errorf("command %q not in the completion list", want)
		}
	}
}
