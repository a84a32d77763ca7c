package command

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kvgate/kvgate/internal/resp"
	"github.com/kvgate/kvgate/internal/resp/bind"
	"github.com/kvgate/kvgate/pkg/optional"
)

// frame renders args as the array-of-bulk-strings request encoding.
func frame(args ...string) string {
	return string(resp.AppendCommand(nil, args...))
}

var cmpOpts = cmp.Options{
	cmp.AllowUnexported(
		optional.Value[string]{},
		optional.Value[uint64]{},
		optional.Value[Existence]{},
		optional.Value[Expiry]{},
		optional.Value[ExpireFlag]{},
		optional.Value[FlushMode]{},
		optional.Value[HelloAuth]{},
	),
}

func mustParse(t *testing.T, data string) Command {
	t.Helper()
	cmd, rest, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse(%q): unexpected error: %v", data, err)
	}
	if len(rest) != 0 {
		t.Fatalf("Parse(%q): %d leftover bytes %q", data, len(rest), rest)
	}
	return cmd
}

// ============================================================
// Well-formed commands
// ============================================================

func TestParseCommands(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Command
	}{
		{
			name: "get",
			data: "*2\r\n$3\r\nGET\r\n$5\r\nhello\r\n",
			want: &Get{Key: "hello"},
		},
		{
			name: "get lowercase",
			data: frame("get", "hello"),
			want: &Get{Key: "hello"},
		},
		{
			name: "getdel",
			data: frame("GETDEL", "hello"),
			want: &GetDel{Key: "hello"},
		},
		{
			name: "set bare",
			data: frame("SET", "foo", "bar"),
			want: &Set{Key: "foo", Value: "bar"},
		},
		{
			name: "set all options",
			data: "*7\r\n$3\r\nset\r\n$3\r\nfoo\r\n$3\r\nbar\r\n$2\r\nNX\r\n$3\r\nGET\r\n$2\r\nPX\r\n$6\r\n123444\r\n",
			want: &Set{Key: "foo", Value: "bar", Options: SetOptions{
				Existence: optional.Some(IfAbsent),
				Get:       true,
				Expiry:    optional.Some(Expiry{Kind: ExpiryMillis, Value: 123444}),
			}},
		},
		{
			name: "set options reordered",
			data: frame("SET", "foo", "bar", "EX", "10", "XX"),
			want: &Set{Key: "foo", Value: "bar", Options: SetOptions{
				Existence: optional.Some(IfPresent),
				Expiry:    optional.Some(Expiry{Kind: ExpirySeconds, Value: 10}),
			}},
		},
		{
			name: "set keepttl",
			data: frame("SET", "foo", "bar", "KEEPTTL"),
			want: &Set{Key: "foo", Value: "bar", Options: SetOptions{
				Expiry: optional.Some(Expiry{Kind: ExpiryKeep}),
			}},
		},
		{
			name: "set exat",
			data: frame("SET", "foo", "bar", "EXAT", "1755945600"),
			want: &Set{Key: "foo", Value: "bar", Options: SetOptions{
				Expiry: optional.Some(Expiry{Kind: ExpiryUnixSeconds, Value: 1755945600}),
			}},
		},
		{
			name: "ping",
			data: frame("PING"),
			want: &Ping{},
		},
		{
			name: "ping message",
			data: frame("PING", "hi"),
			want: &Ping{Message: optional.Some("hi")},
		},
		{
			name: "echo",
			data: frame("ECHO", "hi"),
			want: &Echo{Message: "hi"},
		},
		{
			name: "quit",
			data: frame("QUIT"),
			want: &Quit{},
		},
		{
			name: "del variadic",
			data: frame("DEL", "a", "b", "c"),
			want: &Del{Keys: []string{"a", "b", "c"}},
		},
		{
			name: "exists",
			data: frame("EXISTS", "a"),
			want: &Exists{Keys: []string{"a"}},
		},
		{
			name: "incr",
			data: frame("INCR", "n"),
			want: &Incr{Key: "n"},
		},
		{
			name: "incrby string-framed delta",
			data: frame("INCRBY", "n", "15"),
			want: &IncrBy{Key: "n", Delta: 15},
		},
		{
			name: "decrby negative",
			data: frame("DECRBY", "n", "-3"),
			want: &DecrBy{Key: "n", Delta: -3},
		},
		{
			name: "ttl",
			data: frame("TTL", "k"),
			want: &TTL{Key: "k"},
		},
		{
			name: "expire",
			data: frame("EXPIRE", "k", "100"),
			want: &Expire{Key: "k", Seconds: 100},
		},
		{
			name: "expire with flag",
			data: frame("EXPIRE", "k", "100", "GT"),
			want: &Expire{Key: "k", Seconds: 100, Flag: optional.Some(ExpireIfGreater)},
		},
		{
			name: "scan start",
			data: frame("SCAN", "0"),
			want: &Scan{Cursor: "0"},
		},
		{
			name: "scan match count",
			data: frame("SCAN", "0", "MATCH", "user:*", "COUNT", "100"),
			want: &Scan{Cursor: "0", Match: optional.Some("user:*"), Count: optional.Some(uint64(100))},
		},
		{
			name: "flushdb",
			data: frame("FLUSHDB"),
			want: &FlushDB{},
		},
		{
			name: "flushdb sync",
			data: frame("FLUSHDB", "SYNC"),
			want: &FlushDB{Mode: optional.Some(FlushSync)},
		},
		{
			name: "multi",
			data: frame("MULTI"),
			want: &Multi{},
		},
		{
			name: "exec",
			data: frame("EXEC"),
			want: &Exec{},
		},
		{
			name: "discard",
			data: frame("DISCARD"),
			want: &Discard{},
		},
		{
			name: "watch",
			data: frame("WATCH", "a", "b"),
			want: &Watch{Keys: []string{"a", "b"}},
		},
		{
			name: "unwatch",
			data: frame("UNWATCH"),
			want: &Unwatch{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustParse(t, tt.data)
			if diff := cmp.Diff(tt.want, got, cmpOpts); diff != "" {
				t.Errorf("command mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// ============================================================
// AUTH: the two-argument shape wins over the one-argument one
// ============================================================

func TestParseAuth(t *testing.T) {
	got := mustParse(t, frame("AUTH", "carol", "gravel"))
	want := &Auth{Username: optional.Some("carol"), Password: "gravel"}
	if diff := cmp.Diff(want, got, cmpOpts); diff != "" {
		t.Errorf("two-arg AUTH (-want +got):\n%s", diff)
	}

	got = mustParse(t, frame("AUTH", "gravel"))
	want = &Auth{Password: "gravel"}
	if diff := cmp.Diff(want, got, cmpOpts); diff != "" {
		t.Errorf("one-arg AUTH (-want +got):\n%s", diff)
	}
}

// ============================================================
// HELLO
// ============================================================

func TestParseHello(t *testing.T) {
	tests := []struct {
		name string
		data string
		want *Hello
	}{
		{
			name: "bare",
			data: frame("HELLO"),
			want: &Hello{},
		},
		{
			name: "protover",
			data: frame("HELLO", "3"),
			want: &Hello{ProtoVer: optional.Some(uint64(3))},
		},
		{
			name: "full handshake",
			data: frame("HELLO", "3", "AUTH", "default", "sesame", "SETNAME", "cli"),
			want: &Hello{
				ProtoVer: optional.Some(uint64(3)),
				Auth:     optional.Some(HelloAuth{Username: "default", Password: "sesame"}),
				SetName:  optional.Some("cli"),
			},
		},
		{
			name: "auth without protover",
			data: frame("HELLO", "AUTH", "default", "sesame"),
			want: &Hello{
				Auth: optional.Some(HelloAuth{Username: "default", Password: "sesame"}),
			},
		},
		{
			name: "unsupported version binds as given",
			data: frame("HELLO", "9"),
			want: &Hello{ProtoVer: optional.Some(uint64(9))},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustParse(t, tt.data)
			if diff := cmp.Diff(tt.want, got, cmpOpts); diff != "" {
				t.Errorf("HELLO mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// ============================================================
// COMMAND
// ============================================================

func TestParseCommandInfo(t *testing.T) {
	tests := []struct {
		name string
		data string
		want *CommandInfo
	}{
		{name: "bare", data: frame("COMMAND"), want: &CommandInfo{}},
		{name: "docs", data: frame("COMMAND", "DOCS"), want: &CommandInfo{Docs: true}},
		{
			name: "docs for one command",
			data: frame("COMMAND", "DOCS", "GET"),
			want: &CommandInfo{Docs: true, CommandName: optional.Some("GET")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustParse(t, tt.data)
			if diff := cmp.Diff(tt.want, got, cmpOpts); diff != "" {
				t.Errorf("COMMAND mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("second name is a repeat", func(t *testing.T) {
		_, _, err := Parse([]byte(frame("COMMAND", "DOCS", "GET", "SET")))
		if !errors.Is(err, bind.ErrDuplicateOption) {
			t.Fatalf("got %v, want ErrDuplicateOption", err)
		}
	})
}

// ============================================================
// Parse failures and their classification
// ============================================================

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{name: "empty array", data: "*0\r\n", want: ErrEmptyCommand},
		{name: "unknown command", data: frame("FLUSHALL"), want: ErrUnknownCommand},
		{name: "get missing key", data: frame("GET"), want: bind.ErrExhausted},
		{name: "get extra arg", data: frame("GET", "a", "b"), want: bind.ErrTrailing},
		{name: "del no keys", data: frame("DEL"), want: bind.ErrExhausted},
		{name: "set expiry twice", data: frame("SET", "k", "v", "EX", "10", "EX", "20"), want: bind.ErrDuplicateOption},
		{name: "set duplicate expiry slot", data: frame("SET", "k", "v", "EX", "10", "PX", "20"), want: bind.ErrDuplicateOption},
		{name: "set conflicting existence", data: frame("SET", "k", "v", "NX", "XX"), want: bind.ErrDuplicateOption},
		{name: "set unknown modifier", data: frame("SET", "k", "v", "BOGUS"), want: bind.ErrTrailing},
		{name: "expire conflicting flags", data: frame("EXPIRE", "k", "10", "NX", "LT"), want: bind.ErrDuplicateOption},
		{name: "incrby non-integer delta", data: frame("INCRBY", "k", "ten"), want: resp.ErrTypeMismatch},
		// A negative expiry fails the EX candidate, so the modifier
		// tail never matches and surfaces as trailing input.
		{name: "negative expiry never matches", data: frame("SET", "k", "v", "EX", "-1"), want: bind.ErrTrailing},
		{name: "top level not an array", data: ":1\r\n", want: resp.ErrTypeMismatch},
		{name: "partial frame", data: "*2\r\n$3\r\nGET\r\n", want: resp.ErrIncomplete},
		{name: "partial first element", data: "*1\r\n$4\r\nPI", want: resp.ErrIncomplete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse([]byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Parse(%q) error = %v, want %v", tt.data, err, tt.want)
			}
		})
	}
}

func TestParseErrorCarriesCommandName(t *testing.T) {
	_, _, err := Parse([]byte(frame("GET", "a", "b")))
	var cerr *CommandError
	if !errors.As(err, &cerr) {
		t.Fatalf("got %T (%v), want *CommandError", err, err)
	}
	if cerr.Name != "GET" {
		t.Errorf("CommandError.Name = %q, want %q", cerr.Name, "GET")
	}
}

func TestParseUnknownCommandDetail(t *testing.T) {
	_, _, err := Parse([]byte(frame("flushall", "now")))
	var uerr *UnknownCommandError
	if !errors.As(err, &uerr) {
		t.Fatalf("got %T (%v), want *UnknownCommandError", err, err)
	}
	if uerr.Attempted != "flushall" {
		t.Errorf("Attempted = %q, want %q", uerr.Attempted, "flushall")
	}
	if uerr.Causes == nil || len(uerr.Causes.Candidates) == 0 {
		t.Error("expected per-candidate causes to be recorded")
	}
}

// An argument that cannot be read yet must surface as incomplete, not
// as a rejected command, so the caller waits for more bytes instead of
// erroring out.
func TestParseIncompleteBeatsClassification(t *testing.T) {
	// AUTH with a second argument whose payload has not arrived.
	data := "*3\r\n$4\r\nAUTH\r\n$5\r\ncarol\r\n$6\r\nses"
	_, _, err := Parse([]byte(data))
	if !errors.Is(err, resp.ErrIncomplete) {
		t.Fatalf("got %v, want ErrIncomplete", err)
	}
	if errors.Is(err, ErrUnknownCommand) {
		t.Fatal("incomplete frame must not classify as unknown command")
	}
}

// ============================================================
// Pipelining
// ============================================================

func TestParsePipelined(t *testing.T) {
	data := frame("SET", "k", "v") + frame("GET", "k")
	cmd, rest, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("first Parse: %v", err)
	}
	if _, ok := cmd.(*Set); !ok {
		t.Fatalf("first command = %T, want *Set", cmd)
	}
	if string(rest) != frame("GET", "k") {
		t.Fatalf("rest = %q, want the second frame", rest)
	}
	cmd, rest, err = Parse(rest)
	if err != nil {
		t.Fatalf("second Parse: %v", err)
	}
	if got, ok := cmd.(*Get); !ok || got.Key != "k" {
		t.Fatalf("second command = %#v, want *Get{Key: \"k\"}", cmd)
	}
	if len(rest) != 0 {
		t.Fatalf("unexpected leftover %q", rest)
	}
}

// ============================================================
// Inline commands
// ============================================================

func TestParseInline(t *testing.T) {
	cmd, err := ParseInline([]byte("set foo bar"))
	if err != nil {
		t.Fatalf("ParseInline: %v", err)
	}
	want := &Set{Key: "foo", Value: "bar"}
	if diff := cmp.Diff(Command(want), cmd, cmpOpts); diff != "" {
		t.Errorf("inline SET (-want +got):\n%s", diff)
	}

	cmd, err = ParseInline([]byte("  PING  \t "))
	if err != nil {
		t.Fatalf("ParseInline: %v", err)
	}
	if _, ok := cmd.(*Ping); !ok {
		t.Fatalf("inline PING = %T, want *Ping", cmd)
	}

	if _, err := ParseInline([]byte("   ")); !errors.Is(err, ErrEmptyCommand) {
		t.Fatalf("blank line error = %v, want ErrEmptyCommand", err)
	}
}
