package executor

import (
	"strings"

	"github.com/kvgate/kvgate/internal/command"
	"github.com/kvgate/kvgate/internal/resp"
)

// commandSpec describes one command for COMMAND introspection. Arity
// follows the Redis convention: negative means "at least".
type commandSpec struct {
	name     string
	arity    int
	flags    []string
	firstKey int
	lastKey  int
	step     int
	summary  string
	since    string
}

var commandTable = []commandSpec{
	{"PING", -1, []string{"fast"}, 0, 0, 0, "Ping the server.", "1.0.0"},
	{"ECHO", 2, []string{"fast"}, 0, 0, 0, "Echo the given string.", "1.0.0"},
	{"QUIT", 1, []string{"fast", "no-auth"}, 0, 0, 0, "Close the connection.", "1.0.0"},
	{"HELLO", -1, []string{"fast", "no-auth"}, 0, 0, 0, "Handshake with the server.", "6.0.0"},
	{"AUTH", -2, []string{"fast", "no-auth"}, 0, 0, 0, "Authenticate to the server.", "1.0.0"},
	{"COMMAND", -1, []string{"loading"}, 0, 0, 0, "Get details about server commands.", "2.8.13"},
	{"GET", 2, []string{"readonly", "fast"}, 1, 1, 1, "Get the value of a key.", "1.0.0"},
	{"GETDEL", 2, []string{"write", "fast"}, 1, 1, 1, "Get the value of a key and delete it.", "6.2.0"},
	{"SET", -3, []string{"write", "denyoom"}, 1, 1, 1, "Set the string value of a key.", "1.0.0"},
	{"DEL", -2, []string{"write"}, 1, -1, 1, "Delete one or more keys.", "1.0.0"},
	{"EXISTS", -2, []string{"readonly", "fast"}, 1, -1, 1, "Determine whether keys exist.", "1.0.0"},
	{"INCR", 2, []string{"write", "denyoom", "fast"}, 1, 1, 1, "Increment the integer value of a key by one.", "1.0.0"},
	{"DECR", 2, []string{"write", "denyoom", "fast"}, 1, 1, 1, "Decrement the integer value of a key by one.", "1.0.0"},
	{"INCRBY", 3, []string{"write", "denyoom", "fast"}, 1, 1, 1, "Increment the integer value of a key by a number.", "1.0.0"},
	{"DECRBY", 3, []string{"write", "denyoom", "fast"}, 1, 1, 1, "Decrement the integer value of a key by a number.", "1.0.0"},
	{"TTL", 2, []string{"readonly", "fast"}, 1, 1, 1, "Get a key's time to live in seconds.", "1.0.0"},
	{"EXPIRE", -3, []string{"write", "fast"}, 1, 1, 1, "Set a key's time to live in seconds.", "1.0.0"},
	{"SCAN", -2, []string{"readonly"}, 0, 0, 0, "Incrementally iterate the keyspace.", "2.8.0"},
	{"FLUSHDB", -1, []string{"write"}, 0, 0, 0, "Remove all keys.", "1.0.0"},
	{"MULTI", 1, []string{"fast"}, 0, 0, 0, "Start a transaction block.", "1.2.0"},
	{"EXEC", 1, []string{"skip-slowlog"}, 0, 0, 0, "Execute all queued commands in a transaction.", "1.2.0"},
	{"DISCARD", 1, []string{"fast"}, 0, 0, 0, "Discard a transaction block.", "2.0.0"},
	{"WATCH", -2, []string{"fast"}, 1, -1, 1, "Watch keys to abort EXEC on changes.", "2.2.0"},
	{"UNWATCH", 1, []string{"fast"}, 0, 0, 0, "Forget all watched keys.", "2.2.0"},
}

func (e *Executor) execCommandInfo(c *command.CommandInfo, w *resp.Writer) error {
	table := commandTable
	if name, ok := c.CommandName.Get(); ok {
		table = nil
		for _, spec := range commandTable {
			if strings.EqualFold(spec.name, name) {
				table = []commandSpec{spec}
				break
			}
		}
	}

	if c.Docs {
		if err := w.MapHeader(len(table)); err != nil {
			return err
		}
		for _, spec := range table {
			if err := writeCommandDoc(w, spec); err != nil {
				return err
			}
		}
		return nil
	}

	if err := w.ArrayHeader(len(table)); err != nil {
		return err
	}
	for _, spec := range table {
		if err := writeCommandInfo(w, spec); err != nil {
			return err
		}
	}
	return nil
}

// writeCommandInfo writes the classic COMMAND entry: name, arity,
// flags, first key, last key, key step.
func writeCommandInfo(w *resp.Writer, spec commandSpec) error {
	if err := w.ArrayHeader(6); err != nil {
		return err
	}
	if err := w.BulkString(strings.ToLower(spec.name)); err != nil {
		return err
	}
	if err := w.Int(int64(spec.arity)); err != nil {
		return err
	}
	if err := w.ArrayHeader(len(spec.flags)); err != nil {
		return err
	}
	for _, f := range spec.flags {
		if err := w.SimpleString(f); err != nil {
			return err
		}
	}
	if err := w.Int(int64(spec.firstKey)); err != nil {
		return err
	}
	if err := w.Int(int64(spec.lastKey)); err != nil {
		return err
	}
	return w.Int(int64(spec.step))
}

// writeCommandDoc writes one COMMAND DOCS entry: name mapped to a
// summary/since/arity document.
func writeCommandDoc(w *resp.Writer, spec commandSpec) error {
	if err := w.BulkString(strings.ToLower(spec.name)); err != nil {
		return err
	}
	if err := w.MapHeader(3); err != nil {
		return err
	}
	if err := w.BulkString("summary"); err != nil {
		return err
	}
	if err := w.BulkString(spec.summary); err != nil {
		return err
	}
	if err := w.BulkString("since"); err != nil {
		return err
	}
	if err := w.BulkString(spec.since); err != nil {
		return err
	}
	if err := w.BulkString("arity"); err != nil {
		return err
	}
	return w.Int(int64(spec.arity))
}
