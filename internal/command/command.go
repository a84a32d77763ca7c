package command

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/kvgate/kvgate/internal/resp"
	"github.com/kvgate/kvgate/internal/resp/bind"
)

// Command is one decoded client request.
type Command interface {
	// Name returns the canonical command name, uppercase.
	Name() string
}

var (
	// ErrEmptyCommand reports a request array with zero elements. The
	// transport ignores such frames.
	ErrEmptyCommand = errors.New("command: empty command")

	// ErrUnknownCommand reports a request whose name matched no command.
	ErrUnknownCommand = errors.New("command: unknown command")
)

// UnknownCommandError carries the attempted command name plus the dispatch
// failures for every candidate shape.
type UnknownCommandError struct {
	Attempted string
	Causes    *bind.NoMatchError
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("command: unknown command %q", e.Attempted)
}

func (e *UnknownCommandError) Is(target error) bool { return target == ErrUnknownCommand }

// CommandError is a request whose name matched a command but whose body did
// not decode. Unwrap exposes the body failure for errors.Is matching.
type CommandError struct {
	Name string
	Err  error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command: %s: %v", e.Name, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// markerError wraps a failure on the command-name element so dispatch can
// tell "wrong command" from "right command, bad body". It unwraps to the
// underlying failure, keeping ErrIncomplete visible to the resolver.
type markerError struct {
	err error
}

func (e *markerError) Error() string { return "not this command: " + e.err.Error() }

func (e *markerError) Unwrap() error { return e.err }

// marker consumes the command-name element of s.
func marker(s *bind.Seq, name string) error {
	if err := s.Marker(name); err != nil {
		return &markerError{err: err}
	}
	return nil
}

// registry lists every command shape in resolution order.
var registry = []bind.Candidate[Command]{
	{Name: "PING", Decode: decodePing},
	{Name: "ECHO", Decode: decodeEcho},
	{Name: "QUIT", Decode: decodeQuit},
	{Name: "HELLO", Decode: decodeHello},
	{Name: "AUTH", Decode: decodeAuthUserPass},
	{Name: "AUTH", Decode: decodeAuthPass},
	{Name: "COMMAND", Decode: decodeCommandInfo},
	{Name: "GET", Decode: decodeGet},
	{Name: "GETDEL", Decode: decodeGetDel},
	{Name: "SET", Decode: decodeSet},
	{Name: "DEL", Decode: decodeDel},
	{Name: "EXISTS", Decode: decodeExists},
	{Name: "INCR", Decode: decodeIncr},
	{Name: "DECR", Decode: decodeDecr},
	{Name: "INCRBY", Decode: decodeIncrBy},
	{Name: "DECRBY", Decode: decodeDecrBy},
	{Name: "TTL", Decode: decodeTTL},
	{Name: "EXPIRE", Decode: decodeExpire},
	{Name: "SCAN", Decode: decodeScan},
	{Name: "FLUSHDB", Decode: decodeFlushDB},
	{Name: "MULTI", Decode: decodeMulti},
	{Name: "EXEC", Decode: decodeExec},
	{Name: "DISCARD", Decode: decodeDiscard},
	{Name: "WATCH", Decode: decodeWatch},
	{Name: "UNWATCH", Decode: decodeUnwatch},
}

// Parse decodes one request frame from buf and returns the command plus
// the unconsumed remainder (a pipelined client may send several frames in
// one read). resp.ErrIncomplete means buffer more input and call again.
func Parse(buf []byte) (Command, []byte, error) {
	return ParseLimits(buf, resp.DefaultLimits())
}

// ParseLimits is Parse under explicit decode limits.
func ParseLimits(buf []byte, lim resp.Limits) (Command, []byte, error) {
	d := bind.NewDecoder(resp.NewCursorLimits(buf, lim))
	s, err := d.CountedSeq()
	if err != nil {
		return nil, buf, err
	}
	if s.Remaining() == 0 {
		return nil, d.Cursor().Remaining(), ErrEmptyCommand
	}
	cmd, err := bind.ResolveFirst(s, registry...)
	if err != nil {
		return nil, buf, classify(buf, lim, err)
	}
	return cmd, d.Cursor().Remaining(), nil
}

// classify turns an all-candidates failure into either the matched
// command's own body error or an unknown-command error.
func classify(buf []byte, lim resp.Limits, err error) error {
	var nm *bind.NoMatchError
	if !errors.As(err, &nm) {
		return err
	}
	for _, c := range nm.Candidates {
		var me *markerError
		if !errors.As(c.Err, &me) {
			return &CommandError{Name: c.Name, Err: c.Err}
		}
	}
	return &UnknownCommandError{Attempted: frameName(buf, lim), Causes: nm}
}

// frameName extracts the first element of the request array for error
// reporting, tolerating anything the generic decoder can read.
func frameName(buf []byte, lim resp.Limits) string {
	c := resp.NewCursorLimits(buf, lim)
	c, _, err := resp.DecodeArrayHeader(c)
	if err != nil {
		return ""
	}
	_, v, err := resp.DecodeValue(c)
	if err != nil {
		return ""
	}
	return v.Str
}

// ParseInline decodes a text-protocol line ("PING", "SET k v") by
// synthesizing the equivalent array frame. The line must not include the
// trailing CRLF.
func ParseInline(line []byte) (Command, error) {
	fields := bytes.Fields(line)
	if len(fields) == 0 {
		return nil, ErrEmptyCommand
	}
	args := make([]string, len(fields))
	for i, f := range fields {
		args[i] = string(f)
	}
	cmd, _, err := Parse(resp.AppendCommand(nil, args...))
	return cmd, err
}
