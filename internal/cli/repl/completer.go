package repl

import (
	"slices"
	"strings"
)

// gatewayCommands lists every verb the server accepts, in display
// order.
var gatewayCommands = []string{
	"AUTH", "COMMAND", "DECR", "DECRBY", "DEL", "DISCARD",
	"ECHO", "EXEC", "EXISTS", "EXPIRE", "FLUSHDB", "GET",
	"GETDEL", "HELLO", "INCR", "INCRBY", "MULTI", "PING",
	"QUIT", "SCAN", "SET", "TTL", "UNWATCH", "WATCH",
}

// promptVerbs are handled by the prompt itself, never sent upstream.
var promptVerbs = []string{"exit", "help", "quit"}

// Completer suggests commands for a typed prefix.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer over the gateway command set plus
// the prompt's own verbs.
func NewCompleter() *Completer {
	cmds := make([]string, 0, len(gatewayCommands)+len(promptVerbs))
	cmds = append(cmds, gatewayCommands...)
	cmds = append(cmds, promptVerbs...)
	return &Completer{commands: cmds}
}

// Complete returns the commands matching prefix, ignoring case.
func (c *Completer) Complete(prefix string) []string {
	var matches []string
	for _, cmd := range c.commands {
		if len(cmd) < len(prefix) {
			continue
		}
		if strings.EqualFold(cmd[:len(prefix)], prefix) {
			matches = append(matches, cmd)
		}
	}
	return matches
}

// Commands returns the full list in display order.
func (c *Completer) Commands() []string {
	return slices.Clone(c.commands)
}
