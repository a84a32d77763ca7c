package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kvgate/kvgate/internal/cli/client"
	"github.com/kvgate/kvgate/internal/cli/render"
)

// REPL drives the interactive prompt over one server connection.
type REPL struct {
	input     io.Reader
	output    io.Writer
	client    *client.Client
	completer *Completer
	history   *History
}

// New creates a REPL bound to an established connection.
func New(cl *client.Client) *REPL {
	return &REPL{
		input:     os.Stdin,
		output:    os.Stdout,
		client:    cl,
		completer: NewCompleter(),
		history:   NewHistory(),
	}
}

// Run reads lines until EOF or an exit command. Reply errors print
// like any other reply and the loop continues; transport errors end
// the session.
func (r *REPL) Run() error {
	// A broken history file should not block the session.
	_ = r.history.Load()
	defer func() { _ = r.history.Save() }()

	in := bufio.NewScanner(r.input)
	in.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	prompt := r.client.Addr() + "> "

	for {
		fmt.Fprint(r.output, prompt)

		if !in.Scan() {
			fmt.Fprintln(r.output)
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		r.history.Add(line)

		done, err := r.handleLine(line)
		if done || err != nil {
			return err
		}
	}
}

// handleLine runs one prompt line. done means the session should end;
// a non-nil error means the connection is unusable.
func (r *REPL) handleLine(line string) (done bool, err error) {
	switch strings.ToLower(line) {
	case "exit", "quit":
		r.client.Do("QUIT")
		return true, nil
	case "help":
		r.printHelp()
		return false, nil
	}

	args, err := SplitArgs(line)
	if err != nil {
		fmt.Fprintf(r.output, "(error) %v\n", err)
		return false, nil
	}

	v, err := r.client.Do(args...)
	if err != nil {
		return false, fmt.Errorf("connection lost: %w", err)
	}
	fmt.Fprintln(r.output, render.Reply(v))
	return false, nil
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.output, "Commands:")
	for _, cmd := range r.completer.Commands() {
		fmt.Fprintln(r.output, "  "+cmd)
	}
	fmt.Fprintln(r.output, "Any line is sent to the server as typed; exit or quit leaves.")
}
