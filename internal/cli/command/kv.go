package command

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kvgate/kvgate/internal/cli/client"
	"github.com/kvgate/kvgate/internal/cli/render"
	"github.com/kvgate/kvgate/internal/resp"
)

// KVCommands returns the typed keyspace subcommands. They print plain
// scriptable output, unlike the raw passthrough, which renders replies
// the way the prompt does.
func KVCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "get",
			Usage:     "Print the raw value of a key",
			ArgsUsage: "KEY",
			Description: "Prints the value bytes followed by a newline.\n" +
				"A missing key prints nothing and exits zero.",
			Action: kvGet,
		},
		{
			Name:      "set",
			Usage:     "Write a value",
			ArgsUsage: "KEY VALUE",
			Description: "Prints OK on success. When --nx or --xx blocks the\n" +
				"write, nothing is printed and the exit status is one.",
			Flags: []cli.Flag{
				&cli.DurationFlag{
					Name:  "ttl",
					Usage: "expiry as a duration (e.g. 90s, 1h30m)",
				},
				&cli.BoolFlag{
					Name:  "keepttl",
					Usage: "retain the TTL the key already has",
				},
				&cli.BoolFlag{
					Name:  "nx",
					Usage: "write only if the key does not exist",
				},
				&cli.BoolFlag{
					Name:  "xx",
					Usage: "write only if the key already exists",
				},
				&cli.BoolFlag{
					Name:  "get",
					Usage: "print the previous value instead of OK",
				},
			},
			Action: kvSet,
		},
		{
			Name:      "del",
			Usage:     "Delete keys",
			ArgsUsage: "KEY [KEY...]",
			Action:    kvDel,
		},
		{
			Name:      "incr",
			Usage:     "Increment a counter",
			ArgsUsage: "KEY",
			Flags:     counterFlags(),
			Action:    counterAction("INCR", "INCRBY"),
		},
		{
			Name:      "decr",
			Usage:     "Decrement a counter",
			ArgsUsage: "KEY",
			Flags:     counterFlags(),
			Action:    counterAction("DECR", "DECRBY"),
		},
		{
			Name:      "expire",
			Usage:     "Set a key's time to live",
			ArgsUsage: "KEY DURATION",
			Description: "DURATION is either a duration string (90s, 1h) or plain\n" +
				"seconds. Prints OK when the expiry was set; when a condition\n" +
				"flag blocks it, nothing is printed and the exit status is one.",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "nx", Usage: "only when the key has no expiry"},
				&cli.BoolFlag{Name: "xx", Usage: "only when the key has an expiry"},
				&cli.BoolFlag{Name: "gt", Usage: "only when longer than the current expiry"},
				&cli.BoolFlag{Name: "lt", Usage: "only when shorter than the current expiry"},
			},
			Action: kvExpire,
		},
		{
			Name:  "scan",
			Usage: "List keys, one per line",
			Description: "Walks the whole keyspace, following cursors until the\n" +
				"server reports the walk is done.",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "match",
					Aliases: []string{"m"},
					Usage:   "glob pattern keys must match",
				},
				&cli.Int64Flag{
					Name:  "count",
					Usage: "per-round batch size hint",
				},
			},
			Action: kvScan,
		},
		{
			Name:  "flush",
			Usage: "Delete every key",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:    "force",
					Aliases: []string{"f"},
					Usage:   "skip confirmation",
				},
			},
			Action: kvFlush,
		},
	}
}

// connect dials the server named by the global flags.
func connect(c *cli.Context) (*client.Client, error) {
	flags := ParseGlobalFlags(c)
	cl, err := client.Dial(clientConfig(flags))
	if err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", dialTarget(flags), err)
	}
	return cl, nil
}

// replyErr turns an error reply into a non-zero exit.
func replyErr(v resp.Value) error {
	return cli.Exit(render.Reply(v), 1)
}

func kvGet(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: get KEY")
	}

	cl, err := connect(c)
	if err != nil {
		return err
	}
	defer cl.Close()

	v, err := cl.Do("GET", c.Args().First())
	if err != nil {
		return err
	}
	if v.IsError() {
		return replyErr(v)
	}
	if v.Null {
		return nil
	}
	fmt.Fprintln(c.App.Writer, v.Str)
	return nil
}

func kvSet(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: set KEY VALUE")
	}
	if c.Bool("nx") && c.Bool("xx") {
		return fmt.Errorf("--nx and --xx are mutually exclusive")
	}
	if c.Bool("keepttl") && c.Duration("ttl") > 0 {
		return fmt.Errorf("--keepttl and --ttl are mutually exclusive")
	}

	args := []string{"SET", c.Args().Get(0), c.Args().Get(1)}
	if ttl := c.Duration("ttl"); ttl > 0 {
		// Whole seconds travel as EX, anything finer as PX.
		if ttl%time.Second == 0 {
			args = append(args, "EX", strconv.FormatInt(int64(ttl/time.Second), 10))
		} else {
			args = append(args, "PX", strconv.FormatInt(ttl.Milliseconds(), 10))
		}
	}
	if c.Bool("keepttl") {
		args = append(args, "KEEPTTL")
	}
	if c.Bool("nx") {
		args = append(args, "NX")
	}
	if c.Bool("xx") {
		args = append(args, "XX")
	}
	if c.Bool("get") {
		args = append(args, "GET")
	}

	cl, err := connect(c)
	if err != nil {
		return err
	}
	defer cl.Close()

	v, err := cl.Do(args...)
	if err != nil {
		return err
	}
	switch {
	case v.IsError():
		return replyErr(v)
	case c.Bool("get"):
		// The previous value, which may be absent.
		if !v.Null {
			fmt.Fprintln(c.App.Writer, v.Str)
		}
	case v.Null:
		return cli.Exit("", 1)
	default:
		fmt.Fprintln(c.App.Writer, "OK")
	}
	return nil
}

func kvDel(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: del KEY [KEY...]")
	}

	cl, err := connect(c)
	if err != nil {
		return err
	}
	defer cl.Close()

	v, err := cl.Do(append([]string{"DEL"}, c.Args().Slice()...)...)
	if err != nil {
		return err
	}
	if v.IsError() {
		return replyErr(v)
	}
	fmt.Fprintf(c.App.Writer, "%d\n", v.Int)
	return nil
}

func counterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:  "by",
			Value: 1,
			Usage: "step size",
		},
	}
}

// counterAction builds the INCR/DECR action; a --by other than one
// switches to the BY variant of the verb.
func counterAction(verb, byVerb string) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.NArg() != 1 {
			return fmt.Errorf("usage: %s KEY", strings.ToLower(verb))
		}

		args := []string{verb, c.Args().First()}
		if by := c.Int64("by"); by != 1 {
			args = []string{byVerb, c.Args().First(), strconv.FormatInt(by, 10)}
		}

		cl, err := connect(c)
		if err != nil {
			return err
		}
		defer cl.Close()

		v, err := cl.Do(args...)
		if err != nil {
			return err
		}
		if v.IsError() {
			return replyErr(v)
		}
		fmt.Fprintf(c.App.Writer, "%d\n", v.Int)
		return nil
	}
}

func kvExpire(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: expire KEY DURATION")
	}
	set := 0
	for _, name := range []string{"nx", "xx", "gt", "lt"} {
		if c.Bool(name) {
			set++
		}
	}
	if set > 1 {
		return fmt.Errorf("--nx, --xx, --gt and --lt are mutually exclusive")
	}

	secs, err := parseSeconds(c.Args().Get(1))
	if err != nil {
		return err
	}

	args := []string{"EXPIRE", c.Args().First(), strconv.FormatInt(secs, 10)}
	for _, name := range []string{"nx", "xx", "gt", "lt"} {
		if c.Bool(name) {
			args = append(args, strings.ToUpper(name))
		}
	}

	cl, err := connect(c)
	if err != nil {
		return err
	}
	defer cl.Close()

	v, err := cl.Do(args...)
	if err != nil {
		return err
	}
	if v.IsError() {
		return replyErr(v)
	}
	if v.Int == 0 {
		return cli.Exit("", 1)
	}
	fmt.Fprintln(c.App.Writer, "OK")
	return nil
}

// parseSeconds accepts plain seconds or a duration string.
func parseSeconds(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 1 {
			return 0, fmt.Errorf("ttl must be at least one second")
		}
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d < time.Second {
		return 0, fmt.Errorf("ttl must be at least one second")
	}
	return int64(d / time.Second), nil
}

func kvScan(c *cli.Context) error {
	cl, err := connect(c)
	if err != nil {
		return err
	}
	defer cl.Close()

	cursor := "0"
	for {
		args := []string{"SCAN", cursor}
		if m := c.String("match"); m != "" {
			args = append(args, "MATCH", m)
		}
		if n := c.Int64("count"); n > 0 {
			args = append(args, "COUNT", strconv.FormatInt(n, 10))
		}

		v, err := cl.Do(args...)
		if err != nil {
			return err
		}
		if v.IsError() {
			return replyErr(v)
		}
		if len(v.Elems) != 2 {
			return fmt.Errorf("unexpected SCAN reply shape")
		}
		for _, k := range v.Elems[1].Elems {
			fmt.Fprintln(c.App.Writer, k.Str)
		}
		cursor = v.Elems[0].Str
		if cursor == "0" {
			return nil
		}
	}
}

func kvFlush(c *cli.Context) error {
	flags := ParseGlobalFlags(c)
	if !c.Bool("force") {
		fmt.Fprintf(c.App.Writer, "This deletes every key on %s. Type 'yes' to confirm: ", dialTarget(flags))
		sc := bufio.NewScanner(c.App.Reader)
		if !sc.Scan() || strings.TrimSpace(sc.Text()) != "yes" {
			fmt.Fprintln(c.App.Writer, "Cancelled.")
			return nil
		}
	}

	cl, err := connect(c)
	if err != nil {
		return err
	}
	defer cl.Close()

	v, err := cl.Do("FLUSHDB")
	if err != nil {
		return err
	}
	if v.IsError() {
		return replyErr(v)
	}
	fmt.Fprintln(c.App.Writer, "OK")
	return nil
}
