// Package command provides CLI command definitions for kvgate-cli.
//
// It uses urfave/cli/v2 for command parsing and supports both
// one-shot mode and the interactive prompt.
package command

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kvgate/kvgate/internal/cli/client"
	"github.com/kvgate/kvgate/internal/cli/render"
	"github.com/kvgate/kvgate/internal/cli/repl"
	"github.com/kvgate/kvgate/internal/infra/buildinfo"
)

// App creates the CLI application.
func App() *cli.App {
	info := buildinfo.Get()
	return &cli.App{
		Name:     "kvgate-cli",
		Usage:    "kvgate command-line client",
		Version:  fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.BuildTime),
		Flags:    globalFlags(),
		Commands: append(KVCommands(), HashPasswordCommand()),
		Action:   run,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "server address (host:port)",
			EnvVars: []string{"KVGATE_SERVER"},
			Value:   "127.0.0.1:6379",
		},
		&cli.StringFlag{
			Name:    "unixsocket",
			Usage:   "connect via a unix socket instead of TCP",
			EnvVars: []string{"KVGATE_UNIXSOCKET"},
		},
		&cli.StringFlag{
			Name:    "user",
			Aliases: []string{"u"},
			Usage:   "username for AUTH",
			EnvVars: []string{"KVGATE_USER"},
		},
		&cli.StringFlag{
			Name:    "pass",
			Aliases: []string{"a"},
			Usage:   "password for AUTH",
			EnvVars: []string{"KVGATE_PASS"},
		},
		&cli.BoolFlag{
			Name:    "resp3",
			Aliases: []string{"3"},
			Usage:   "start the connection in RESP3 mode (HELLO 3)",
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Aliases: []string{"t"},
			Usage:   "per-operation network timeout",
			Value:   client.DefaultTimeout,
		},
		&cli.BoolFlag{
			Name:  "tls",
			Usage: "connect over TLS",
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "skip TLS certificate verification",
		},
	}
}

// GlobalFlags holds the parsed global flags.
type GlobalFlags struct {
	Server     string
	Unixsocket string
	User       string
	Pass       string
	RESP3      bool
	Timeout    time.Duration
	TLS        bool
	Insecure   bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Server:     c.String("server"),
		Unixsocket: c.String("unixsocket"),
		User:       c.String("user"),
		Pass:       c.String("pass"),
		RESP3:      c.Bool("resp3"),
		Timeout:    c.Duration("timeout"),
		TLS:        c.Bool("tls"),
		Insecure:   c.Bool("insecure"),
	}
}

// clientConfig maps the global flags onto a connection config.
func clientConfig(flags *GlobalFlags) client.Config {
	cfg := client.Config{
		Addr:          flags.Server,
		Unixsocket:    flags.Unixsocket,
		Username:      flags.User,
		Password:      flags.Pass,
		Timeout:       flags.Timeout,
		TLS:           flags.TLS,
		TLSSkipVerify: flags.Insecure,
	}
	if flags.RESP3 {
		cfg.Protocol = 3
	}
	return cfg
}

// dialTarget names the endpoint for error messages.
func dialTarget(flags *GlobalFlags) string {
	if flags.Unixsocket != "" {
		return flags.Unixsocket
	}
	return flags.Server
}

// run is the default action: send the positional arguments as one
// command, or open the prompt when there are none.
func run(c *cli.Context) error {
	cl, err := connect(c)
	if err != nil {
		return err
	}
	defer cl.Close()

	if c.Args().Present() {
		return runOnce(c, cl)
	}
	return repl.New(cl).Run()
}

func runOnce(c *cli.Context, cl *client.Client) error {
	v, err := cl.Do(c.Args().Slice()...)
	if err != nil {
		return err
	}
	if v.IsError() {
		// Error replies decide the exit status in one-shot mode.
		return cli.Exit(render.Reply(v), 1)
	}
	fmt.Fprintln(c.App.Writer, render.Reply(v))
	return nil
}
