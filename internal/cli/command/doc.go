// Package command provides CLI command definitions for kvgate-cli.
//
// This package defines the kvgate-cli surface using urfave/cli/v2:
//
//   - root.go: global flags, one-shot dispatch, and the prompt entry
//   - kv.go: typed keyspace subcommands with scriptable output
//   - hashpassword.go: hash-password utility for provisioning users
//
// With positional arguments the tool sends one command and exits,
// with the exit status following the reply type. Without arguments it
// opens the interactive prompt. Typed subcommands are lowercase; an
// uppercase command name always takes the raw passthrough path.
//
// @req RQ-0602
// @design DS-0601
package command
