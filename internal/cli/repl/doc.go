// Package repl provides the interactive prompt for kvgate-cli.
//
// The loop reads one command per line, splits it with the same quoting
// rules inline commands use (SplitArgs), sends it over the shared
// client connection, and renders the reply. Lines are kept in a
// history file under ~/.kvgate; exit and quit leave the loop after a
// best-effort QUIT.
//
// @design DS-0602
package repl
