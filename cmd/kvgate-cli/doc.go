// Package main provides the entry point for kvgate-cli.
//
// The CLI tool talks RESP to a kvgate server:
//
//   - One-shot mode: kvgate-cli GET mykey
//   - Interactive prompt when started without arguments
//   - hash-password utility for provisioning server users
//
// Usage:
//
//	kvgate-cli [flags] [COMMAND [arg ...]]
//	kvgate-cli -s 127.0.0.1:6379 SET greeting hello
//	kvgate-cli -3 -a secret
//
// In one-shot mode the exit status is 0 for normal replies and 1 for
// error replies, so scripts can branch on it.
//
// @design DS-0601
package main
