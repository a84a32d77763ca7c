// Package main provides the entry point for kvgate-server.
//
// The server is the kvgate gateway process:
//
//   - RESP2/RESP3 protocol over TCP, TLS, and unix sockets
//   - Transactional key-value storage, in memory or on disk (Badger)
//   - Optional AUTH with argon2id password hashes
//   - Admin HTTP endpoint with liveness and Prometheus metrics
//
// Usage:
//
//	kvgate-server [flags]
//	kvgate-server --config /path/to/config.yaml
//
// Configuration merges defaults, the YAML file, KVGATE_* environment
// variables, and command-line flags, in that order of precedence.
//
// @design DS-0501
package main
