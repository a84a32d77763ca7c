// Package server provides the RESP protocol server for kvgate.
//
// It owns the listeners (TCP, optionally TLS-wrapped, plus an optional
// unix socket), the per-connection read loop with incremental frame
// buffering, and the wiring of every accepted connection to a session
// and the shared executor. Incomplete frames buffer and retry; shape
// errors are answered with an error reply and the stream resynchronized
// by skipping the offending frame; only grammar-level corruption closes
// the connection.
//
// @req RQ-0501
// @design DS-0501
package server
