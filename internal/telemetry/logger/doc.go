// Package logger provides structured logging for kvgate.
//
// It wraps the standard library log/slog:
//
//   - logger.go: construction, level control, global default
//   - context.go: context propagation of logger, request and connection IDs
//   - redact.go: sensitive data masking
//
// Features:
//
//   - JSON and text output formats
//   - Runtime log level adjustment
//   - Automatic masking of password hashes and credential fields
//   - Context propagation for per-connection and per-request logging
//
// @req RQ-0701
// @design DS-0701
package logger
