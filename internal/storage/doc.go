// Package storage defines the transactional key-value contract the
// command executor runs against.
//
// Engines expose snapshot-isolated transactions with commit-time
// conflict detection; Update is the retry wrapper that re-runs a write
// closure while the engine reports the failure as retryable. Two
// implementations exist: badgerkv (durable, production) and memkv
// (in-memory, tests and dev mode).
//
// @req RQ-0301
// @design DS-0301
package storage
