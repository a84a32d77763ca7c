// Package executor runs decoded commands against the storage engine and
// writes their replies.
//
// One Executor serves every connection; per-connection state (protocol
// version, authentication, client name, queued transaction, watched
// keys) lives in a Session. Replies for write commands are staged on a
// side buffer and only reach the connection once the storage
// transaction commits, so conflict retries never emit a partial reply
// twice.
//
// @req RQ-0202
// @design DS-0202
package executor
