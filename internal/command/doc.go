// Package command decodes client request frames into typed commands.
//
// A request is a counted array of bulk strings. Dispatch is untagged: every
// command shape is tried in declared order, and the first whose name marker
// and body both decode wins. A marker miss classifies the candidate as
// "not this command"; when every candidate misses its marker the request is
// an unknown command, while a matched marker with a failing body surfaces
// that command's own error (arity, duplicate option, bad argument).
//
// Modifier arguments (SET NX/XX/GET/expiry, EXPIRE flags, SCAN MATCH/COUNT)
// are option slots: order-free, at most one fill per slot.
//
// @req RQ-0201
// @design DS-0201
package command
