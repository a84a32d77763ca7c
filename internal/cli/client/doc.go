// Package client provides the server connection for kvgate-cli.
//
// A Client owns one RESP connection. Do sends a command as an array
// frame and decodes exactly one reply frame, growing an internal buffer
// until the frame is complete. The handshake (HELLO for RESP3, AUTH
// when credentials are configured) runs during Dial so callers always
// receive a ready connection.
//
// @req RQ-0601
// @design DS-0601
package client
