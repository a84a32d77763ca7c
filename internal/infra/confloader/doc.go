// Package confloader provides configuration loading for kvgate.
//
// It uses koanf to overlay sources with priority: Flag > Env > File >
// Default. Defaults come from the pre-filled target struct; the file
// and environment only override keys they set.
//
// Environment variables use the KVGATE_ prefix with underscores for
// section separators: KVGATE_SERVER_ADDR maps to server.addr. Leaf keys
// spelled with underscores (tls_cert_file) are file-only settings.
//
// @req RQ-0801
// @design DS-0801
package confloader
