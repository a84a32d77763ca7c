// Package config provides server configuration for kvgate.
//
// The package splits along concerns:
//
//   - spec.go: the ServerConfig tree
//   - default.go: baked-in defaults
//   - verify.go: business validation (engine choice, TLS files, limits)
//   - sanitize.go: masking password hashes before logging
//
// Loading happens through internal/infra/confloader, merging files,
// environment variables, and flags. Leaf keys are single words so
// every section.key pair can also be addressed as KVGATE_SECTION_KEY
// in the environment; keys spelled with underscores (tls_cert_file)
// are file-only.
//
// @req RQ-0503
// @design DS-0503
package config
