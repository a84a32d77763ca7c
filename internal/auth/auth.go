// Package auth provides password hashing and connection authentication.
//
// Passwords are stored as argon2id PHC strings
// ($argon2id$v=19$m=...,t=...,p=...$<salt>$<hash>); verification is
// constant-time. The registry throttles failed attempts per user.
//
// @req RQ-0401
// @design DS-0401
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Default argon2id parameters.
const (
	defaultMemory      = 16384 // KiB
	defaultIterations  = 2
	defaultParallelism = 2
	saltLen            = 16
	keyLen             = 32
)

// ErrInvalidHash reports a stored credential that is not a parsable
// argon2id PHC string.
var ErrInvalidHash = errors.New("invalid password hash")

// Hash derives an argon2id PHC string for password with a random salt.
func Hash(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, defaultIterations, defaultMemory, defaultParallelism, keyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, defaultMemory, defaultIterations, defaultParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// Verify reports whether password matches the PHC string. Unparsable
// hashes verify as false.
func Verify(password, phc string) bool {
	memory, iterations, parallelism, salt, key, err := parsePHC(phc)
	if err != nil {
		return false
	}
	computed := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(computed, key) == 1
}

// CheckHash validates that phc parses as an argon2id PHC string, so a
// bad credential in configuration fails at startup instead of at the
// first AUTH.
func CheckHash(phc string) error {
	_, _, _, _, _, err := parsePHC(phc)
	return err
}

func parsePHC(phc string) (memory uint32, iterations uint32, parallelism uint8, salt, key []byte, err error) {
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[0] != "" {
		return 0, 0, 0, nil, nil, ErrInvalidHash
	}
	if parts[1] != "argon2id" {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: algorithm %q", ErrInvalidHash, parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: unsupported version", ErrInvalidHash)
	}

	var m, t uint32
	var p uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: parameters %q", ErrInvalidHash, parts[3])
	}
	if m == 0 || t == 0 || p == 0 {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: zero parameter", ErrInvalidHash)
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: salt encoding", ErrInvalidHash)
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return 0, 0, 0, nil, nil, fmt.Errorf("%w: key encoding", ErrInvalidHash)
	}
	return m, t, p, salt, key, nil
}
