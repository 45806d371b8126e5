// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// OWASP-recommended argon2id parameters.
const (
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4         // parallelism
	argon2SaltLen = 16        // salt length in bytes
	argon2KeyLen  = 32        // output length in bytes
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides one-way password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted argon2id hash of the password. Two calls
	// with the same password yield different encodings.
	Hash(password string) (string, error)

	// Verify reports whether the password matches the stored hash. A
	// malformed or corrupt stored hash verifies as false; it is an
	// invalid credential, not a retryable failure.
	Verify(password, hash string) bool
}

// Argon2idHasher implements PasswordHasher using argon2id.
type Argon2idHasher struct{}

// NewArgon2idHasher creates a new Argon2idHasher.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{}
}

// Hash produces an argon2id hash of the password.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	// Encode as PHC string format
	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)

	return encoded, nil
}

// Verify reports whether the password matches the encoded hash.
func (h *Argon2idHasher) Verify(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false
	}

	if parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	// Guard the uint8/uint32 conversions below against corrupt records.
	if threads > 255 {
		return false
	}
	keyLen := len(expectedHash)
	if keyLen <= 0 || keyLen > 1<<30 {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt, time, memory, uint8(threads), uint32(keyLen))

	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1
}

// BoundedHasher caps concurrent hash computations. Hashing is deliberately
// expensive; the bound keeps a burst of logins from monopolizing every
// request-handling goroutine.
type BoundedHasher struct {
	inner PasswordHasher
	slots chan struct{}
}

// NewBoundedHasher wraps inner with a concurrency limit. A limit below one
// is treated as one.
func NewBoundedHasher(inner PasswordHasher, limit int) *BoundedHasher {
	if limit < 1 {
		limit = 1
	}
	return &BoundedHasher{
		inner: inner,
		slots: make(chan struct{}, limit),
	}
}

// Hash acquires a slot and delegates to the wrapped hasher.
func (h *BoundedHasher) Hash(password string) (string, error) {
	h.slots <- struct{}{}
	defer func() { <-h.slots }()
	return h.inner.Hash(password)
}

// Verify acquires a slot and delegates to the wrapped hasher.
func (h *BoundedHasher) Verify(password, hash string) bool {
	h.slots <- struct{}{}
	defer func() { <-h.slots }()
	return h.inner.Verify(password, hash)
}

var _ PasswordHasher = (*Argon2idHasher)(nil)
var _ PasswordHasher = (*BoundedHasher)(nil)
