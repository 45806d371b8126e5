// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionTokenBytes is the entropy of a session token: 32 bytes, 64 hex
// characters, far past the 128-bit collision floor.
const SessionTokenBytes = 32

// Clock supplies the current time. Stores take one so expiry is
// deterministically testable; nil means time.Now.
type Clock func() time.Time

// Session maps a token to an account. Sessions are immutable once
// created; only their liveness is reinterpreted by expiry rules.
type Session struct {
	// TokenHash is the SHA-256 hex of the plaintext token. The plaintext
	// is returned once at creation and never stored.
	TokenHash string
	AccountID ulid.ULID
	CreatedAt time.Time
}

// SessionStore manages the lifecycle of session tokens.
type SessionStore interface {
	// Create records a new session for the account and returns the
	// plaintext token.
	Create(ctx context.Context, accountID ulid.ULID) (string, error)

	// Lookup resolves a plaintext token to its session. Returns
	// ErrNoSession when the token is unknown or expired.
	Lookup(ctx context.Context, token string) (Session, error)

	// Destroy removes the session for the token. Returns true if a live
	// session was removed, false if there was nothing to do.
	Destroy(ctx context.Context, token string) (bool, error)
}

// DurableSessionStore is the persistence collaborator for sessions that
// must survive restarts. Each operation is one atomic unit of work.
type DurableSessionStore interface {
	Insert(ctx context.Context, session Session) error

	// QueryByToken retrieves a session by token hash. Returns
	// ErrNoSession if absent.
	QueryByToken(ctx context.Context, tokenHash string) (Session, error)

	// Delete removes a session by token hash, reporting whether a record
	// existed.
	Delete(ctx context.Context, tokenHash string) (bool, error)
}

// GenerateSessionToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error). The plaintext goes to the
// client; only the hash is stored.
func GenerateSessionToken() (token, hash string, err error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	hash = HashSessionToken(token)

	return token, hash, nil
}

// HashSessionToken computes the SHA-256 hex of a session token.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
