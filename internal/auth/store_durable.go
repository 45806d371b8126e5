// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DurableStore adapts a DurableSessionStore collaborator to the
// SessionStore interface, so sessions and their creation times survive
// process restarts. The durable record is the single source of truth: a
// failed insert surfaces as a failed create, never as "logged in".
type DurableStore struct {
	records DurableSessionStore
	now     Clock
}

// NewDurableStore creates a DurableStore. A nil clock means time.Now.
func NewDurableStore(records DurableSessionStore, now Clock) *DurableStore {
	if now == nil {
		now = time.Now
	}
	return &DurableStore{
		records: records,
		now:     now,
	}
}

// Create records a new session in the durable store and returns the
// plaintext token.
func (s *DurableStore) Create(ctx context.Context, accountID ulid.ULID) (string, error) {
	token, hash, err := GenerateSessionToken()
	if err != nil {
		return "", err
	}

	session := Session{
		TokenHash: hash,
		AccountID: accountID,
		CreatedAt: s.now(),
	}
	if err := s.records.Insert(ctx, session); err != nil {
		return "", oops.Code("SESSION_PERSIST_FAILED").
			With("operation", "insert session").
			With("account_id", accountID.String()).
			Wrap(err)
	}

	return token, nil
}

// Lookup resolves a token against the durable store. Read failures fail
// safe: any error is reported as session absent, never as found.
func (s *DurableStore) Lookup(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrNoSession
	}
	session, err := s.records.QueryByToken(ctx, HashSessionToken(token))
	if err != nil {
		return Session{}, ErrNoSession
	}
	return session, nil
}

// Destroy removes the durable record. A delete failure reports false with
// the underlying error so callers can log it.
func (s *DurableStore) Destroy(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	existed, err := s.records.Delete(ctx, HashSessionToken(token))
	if err != nil {
		return false, oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return existed, nil
}

var _ SessionStore = (*DurableStore)(nil)
