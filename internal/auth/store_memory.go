// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// MemoryStore is an in-process SessionStore. A mutex serializes access to
// the token map; sessions do not survive restarts.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      Clock
}

// NewMemoryStore creates an empty MemoryStore. A nil clock means time.Now.
func NewMemoryStore(now Clock) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		sessions: make(map[string]Session),
		now:      now,
	}
}

// Create records a new session and returns the plaintext token.
func (s *MemoryStore) Create(_ context.Context, accountID ulid.ULID) (string, error) {
	token, hash, err := GenerateSessionToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.sessions[hash] = Session{
		TokenHash: hash,
		AccountID: accountID,
		CreatedAt: s.now(),
	}
	s.mu.Unlock()

	return token, nil
}

// Lookup resolves a plaintext token to its session.
func (s *MemoryStore) Lookup(_ context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrNoSession
	}
	hash := HashSessionToken(token)

	s.mu.RLock()
	session, ok := s.sessions[hash]
	s.mu.RUnlock()

	if !ok {
		return Session{}, ErrNoSession
	}
	return session, nil
}

// Destroy removes the session for the token. Destroying an absent session
// is an idempotent no-op reported as false.
func (s *MemoryStore) Destroy(_ context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	hash := HashSessionToken(token)

	s.mu.Lock()
	_, ok := s.sessions[hash]
	delete(s.sessions, hash)
	s.mu.Unlock()

	return ok, nil
}

// Len reports the number of physically stored sessions, expired included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

var _ SessionStore = (*MemoryStore)(nil)
