// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// ExpiringStore decorates a SessionStore with a time-to-live. A TTL of
// zero means sessions never expire. Expired sessions are reported absent
// but not deleted: Active to Expired is a terminal transition, never
// reversed even though the record stays physically stored.
type ExpiringStore struct {
	inner SessionStore
	ttl   time.Duration
	now   Clock
}

// NewExpiringStore wraps inner with the given TTL. A nil clock means
// time.Now; a negative TTL is treated as zero.
func NewExpiringStore(inner SessionStore, ttl time.Duration, now Clock) *ExpiringStore {
	if now == nil {
		now = time.Now
	}
	if ttl < 0 {
		ttl = 0
	}
	return &ExpiringStore{
		inner: inner,
		ttl:   ttl,
		now:   now,
	}
}

// Create delegates to the wrapped store.
func (s *ExpiringStore) Create(ctx context.Context, accountID ulid.ULID) (string, error) {
	return s.inner.Create(ctx, accountID)
}

// Lookup delegates to the wrapped store, then reinterprets liveness:
// sessions past CreatedAt+TTL are absent.
func (s *ExpiringStore) Lookup(ctx context.Context, token string) (Session, error) {
	session, err := s.inner.Lookup(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if s.ttl > 0 && !s.now().Before(session.CreatedAt.Add(s.ttl)) {
		return Session{}, ErrNoSession
	}
	return session, nil
}

// Destroy delegates to the wrapped store. Expired sessions can still be
// destroyed; the physical record is what gets removed.
func (s *ExpiringStore) Destroy(ctx context.Context, token string) (bool, error) {
	return s.inner.Destroy(ctx, token)
}

var _ SessionStore = (*ExpiringStore)(nil)
