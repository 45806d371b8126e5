// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// memRepo is an in-memory AccountRepository for tests.
type memRepo struct {
	mu       sync.Mutex
	accounts map[ulid.ULID]*auth.Account

	// failWith, when set, makes every method return it.
	failWith error
}

func newMemRepo() *memRepo {
	return &memRepo{accounts: make(map[ulid.ULID]*auth.Account)}
}

func (r *memRepo) Create(_ context.Context, account *auth.Account) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == account.Email {
			return auth.ErrDuplicateRegistration
		}
	}
	clone := *account
	r.accounts[account.ID] = &clone
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id ulid.ULID) (*auth.Account, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		clone := *a
		return &clone, nil
	}
	return nil, auth.ErrNotFound
}

func (r *memRepo) FindByEmail(_ context.Context, email string) (*auth.Account, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == email {
			clone := *a
			return &clone, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *memRepo) FindByResetToken(_ context.Context, tokenHash string) (*auth.Account, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ResetTokenHash != nil && *a.ResetTokenHash == tokenHash {
			clone := *a
			return &clone, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *memRepo) Update(_ context.Context, account *auth.Account) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.ID]; !ok {
		return auth.ErrNotFound
	}
	clone := *account
	r.accounts[account.ID] = &clone
	return nil
}

func (r *memRepo) ConsumeResetToken(_ context.Context, tokenHash, passwordHash string, updatedAt time.Time) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ResetTokenHash != nil && *a.ResetTokenHash == tokenHash {
			a.PasswordHash = passwordHash
			a.ResetTokenHash = nil
			a.UpdatedAt = updatedAt
			return nil
		}
	}
	return auth.ErrInvalidResetToken
}

var _ auth.AccountRepository = (*memRepo)(nil)

// testInstant is an arbitrary fixed point in time for clock tests.
func testInstant() time.Time {
	return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
}

// fixedClock returns a Clock pinned to t; advance by replacing the pointee.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFixedClock(t time.Time) *fixedClock {
	return &fixedClock{t: t}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
