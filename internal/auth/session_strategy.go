// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"net/http"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionStrategy authenticates requests carrying a session token in a
// named cookie. Expiry and durability are properties of the injected
// store, not of the strategy.
type SessionStrategy struct {
	store      SessionStore
	accounts   AccountRepository
	cookieName string
}

// NewSessionStrategy creates a SessionStrategy. The cookie name is an
// external configuration value.
func NewSessionStrategy(store SessionStore, accounts AccountRepository, cookieName string) (*SessionStrategy, error) {
	if store == nil {
		return nil, oops.Errorf("session store is required")
	}
	if accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if cookieName == "" {
		return nil, oops.Errorf("cookie name is required")
	}
	return &SessionStrategy{
		store:      store,
		accounts:   accounts,
		cookieName: cookieName,
	}, nil
}

// CookieName returns the configured session cookie name.
func (s *SessionStrategy) CookieName() string {
	return s.cookieName
}

// RequireAuth applies the shared excluded-path rules.
func (s *SessionStrategy) RequireAuth(path string, excluded []string) bool {
	return RequireAuth(path, excluded)
}

// Credential reads the session cookie; its value is the candidate token.
func (s *SessionStrategy) Credential(r *http.Request) (Credential, bool) {
	if r == nil {
		return Credential{}, false
	}
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return Credential{}, false
	}
	return Credential{SessionToken: cookie.Value}, true
}

// Account resolves the cookie token through the store, then loads the
// account. Unknown and expired sessions collapse to absent.
func (s *SessionStrategy) Account(ctx context.Context, r *http.Request) (*Account, error) {
	cred, ok := s.Credential(r)
	if !ok {
		return nil, ErrNotFound
	}

	session, err := s.store.Lookup(ctx, cred.SessionToken)
	if err != nil {
		return nil, ErrNotFound
	}

	account, err := s.accounts.FindByID(ctx, session.AccountID)
	if err != nil {
		return nil, ErrNotFound
	}

	return account, nil
}

// CreateSession opens a session for the account and returns the plaintext
// token for the login flow to set as a cookie.
func (s *SessionStrategy) CreateSession(ctx context.Context, accountID ulid.ULID) (string, error) {
	return s.store.Create(ctx, accountID)
}

// DestroySession removes the session named by the request's cookie.
// Returns false when the request carries no cookie, the session is
// already gone, or the store fails.
func (s *SessionStrategy) DestroySession(ctx context.Context, r *http.Request) bool {
	cred, ok := s.Credential(r)
	if !ok {
		return false
	}
	destroyed, err := s.store.Destroy(ctx, cred.SessionToken)
	if err != nil {
		return false
	}
	return destroyed
}

var _ Strategy = (*SessionStrategy)(nil)
