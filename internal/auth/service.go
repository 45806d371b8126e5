// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// Service provides registration, login and logout.
type Service struct {
	accounts AccountRepository
	sessions SessionStore
	hasher   PasswordHasher
}

// NewService creates a Service.
func NewService(accounts AccountRepository, sessions SessionStore, hasher PasswordHasher) (*Service, error) {
	if accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	return &Service{
		accounts: accounts,
		sessions: sessions,
		hasher:   hasher,
	}, nil
}

// Register creates an account for the email with a freshly hashed
// password. Returns ErrDuplicateRegistration when the email is taken.
func (s *Service) Register(ctx context.Context, email, password string) (*Account, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := NewAccount(email, hash)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicateRegistration) {
			return nil, ErrDuplicateRegistration
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create account").
			Wrap(err)
	}

	return account, nil
}

// Login authenticates an email/password pair and opens a session,
// returning the plaintext session token. Unknown email and wrong password
// both yield ErrInvalidCredentials; a dummy verification keeps the two
// paths at the same cost.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	account, lookupErr := s.accounts.FindByEmail(ctx, NormalizeEmail(email))

	targetHash := dummyPasswordHash
	exists := false
	if lookupErr == nil {
		targetHash = account.PasswordHash
		exists = true
	} else if !errors.Is(lookupErr, ErrNotFound) {
		return "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "find account by email").
			Wrap(lookupErr)
	}

	valid := s.hasher.Verify(password, targetHash)
	if !exists || !valid {
		return "", ErrInvalidCredentials
	}

	token, err := s.sessions.Create(ctx, account.ID)
	if err != nil {
		return "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "create session").
			With("account_id", account.ID.String()).
			Wrap(err)
	}

	return token, nil
}

// Logout destroys the session for the token. Reports false when there was
// nothing to destroy; logging out twice is not an error.
func (s *Service) Logout(ctx context.Context, token string) bool {
	destroyed, err := s.sessions.Destroy(ctx, token)
	if err != nil {
		return false
	}
	return destroyed
}
