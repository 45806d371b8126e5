// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Account represents a registered account.
type Account struct {
	ID           ulid.ULID
	Email        string
	PasswordHash string

	// ResetTokenHash holds the SHA-256 hex of the live password-reset
	// token, nil when none is outstanding. At most one token is live per
	// account; issuing a new one overwrites this field.
	ResetTokenHash *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAccount creates a validated Account with a fresh ID. The email is
// normalized to lower case.
func NewAccount(email, passwordHash string) (*Account, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, oops.Code("ACCOUNT_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if !strings.Contains(email, "@") {
		return nil, oops.Code("ACCOUNT_INVALID_EMAIL").With("email", email).Errorf("email must contain @")
	}
	if passwordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &Account{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeEmail lowercases and trims an email for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AccountRepository manages account persistence. Implementations live
// outside the core; the core only reads and updates accounts through this
// interface.
type AccountRepository interface {
	// Create stores a new account. Returns ErrDuplicateRegistration when
	// the email is already taken.
	Create(ctx context.Context, account *Account) error

	// FindByID retrieves an account by ID. Returns ErrNotFound if absent.
	FindByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// FindByEmail retrieves an account by normalized email. Returns
	// ErrNotFound if absent.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// FindByResetToken retrieves the account holding the given reset
	// token hash. Returns ErrNotFound if no account holds it.
	FindByResetToken(ctx context.Context, tokenHash string) (*Account, error)

	// Update rewrites a stored account in a single atomic statement.
	// Returns ErrNotFound if no account matches.
	Update(ctx context.Context, account *Account) error

	// ConsumeResetToken replaces the password hash and clears the reset
	// token on whichever account currently holds tokenHash, in one
	// conditional statement. Returns ErrInvalidResetToken when no account
	// holds the token, so concurrent redeems of the same token cannot
	// both succeed.
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, updatedAt time.Time) error
}
