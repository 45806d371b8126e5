// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/samber/oops"
)

// ResetTokenBytes is the entropy of a reset token: 32 bytes, 64 hex chars.
const ResetTokenBytes = 32

// GenerateResetToken creates a secure random token and its hash. Returns
// (plaintext_token, sha256_hash, error). The plaintext goes to the user;
// only the hash is stored on the account.
func GenerateResetToken() (token, hash string, err error) {
	tokenBytes := make([]byte, ResetTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("RESET_TOKEN_GENERATE_FAILED").Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	hash = hashResetToken(token)

	return token, hash, nil
}

// hashResetToken computes the SHA-256 hex of a reset token.
func hashResetToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// ResetService issues and redeems single-use password-reset tokens. The
// token hash lives on the account record, so issuing a new token
// overwrites the previous one and redeeming clears it.
type ResetService struct {
	accounts AccountRepository
	hasher   PasswordHasher
	now      Clock
}

// NewResetService creates a ResetService. A nil clock means time.Now.
func NewResetService(accounts AccountRepository, hasher PasswordHasher, now Clock) (*ResetService, error) {
	if accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if now == nil {
		now = time.Now
	}
	return &ResetService{
		accounts: accounts,
		hasher:   hasher,
		now:      now,
	}, nil
}

// Issue generates a reset token for the account with the given email,
// superseding any earlier token. Returns ErrUnknownAccount when no
// account matches; the caller already knows the email it supplied, so
// this is not enumeration-sensitive.
func (s *ResetService) Issue(ctx context.Context, email string) (string, error) {
	account, err := s.accounts.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrUnknownAccount
		}
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "find account by email").
			Wrap(err)
	}

	token, hash, err := GenerateResetToken()
	if err != nil {
		return "", err
	}

	account.ResetTokenHash = &hash
	account.UpdatedAt = s.now()
	if err := s.accounts.Update(ctx, account); err != nil {
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "store reset token").
			With("account_id", account.ID.String()).
			Wrap(err)
	}

	return token, nil
}

// Redeem consumes a reset token: the account's password hash is replaced
// and the token cleared in one conditional repository statement, so a
// second redeem with the same token fails with ErrInvalidResetToken even
// when the two run concurrently.
func (s *ResetService) Redeem(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrInvalidResetToken
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_REDEEM_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	// The conditional clear is the single point of consumption: whichever
	// redeem lands first wins, later ones see the token absent.
	err = s.accounts.ConsumeResetToken(ctx, hashResetToken(token), hash, s.now())
	if err != nil {
		if errors.Is(err, ErrInvalidResetToken) {
			return err
		}
		return oops.Code("RESET_REDEEM_FAILED").
			With("operation", "consume reset token").
			Wrap(err)
	}

	return nil
}
