// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"
)

// basicScheme is the exact Authorization scheme prefix accepted by
// BasicStrategy. Any other scheme is rejected.
const basicScheme = "Basic "

// dummyPasswordHash is verified against when an account doesn't exist, so
// lookup misses and password mismatches take the same time. It is a fake
// hash that can never match any password, not a credential.
//
//nolint:gosec // G101: intentionally fake hash for timing equalization.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// BasicStrategy authenticates requests carrying header credentials of the
// exact form "Authorization: Basic <base64(email:password)>".
type BasicStrategy struct {
	accounts AccountRepository
	hasher   PasswordHasher
}

// NewBasicStrategy creates a BasicStrategy.
func NewBasicStrategy(accounts AccountRepository, hasher PasswordHasher) (*BasicStrategy, error) {
	if accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	return &BasicStrategy{accounts: accounts, hasher: hasher}, nil
}

// RequireAuth applies the shared excluded-path rules.
func (s *BasicStrategy) RequireAuth(path string, excluded []string) bool {
	return RequireAuth(path, excluded)
}

// Credential parses the Authorization header. The payload must be strict
// standard base64 and the decoded text must contain a colon; the split is
// on the first colon only, so passwords may contain colons.
func (s *BasicStrategy) Credential(r *http.Request) (Credential, bool) {
	if r == nil {
		return Credential{}, false
	}

	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, basicScheme) {
		return Credential{}, false
	}

	decoded, err := base64.StdEncoding.DecodeString(header[len(basicScheme):])
	if err != nil {
		return Credential{}, false
	}
	if !utf8.Valid(decoded) {
		return Credential{}, false
	}

	email, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return Credential{}, false
	}

	return Credential{Email: email, Password: password}, true
}

// Account resolves header credentials to an account. A lookup miss and a
// failed verification are indistinguishable to the caller.
func (s *BasicStrategy) Account(ctx context.Context, r *http.Request) (*Account, error) {
	cred, ok := s.Credential(r)
	if !ok {
		return nil, ErrNotFound
	}

	account, err := s.accounts.FindByEmail(ctx, NormalizeEmail(cred.Email))
	if err != nil {
		// Equalize timing with the verification the success path does.
		s.hasher.Verify(cred.Password, dummyPasswordHash)
		return nil, ErrNotFound
	}

	if !s.hasher.Verify(cred.Password, account.PasswordHash) {
		return nil, ErrNotFound
	}

	return account, nil
}

var _ Strategy = (*BasicStrategy)(nil)
