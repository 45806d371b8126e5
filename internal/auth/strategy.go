// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gobwas/glob"
)

// Credential is a transient proof of identity extracted from a request:
// either an email/password pair from a Basic header, or a session token
// from a cookie. Credentials are never persisted.
type Credential struct {
	Email        string
	Password     string
	SessionToken string
}

// Strategy resolves a request to an authenticated account, or to absent.
type Strategy interface {
	// RequireAuth reports whether the path needs authentication given
	// the excluded-path patterns.
	RequireAuth(path string, excluded []string) bool

	// Credential extracts the strategy's credential from the request.
	// The second return is false when none was offered.
	Credential(r *http.Request) (Credential, bool)

	// Account resolves the request's credential to an account. All
	// failure modes (missing, malformed, unknown, invalid, expired)
	// collapse to ErrNotFound so callers cannot tell them apart.
	Account(ctx context.Context, r *http.Request) (*Account, error)
}

// NoAuth is the inert default strategy: nothing requires authentication
// and no account is ever resolved.
type NoAuth struct{}

// RequireAuth always reports false.
func (NoAuth) RequireAuth(string, []string) bool { return false }

// Credential always reports absent.
func (NoAuth) Credential(*http.Request) (Credential, bool) { return Credential{}, false }

// Account always resolves to absent.
func (NoAuth) Account(context.Context, *http.Request) (*Account, error) {
	return nil, ErrNotFound
}

// RequireAuth reports whether path needs authentication. An empty path or
// an empty exclusion list fails closed (authentication required). Both
// the path and each pattern are normalized to exactly one trailing slash
// before matching; patterns may contain * wildcards, and a match exempts
// the path.
func RequireAuth(path string, excluded []string) bool {
	if path == "" || len(excluded) == 0 {
		return true
	}

	normalized := ensureTrailingSlash(path)
	for _, pattern := range excluded {
		g, err := glob.Compile(ensureTrailingSlash(pattern))
		if err != nil {
			// Unparseable pattern exempts nothing.
			continue
		}
		if g.Match(normalized) {
			return false
		}
	}
	return true
}

func ensureTrailingSlash(s string) string {
	return strings.TrimRight(s, "/") + "/"
}

var _ Strategy = NoAuth{}
