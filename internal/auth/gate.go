// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"net/http"

	"github.com/samber/oops"
)

// Decision is the outcome of gating one request. The HTTP layer maps
// these 1:1 to status codes; the core never produces a status itself.
type Decision int

const (
	// DecisionAllow admits the request, with the resolved account when
	// the path required authentication.
	DecisionAllow Decision = iota

	// DecisionUnauthenticated means no credential was offered on any
	// channel, header or cookie (401-equivalent).
	DecisionUnauthenticated

	// DecisionForbidden means a credential was offered but resolved to
	// no account (403-equivalent).
	DecisionForbidden
)

// String returns the decision label used in logs and metrics.
func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionUnauthenticated:
		return "unauthenticated"
	case DecisionForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Verdict is a gate decision plus the resolved account on allow.
type Verdict struct {
	Decision Decision
	Account  *Account
}

// Gate orchestrates path exemption and the active strategy into one
// allow/challenge/deny decision per inbound request. The strategy and
// exclusion list are injected at construction; there is no global state.
type Gate struct {
	strategy   Strategy
	excluded   []string
	cookieName string
}

// GateOption configures optional Gate behavior.
type GateOption func(*Gate)

// WithCredentialCookie names the session cookie the gate counts as an
// offered credential. Strategies exposing a CookieName method are adopted
// automatically; this option covers strategies that do not read cookies
// themselves, so a session cookie under header auth is still rejected
// rather than challenged.
func WithCredentialCookie(name string) GateOption {
	return func(g *Gate) { g.cookieName = name }
}

// NewGate creates a Gate around the given strategy and excluded-path
// patterns.
func NewGate(strategy Strategy, excluded []string, opts ...GateOption) (*Gate, error) {
	if strategy == nil {
		return nil, oops.Errorf("strategy is required")
	}
	g := &Gate{
		strategy: strategy,
		excluded: excluded,
	}
	if named, ok := strategy.(interface{ CookieName() string }); ok {
		g.cookieName = named.CookieName()
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Check gates one request. "No credential offered" and "credential
// offered but invalid" are observably different outcomes by design.
func (g *Gate) Check(ctx context.Context, r *http.Request) Verdict {
	if r == nil {
		return Verdict{Decision: DecisionUnauthenticated}
	}

	if !g.strategy.RequireAuth(r.URL.Path, g.excluded) {
		return Verdict{Decision: DecisionAllow}
	}

	if _, ok := g.strategy.Credential(r); !ok {
		// Unauthenticated only when neither channel carried anything: a
		// credential the active strategy cannot read is still a credential
		// offered, and it resolves to no account.
		if g.credentialOffered(r) {
			return Verdict{Decision: DecisionForbidden}
		}
		return Verdict{Decision: DecisionUnauthenticated}
	}

	account, err := g.strategy.Account(ctx, r)
	if err != nil || account == nil {
		return Verdict{Decision: DecisionForbidden}
	}

	return Verdict{Decision: DecisionAllow, Account: account}
}

// credentialOffered reports whether the request carries a credential on
// either channel: an Authorization header or the named session cookie.
func (g *Gate) credentialOffered(r *http.Request) bool {
	if r.Header.Get("Authorization") != "" {
		return true
	}
	if g.cookieName == "" {
		return false
	}
	cookie, err := r.Cookie(g.cookieName)
	return err == nil && cookie.Value != ""
}
