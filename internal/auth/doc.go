// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package auth provides the authentication core for Gatehouse.
//
// # Domain Types
//
// Account is the stored identity; Credential is the transient proof a
// client offers (Basic header pair or session cookie token); Session maps
// a token hash to an account.
//
// # Strategies
//
// Request authentication is polymorphic over the Strategy interface:
//   - NoAuth - inert default, never requires authentication
//   - BasicStrategy - Authorization: Basic header credentials
//   - SessionStrategy - session cookie backed by a SessionStore
//
// Expiry and durability compose at the store level: wrap a MemoryStore or
// a DurableStore in an ExpiringStore to add a TTL. Each decorator holds a
// reference to the inner store rather than extending it, so the variants
// combine independently.
//
// # Services
//
// Service handles registration, login and logout. ResetService issues and
// redeems single-use password-reset tokens. Gate turns a request into an
// allow/unauthenticated/forbidden verdict for the HTTP layer.
package auth
