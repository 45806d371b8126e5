// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrNoSession is returned when a session token resolves to no live
// session. Unknown and expired tokens are deliberately indistinguishable.
var ErrNoSession = errors.New("session absent")

// ErrInvalidCredentials is returned on login when the email is unknown or
// the password does not match. The two cases are collapsed so callers
// cannot enumerate accounts.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrUnknownAccount is returned when a reset token is requested for an
// email that has no account.
var ErrUnknownAccount = errors.New("unknown account")

// ErrInvalidResetToken is returned when redeeming a token no account
// currently holds, including tokens already consumed.
var ErrInvalidResetToken = errors.New("invalid reset token")

// ErrDuplicateRegistration is returned when registering an email that is
// already taken.
var ErrDuplicateRegistration = errors.New("email already registered")
