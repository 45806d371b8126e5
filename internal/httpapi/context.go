// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package httpapi

import (
	"context"

	"github.com/gatehouse/gatehouse/internal/auth"
)

type contextKey int

const accountKey contextKey = iota

// ContextWithAccount returns a context carrying the authenticated account.
func ContextWithAccount(ctx context.Context, account *auth.Account) context.Context {
	return context.WithValue(ctx, accountKey, account)
}

// AccountFromContext returns the authenticated account for the request, if
// the gate resolved one.
func AccountFromContext(ctx context.Context) (*auth.Account, bool) {
	account, ok := ctx.Value(accountKey).(*auth.Account)
	return account, ok && account != nil
}
