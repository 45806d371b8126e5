// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package httpapi exposes the authentication core as a JSON API.
//
// Every request passes through the gate middleware, which consults the
// configured auth strategy and maps its verdict to a response: allow
// continues to the handler with the resolved account in the request
// context, unauthenticated maps to 401, forbidden to 403. Handlers never
// make authentication decisions themselves.
package httpapi
