// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/httpapi"
)

const testCookieName = "_gatehouse_session_id"

var _ = Describe("HTTP API over PostgreSQL", func() {
	var (
		handler http.Handler
		store   auth.SessionStore
	)

	BeforeEach(func() {
		store = auth.NewDurableStore(env.Sessions, nil)

		strategy, err := auth.NewSessionStrategy(store, env.Accounts, testCookieName)
		Expect(err).NotTo(HaveOccurred())

		gate, err := auth.NewGate(strategy, []string{
			"/api/v1/status/",
			"/api/v1/users/",
			"/api/v1/auth_session/login/",
			"/api/v1/reset_password/",
		})
		Expect(err).NotTo(HaveOccurred())

		service, err := auth.NewService(env.Accounts, store, env.Hasher)
		Expect(err).NotTo(HaveOccurred())

		resets, err := auth.NewResetService(env.Accounts, env.Hasher, nil)
		Expect(err).NotTo(HaveOccurred())

		server, err := httpapi.NewServer(httpapi.Options{
			Gate:     gate,
			Service:  service,
			Resets:   resets,
			Sessions: strategy,
		})
		Expect(err).NotTo(HaveOccurred())
		handler = server.Handler()
	})

	AfterEach(func() {
		cleanupAccounts(env.ctx, env.pool)
	})

	do := func(method, path string, body map[string]string, cookie string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: testCookieName, Value: cookie})
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	decode := func(rec *httptest.ResponseRecorder) map[string]string {
		var out map[string]string
		Expect(json.NewDecoder(rec.Body).Decode(&out)).To(Succeed())
		return out
	}

	sessionCookie := func(rec *httptest.ResponseRecorder) string {
		for _, c := range rec.Result().Cookies() {
			if c.Name == testCookieName {
				return c.Value
			}
		}
		return ""
	}

	It("runs the full register, login, me, logout lifecycle", func() {
		rec := do(http.MethodPost, "/api/v1/users",
			map[string]string{"email": "a@example.com", "password": "pw1"}, "")
		Expect(rec.Code).To(Equal(http.StatusCreated))
		Expect(decode(rec)).To(HaveKeyWithValue("email", "a@example.com"))

		rec = do(http.MethodGet, "/api/v1/users/me", nil, "")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))

		rec = do(http.MethodPost, "/api/v1/auth_session/login",
			map[string]string{"email": "a@example.com", "password": "pw1"}, "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		token := sessionCookie(rec)
		Expect(token).NotTo(BeEmpty())

		rec = do(http.MethodGet, "/api/v1/users/me", nil, token)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(decode(rec)).To(HaveKeyWithValue("email", "a@example.com"))

		rec = do(http.MethodDelete, "/api/v1/auth_session/logout", nil, token)
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec = do(http.MethodGet, "/api/v1/users/me", nil, token)
		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})

	It("keeps sessions across a rebuilt stack", func() {
		do(http.MethodPost, "/api/v1/users",
			map[string]string{"email": "a@example.com", "password": "pw1"}, "")
		rec := do(http.MethodPost, "/api/v1/auth_session/login",
			map[string]string{"email": "a@example.com", "password": "pw1"}, "")
		token := sessionCookie(rec)
		Expect(token).NotTo(BeEmpty())

		// A fresh store over the same database still resolves the token,
		// as after a process restart.
		restarted := auth.NewDurableStore(env.Sessions, nil)
		session, err := restarted.Lookup(env.ctx, token)
		Expect(err).NotTo(HaveOccurred())

		account, err := env.Accounts.FindByEmail(env.ctx, "a@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(session.AccountID).To(Equal(account.ID))
	})

	It("rejects bad credentials without leaking which part was wrong", func() {
		do(http.MethodPost, "/api/v1/users",
			map[string]string{"email": "a@example.com", "password": "pw1"}, "")

		recWrongPw := do(http.MethodPost, "/api/v1/auth_session/login",
			map[string]string{"email": "a@example.com", "password": "wrong"}, "")
		recUnknown := do(http.MethodPost, "/api/v1/auth_session/login",
			map[string]string{"email": "nobody@example.com", "password": "pw1"}, "")

		Expect(recWrongPw.Code).To(Equal(http.StatusUnauthorized))
		Expect(recUnknown.Code).To(Equal(http.StatusUnauthorized))
		Expect(recWrongPw.Body.String()).To(Equal(recUnknown.Body.String()))
	})

	It("resets a password end to end", func() {
		do(http.MethodPost, "/api/v1/users",
			map[string]string{"email": "a@example.com", "password": "pw1"}, "")

		rec := do(http.MethodPost, "/api/v1/reset_password",
			map[string]string{"email": "a@example.com"}, "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		token := decode(rec)["reset_token"]
		Expect(token).NotTo(BeEmpty())

		rec = do(http.MethodPut, "/api/v1/reset_password",
			map[string]string{"reset_token": token, "new_password": "pw2"}, "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(decode(rec)).To(HaveKeyWithValue("message", "Password updated"))

		rec = do(http.MethodPost, "/api/v1/auth_session/login",
			map[string]string{"email": "a@example.com", "password": "pw1"}, "")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))

		rec = do(http.MethodPost, "/api/v1/auth_session/login",
			map[string]string{"email": "a@example.com", "password": "pw2"}, "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		// Tokens are single-use.
		rec = do(http.MethodPut, "/api/v1/reset_password",
			map[string]string{"reset_token": token, "new_password": "pw3"}, "")
		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})
})
