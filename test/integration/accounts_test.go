// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

//go:build integration

package integration

import (
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/gatehouse/gatehouse/internal/auth"
)

var _ = Describe("AccountRepository", func() {
	AfterEach(func() {
		cleanupAccounts(env.ctx, env.pool)
	})

	Describe("Create", func() {
		It("persists an account that can be read back", func() {
			account := createTestAccount("a@example.com", "pw1")

			found, err := env.Accounts.FindByID(env.ctx, account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.Email).To(Equal("a@example.com"))
			Expect(found.PasswordHash).To(Equal(account.PasswordHash))
			Expect(found.ResetTokenHash).To(BeNil())
		})

		It("rejects a duplicate email", func() {
			createTestAccount("a@example.com", "pw1")

			hash, err := env.Hasher.Hash("pw2")
			Expect(err).NotTo(HaveOccurred())
			dup, err := auth.NewAccount("a@example.com", hash)
			Expect(err).NotTo(HaveOccurred())

			err = env.Accounts.Create(env.ctx, dup)
			Expect(err).To(MatchError(auth.ErrDuplicateRegistration))
		})
	})

	Describe("FindByEmail", func() {
		It("is case-insensitive", func() {
			account := createTestAccount("a@example.com", "pw1")

			found, err := env.Accounts.FindByEmail(env.ctx, "A@Example.COM")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal(account.ID))
		})

		It("reports unknown emails", func() {
			_, err := env.Accounts.FindByEmail(env.ctx, "nobody@example.com")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("Update", func() {
		It("persists password and reset token changes", func() {
			account := createTestAccount("a@example.com", "pw1")

			tokenHash := auth.HashSessionToken("reset-token")
			account.ResetTokenHash = &tokenHash
			Expect(env.Accounts.Update(env.ctx, account)).To(Succeed())

			found, err := env.Accounts.FindByResetToken(env.ctx, tokenHash)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal(account.ID))

			found.ResetTokenHash = nil
			Expect(env.Accounts.Update(env.ctx, found)).To(Succeed())

			_, err = env.Accounts.FindByResetToken(env.ctx, tokenHash)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})
})

var _ = Describe("SessionRepository", func() {
	AfterEach(func() {
		cleanupAccounts(env.ctx, env.pool)
	})

	It("stores and retrieves sessions", func() {
		account := createTestAccount("a@example.com", "pw1")

		store := auth.NewDurableStore(env.Sessions, nil)
		token, err := store.Create(env.ctx, account.ID)
		Expect(err).NotTo(HaveOccurred())

		session, err := store.Lookup(env.ctx, token)
		Expect(err).NotTo(HaveOccurred())
		Expect(session.AccountID).To(Equal(account.ID))
	})

	It("destroys sessions exactly once", func() {
		account := createTestAccount("a@example.com", "pw1")

		store := auth.NewDurableStore(env.Sessions, nil)
		token, err := store.Create(env.ctx, account.ID)
		Expect(err).NotTo(HaveOccurred())

		existed, err := store.Destroy(env.ctx, token)
		Expect(err).NotTo(HaveOccurred())
		Expect(existed).To(BeTrue())

		existed, err = store.Destroy(env.ctx, token)
		Expect(err).NotTo(HaveOccurred())
		Expect(existed).To(BeFalse())

		_, err = store.Lookup(env.ctx, token)
		Expect(err).To(MatchError(auth.ErrNoSession))
	})

	It("cascades session deletion with the account", func() {
		account := createTestAccount("a@example.com", "pw1")

		store := auth.NewDurableStore(env.Sessions, nil)
		token, err := store.Create(env.ctx, account.ID)
		Expect(err).NotTo(HaveOccurred())

		_, err = env.pool.Exec(env.ctx, "DELETE FROM accounts WHERE id = $1", account.ID.String())
		Expect(err).NotTo(HaveOccurred())

		_, err = store.Lookup(env.ctx, token)
		Expect(err).To(MatchError(auth.ErrNoSession))
	})
})
