// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
)

func testAccount(t *testing.T) *auth.Account {
	t.Helper()
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	return &auth.Account{
		ID:           ulid.Make(),
		Email:        "a@example.com",
		PasswordHash: "$argon2id$hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func accountRows(account *auth.Account) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "email", "password_hash", "reset_token_hash", "created_at", "updated_at"}).
		AddRow(account.ID.String(), account.Email, account.PasswordHash, account.ResetTokenHash, account.CreatedAt, account.UpdatedAt)
}

func TestAccountRepository_Create(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		account := testAccount(t)
		mock.ExpectExec(`INSERT INTO accounts`).
			WithArgs(account.ID.String(), account.Email, account.PasswordHash, account.ResetTokenHash, account.CreatedAt, account.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		repo := NewAccountRepository(mock)
		require.NoError(t, repo.Create(context.Background(), account))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to duplicate registration", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		account := testAccount(t)
		mock.ExpectExec(`INSERT INTO accounts`).
			WithArgs(account.ID.String(), account.Email, account.PasswordHash, account.ResetTokenHash, account.CreatedAt, account.UpdatedAt).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

		repo := NewAccountRepository(mock)
		err = repo.Create(context.Background(), account)
		assert.ErrorIs(t, err, auth.ErrDuplicateRegistration)
	})

	t.Run("other database errors are not duplicates", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		account := testAccount(t)
		mock.ExpectExec(`INSERT INTO accounts`).
			WithArgs(account.ID.String(), account.Email, account.PasswordHash, account.ResetTokenHash, account.CreatedAt, account.UpdatedAt).
			WillReturnError(errors.New("connection refused"))

		repo := NewAccountRepository(mock)
		err = repo.Create(context.Background(), account)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrDuplicateRegistration)
	})
}

func TestAccountRepository_FindByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		account := testAccount(t)
		mock.ExpectQuery(`SELECT .* FROM accounts WHERE id = \$1`).
			WithArgs(account.ID.String()).
			WillReturnRows(accountRows(account))

		repo := NewAccountRepository(mock)
		got, err := repo.FindByID(context.Background(), account.ID)
		require.NoError(t, err)
		assert.Equal(t, account.ID, got.ID)
		assert.Equal(t, account.Email, got.Email)
	})

	t.Run("not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := ulid.Make()
		mock.ExpectQuery(`SELECT .* FROM accounts WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnRows(pgxmock.NewRows([]string{"id", "email", "password_hash", "reset_token_hash", "created_at", "updated_at"}))

		repo := NewAccountRepository(mock)
		_, err = repo.FindByID(context.Background(), id)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestAccountRepository_FindByEmail(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		account := testAccount(t)
		mock.ExpectQuery(`SELECT .* FROM accounts WHERE email = lower\(\$1\)`).
			WithArgs(account.Email).
			WillReturnRows(accountRows(account))

		repo := NewAccountRepository(mock)
		got, err := repo.FindByEmail(context.Background(), account.Email)
		require.NoError(t, err)
		assert.Equal(t, account.ID, got.ID)
	})

	t.Run("not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT .* FROM accounts WHERE email = lower\(\$1\)`).
			WithArgs("nobody@example.com").
			WillReturnRows(pgxmock.NewRows([]string{"id", "email", "password_hash", "reset_token_hash", "created_at", "updated_at"}))

		repo := NewAccountRepository(mock)
		_, err = repo.FindByEmail(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestAccountRepository_FindByResetToken(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		account := testAccount(t)
		tokenHash := "deadbeef"
		account.ResetTokenHash = &tokenHash

		mock.ExpectQuery(`SELECT .* FROM accounts WHERE reset_token_hash = \$1`).
			WithArgs(tokenHash).
			WillReturnRows(accountRows(account))

		repo := NewAccountRepository(mock)
		got, err := repo.FindByResetToken(context.Background(), tokenHash)
		require.NoError(t, err)
		require.NotNil(t, got.ResetTokenHash)
		assert.Equal(t, tokenHash, *got.ResetTokenHash)
	})

	t.Run("no holder", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT .* FROM accounts WHERE reset_token_hash = \$1`).
			WithArgs("unknown").
			WillReturnRows(pgxmock.NewRows([]string{"id", "email", "password_hash", "reset_token_hash", "created_at", "updated_at"}))

		repo := NewAccountRepository(mock)
		_, err = repo.FindByResetToken(context.Background(), "unknown")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestAccountRepository_Update(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		account := testAccount(t)
		mock.ExpectExec(`UPDATE accounts`).
			WithArgs(account.ID.String(), account.Email, account.PasswordHash, account.ResetTokenHash, account.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := NewAccountRepository(mock)
		require.NoError(t, repo.Update(context.Background(), account))
	})

	t.Run("no matching account", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		account := testAccount(t)
		mock.ExpectExec(`UPDATE accounts`).
			WithArgs(account.ID.String(), account.Email, account.PasswordHash, account.ResetTokenHash, account.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := NewAccountRepository(mock)
		err = repo.Update(context.Background(), account)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestAccountRepository_ConsumeResetToken(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	t.Run("consumes the live token", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE accounts SET password_hash = \$2, reset_token_hash = NULL, updated_at = \$3 WHERE reset_token_hash = \$1`).
			WithArgs("tokenhash", "$argon2id$new", now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := NewAccountRepository(mock)
		require.NoError(t, repo.ConsumeResetToken(context.Background(), "tokenhash", "$argon2id$new", now))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already-consumed token is invalid", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE accounts SET password_hash = \$2, reset_token_hash = NULL, updated_at = \$3 WHERE reset_token_hash = \$1`).
			WithArgs("tokenhash", "$argon2id$new", now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := NewAccountRepository(mock)
		err = repo.ConsumeResetToken(context.Background(), "tokenhash", "$argon2id$new", now)
		assert.ErrorIs(t, err, auth.ErrInvalidResetToken)
	})

	t.Run("database error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`UPDATE accounts SET password_hash = \$2`).
			WithArgs("tokenhash", "$argon2id$new", now).
			WillReturnError(errors.New("connection refused"))

		repo := NewAccountRepository(mock)
		err = repo.ConsumeResetToken(context.Background(), "tokenhash", "$argon2id$new", now)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrInvalidResetToken)
	})
}
