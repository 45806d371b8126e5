// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool db
}

// NewAccountRepository creates an AccountRepository.
func NewAccountRepository(pool db) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `id, email, password_hash, reset_token_hash, created_at, updated_at`

// Create stores a new account. A unique violation on the email column is
// reported as auth.ErrDuplicateRegistration.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (id, email, password_hash, reset_token_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		account.ID.String(),
		account.Email,
		account.PasswordHash,
		account.ResetTokenHash,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("ACCOUNT_DUPLICATE").
				With("email", account.Email).
				Wrap(auth.ErrDuplicateRegistration)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("email", account.Email).
			Wrap(err)
	}
	return nil
}

// FindByID retrieves an account by ID.
func (r *AccountRepository) FindByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id.String())

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_FIND_BY_ID_FAILED").
			With("operation", "find account by id").
			With("id", id.String()).
			Wrap(err)
	}
	return account, nil
}

// FindByEmail retrieves an account by email (case-insensitive).
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE email = lower($1)
	`, email)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_FIND_BY_EMAIL_FAILED").
			With("operation", "find account by email").
			Wrap(err)
	}
	return account, nil
}

// FindByResetToken retrieves the account holding the reset token hash.
func (r *AccountRepository) FindByResetToken(ctx context.Context, tokenHash string) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE reset_token_hash = $1
	`, tokenHash)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_FIND_BY_RESET_FAILED").
			With("operation", "find account by reset token").
			Wrap(err)
	}
	return account, nil
}

// Update rewrites an account in one statement, so password changes and
// reset-token clears land atomically.
func (r *AccountRepository) Update(ctx context.Context, account *auth.Account) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET email = $2, password_hash = $3, reset_token_hash = $4, updated_at = $5
		WHERE id = $1
	`,
		account.ID.String(),
		account.Email,
		account.PasswordHash,
		account.ResetTokenHash,
		account.UpdatedAt,
	)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "update account").
			With("id", account.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", account.ID.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// ConsumeResetToken atomically swaps the password hash and clears the
// reset token on the account holding it. The WHERE clause keys on the
// token itself, so of two concurrent redeems only the first finds a row
// to update; the second gets auth.ErrInvalidResetToken.
func (r *AccountRepository) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, updatedAt time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET password_hash = $2, reset_token_hash = NULL, updated_at = $3
		WHERE reset_token_hash = $1
	`,
		tokenHash,
		passwordHash,
		updatedAt,
	)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "consume reset token").
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("RESET_TOKEN_INVALID").Wrap(auth.ErrInvalidResetToken)
	}
	return nil
}

// scanAccount scans a single row into an Account. Callers handle
// pgx.ErrNoRows.
func scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		idStr          string
		email          string
		passwordHash   string
		resetTokenHash *string
		createdAt      time.Time
		updatedAt      time.Time
	)

	err := row.Scan(&idStr, &email, &passwordHash, &resetTokenHash, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context-specific info
		}
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").
			With("operation", "scan account").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}

	return &auth.Account{
		ID:             id,
		Email:          email,
		PasswordHash:   passwordHash,
		ResetTokenHash: resetTokenHash,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)
