// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// SessionRepository implements auth.DurableSessionStore using PostgreSQL.
// Every operation is a single statement, so each one commits or rolls
// back as a whole; a failed insert never leaves a half-written session.
type SessionRepository struct {
	pool db
}

// NewSessionRepository creates a SessionRepository.
func NewSessionRepository(pool db) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Insert stores a new session record.
func (r *SessionRepository) Insert(ctx context.Context, session auth.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (token_hash, account_id, created_at)
		VALUES ($1, $2, $3)
	`,
		session.TokenHash,
		session.AccountID.String(),
		session.CreatedAt,
	)
	if err != nil {
		return oops.Code("SESSION_INSERT_FAILED").
			With("operation", "insert session").
			With("account_id", session.AccountID.String()).
			Wrap(err)
	}
	return nil
}

// QueryByToken retrieves a session by token hash.
func (r *SessionRepository) QueryByToken(ctx context.Context, tokenHash string) (auth.Session, error) {
	var (
		accountIDStr string
		createdAt    time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT account_id, created_at
		FROM sessions
		WHERE token_hash = $1
	`, tokenHash).Scan(&accountIDStr, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.Session{}, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNoSession)
	}
	if err != nil {
		return auth.Session{}, oops.Code("SESSION_QUERY_FAILED").
			With("operation", "query session by token hash").
			Wrap(err)
	}

	accountID, err := ulid.Parse(accountIDStr)
	if err != nil {
		return auth.Session{}, oops.Code("SESSION_INVALID_ACCOUNT_ID").
			With("account_id", accountIDStr).
			Wrap(err)
	}

	return auth.Session{
		TokenHash: tokenHash,
		AccountID: accountID,
		CreatedAt: createdAt,
	}, nil
}

// Delete removes a session by token hash, reporting whether a record
// existed. Deleting an absent session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, tokenHash string) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE token_hash = $1
	`, tokenHash)
	if err != nil {
		return false, oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return result.RowsAffected() > 0, nil
}

// Compile-time interface check.
var _ auth.DurableSessionStore = (*SessionRepository)(nil)
