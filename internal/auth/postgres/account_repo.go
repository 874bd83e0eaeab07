// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodlog Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/moodlog/moodlog/internal/auth"
)

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create stores a new account.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := queryerFrom(ctx, r.db).Exec(ctx, `
		INSERT INTO accounts (
			id, email, password_hash, last_login_at, last_log_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		account.ID.String(),
		account.Email,
		account.PasswordHash,
		account.LastLoginAt,
		account.LastLogAt,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			Wrap(classify(err))
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := queryerFrom(ctx, r.db).QueryRow(ctx, `
		SELECT id, email, password_hash, last_login_at, last_log_at,
		       created_at, updated_at
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
		return nil, oops.Code("ACCOUNT_GET_BY_ID_FAILED").
			With("operation", "get account by id").
			With("id", id.String()).
			Wrap(classify(err))
	}
	return account, nil
}

// GetByEmail retrieves an account by exact, case-sensitive email match.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := queryerFrom(ctx, r.db).QueryRow(ctx, `
		SELECT id, email, password_hash, last_login_at, last_log_at,
		       created_at, updated_at
		FROM accounts
		WHERE email = $1
	`, email)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_EMAIL_FAILED").
			With("operation", "get account by email").
			Wrap(classify(err))
	}
	return account, nil
}

// UpdatePassword replaces the password hash for an account.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := queryerFrom(ctx, r.db).Exec(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, time.Now())
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_PASSWORD_FAILED").
			With("operation", "update password").
			With("id", id.String()).
			Wrap(classify(err))
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// TouchLastLogin records a successful session issuance.
func (r *AccountRepository) TouchLastLogin(ctx context.Context, id ulid.ULID, when time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := queryerFrom(ctx, r.db).Exec(ctx, `
		UPDATE accounts SET last_login_at = $2, updated_at = $2
		WHERE id = $1
	`, id.String(), when)
	if err != nil {
		return oops.Code("ACCOUNT_TOUCH_LOGIN_FAILED").
			With("operation", "touch last login").
			With("id", id.String()).
			Wrap(classify(err))
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// TouchLastLog records the timestamp of the account's newest mood rating.
func (r *AccountRepository) TouchLastLog(ctx context.Context, id ulid.ULID, when time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := queryerFrom(ctx, r.db).Exec(ctx, `
		UPDATE accounts SET last_log_at = $2, updated_at = $2
		WHERE id = $1
	`, id.String(), when)
	if err != nil {
		return oops.Code("ACCOUNT_TOUCH_LOG_FAILED").
			With("operation", "touch last log").
			With("id", id.String()).
			Wrap(classify(err))
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanAccount scans a single row into an Account.
// Callers are responsible for handling pgx.ErrNoRows.
func scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		idStr        string
		email        string
		passwordHash *string
		lastLoginAt  *time.Time
		lastLogAt    *time.Time
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := row.Scan(&idStr, &email, &passwordHash, &lastLoginAt, &lastLogAt, &createdAt, &updatedAt)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
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
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		LastLoginAt:  lastLoginAt,
		LastLogAt:    lastLogAt,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)
