// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodlog Contributors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinPasswordLength is the minimum accepted plaintext password length.
const MinPasswordLength = 6

// emailRegex is a pragmatic address check: one @, no whitespace, a dot in
// the domain. Full RFC 5322 validation is not attempted.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Account represents a registered user.
//
// PasswordHash is nil for accounts created purely via a federated identity;
// password login is refused for such accounts. LastLoginAt is set on every
// successful session issuance. LastLogAt tracks the most recent mood rating.
type Account struct {
	ID           ulid.ULID
	Email        string
	PasswordHash *string
	LastLoginAt  *time.Time
	LastLogAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAccount creates a validated Account. passwordHash may be nil for
// federated-only accounts.
func NewAccount(email string, passwordHash *string) (*Account, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash != nil && *passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_HASH").
			Errorf("password hash cannot be empty when provided: %w", ErrValidation)
	}

	now := time.Now()
	return &Account{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// HasPassword reports whether password login is possible for this account.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// ValidateEmail validates an email address.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("email cannot be empty: %w", ErrValidation)
	}
	if !emailRegex.MatchString(email) {
		return oops.Code("AUTH_INVALID_EMAIL").
			With("email", email).
			Errorf("not a valid email: %w", ErrValidation)
	}
	return nil
}

// ValidatePassword validates a plaintext password against length rules.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return oops.Code("AUTH_PASSWORD_TOO_SHORT").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters: %w", MinPasswordLength, ErrValidation)
	}
	return nil
}

// AccountRepository manages account persistence.
//
// Email lookups are exact, case-sensitive string matches: the store is the
// enforcement point for email uniqueness and changing the comparison rule
// here would silently merge accounts the rest of the system considers
// distinct.
type AccountRepository interface {
	// Create stores a new account. A duplicate email surfaces as ErrConflict.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByEmail retrieves an account by exact email match.
	// Returns ErrNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// UpdatePassword replaces the password hash for an account.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// TouchLastLogin records a successful session issuance.
	TouchLastLogin(ctx context.Context, id ulid.ULID, when time.Time) error

	// TouchLastLog records the timestamp of the account's newest mood rating.
	TouchLastLog(ctx context.Context, id ulid.ULID, when time.Time) error
}
