// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodlog Contributors

package auth

import "errors"

// Sentinel errors forming the failure taxonomy of the identity core.
// Callers branch with errors.Is; the HTTP layer maps each to a status code.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials is the single generic authentication failure.
	// It deliberately collapses "no such account", "account has no
	// password", and "wrong password" into one observable outcome so that
	// callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("email or password doesn't match our records")

	// ErrConflict is returned when a uniqueness constraint is violated,
	// e.g. concurrent registration of the same email. Retryable by the
	// caller with different input.
	ErrConflict = errors.New("already exists")

	// ErrUnauthorized is returned for a missing, malformed, or expired
	// session token. Distinct from ErrInvalidCredentials: it concerns the
	// session, not the login attempt.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnavailable is returned when the persistence layer times out or
	// cannot be reached. Retryable; not a security failure.
	ErrUnavailable = errors.New("service unavailable")

	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("invalid input")
)
