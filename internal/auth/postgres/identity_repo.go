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

// IdentityRepository implements auth.IdentityRepository using PostgreSQL.
type IdentityRepository struct {
	db DB
}

// NewIdentityRepository creates a new IdentityRepository.
func NewIdentityRepository(db DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// Get retrieves the binding for a provider subject.
func (r *IdentityRepository) Get(ctx context.Context, provider auth.Provider, subjectID string) (*auth.FederatedIdentity, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := queryerFrom(ctx, r.db).QueryRow(ctx, `
		SELECT provider, provider_subject_id, account_id, created_at
		FROM federated_identities
		WHERE provider = $1 AND provider_subject_id = $2
	`, string(provider), subjectID)

	var (
		providerStr  string
		subject      string
		accountIDStr string
		createdAt    time.Time
	)
	err := row.Scan(&providerStr, &subject, &accountIDStr, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("IDENTITY_NOT_FOUND").
			With("provider", string(provider)).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("IDENTITY_GET_FAILED").
			With("operation", "get identity binding").
			With("provider", string(provider)).
			Wrap(classify(err))
	}

	accountID, err := ulid.Parse(accountIDStr)
	if err != nil {
		return nil, oops.Code("IDENTITY_INVALID_ACCOUNT_ID").
			With("account_id", accountIDStr).
			Wrap(err)
	}

	return &auth.FederatedIdentity{
		Provider:  auth.Provider(providerStr),
		SubjectID: subject,
		AccountID: accountID,
		CreatedAt: createdAt,
	}, nil
}

// Create stores a new binding.
func (r *IdentityRepository) Create(ctx context.Context, identity *auth.FederatedIdentity) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := queryerFrom(ctx, r.db).Exec(ctx, `
		INSERT INTO federated_identities (
			provider, provider_subject_id, account_id, created_at
		) VALUES ($1, $2, $3, $4)
	`,
		string(identity.Provider),
		identity.SubjectID,
		identity.AccountID.String(),
		identity.CreatedAt,
	)
	if err != nil {
		return oops.Code("IDENTITY_CREATE_FAILED").
			With("operation", "insert identity binding").
			With("provider", string(identity.Provider)).
			Wrap(classify(err))
	}
	return nil
}

// Compile-time interface check.
var _ auth.IdentityRepository = (*IdentityRepository)(nil)
