// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodlog Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Provider identifies an external identity provider.
type Provider string

// ProviderGoogle is the only provider currently supported.
const ProviderGoogle Provider = "google"

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	return p == ProviderGoogle
}

// FederatedIdentity binds one provider subject to one local account.
// The pair (Provider, SubjectID) is unique across all bindings: no two
// accounts may claim the same external identity.
type FederatedIdentity struct {
	Provider  Provider
	SubjectID string
	AccountID ulid.ULID
	CreatedAt time.Time
}

// NewFederatedIdentity creates a validated FederatedIdentity.
func NewFederatedIdentity(provider Provider, subjectID string, accountID ulid.ULID) (*FederatedIdentity, error) {
	if !provider.Valid() {
		return nil, oops.Code("AUTH_INVALID_PROVIDER").
			With("provider", string(provider)).
			Errorf("unknown identity provider: %w", ErrValidation)
	}
	if subjectID == "" {
		return nil, oops.Code("AUTH_INVALID_SUBJECT").
			Errorf("provider subject ID cannot be empty: %w", ErrValidation)
	}
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("AUTH_INVALID_ACCOUNT").
			Errorf("account ID cannot be zero: %w", ErrValidation)
	}

	return &FederatedIdentity{
		Provider:  provider,
		SubjectID: subjectID,
		AccountID: accountID,
		CreatedAt: time.Now(),
	}, nil
}

// IdentityRepository manages federated identity bindings.
type IdentityRepository interface {
	// Get retrieves the binding for a provider subject.
	// Returns ErrNotFound if the subject is unbound.
	Get(ctx context.Context, provider Provider, subjectID string) (*FederatedIdentity, error)

	// Create stores a new binding. A duplicate (provider, subject) pair
	// surfaces as ErrConflict.
	Create(ctx context.Context, identity *FederatedIdentity) error
}

// Transactor runs a function inside a storage transaction. Repository calls
// made with the context passed to fn participate in the same transaction.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Assertion is a verified statement from an external provider about who the
// caller is. It contains facts only, no decisions.
type Assertion struct {
	Provider  Provider
	SubjectID string // provider-scoped stable identifier (OIDC "sub")
	Email     string // email asserted by the provider, may be empty
}
