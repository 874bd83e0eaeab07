// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodlog Contributors

// Package provider verifies identity assertions from external identity
// providers and maps them onto the auth package's types.
package provider

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/samber/oops"

	"github.com/moodlog/moodlog/internal/auth"
)

// googleIssuer is the OIDC issuer for Google accounts.
const googleIssuer = "https://accounts.google.com"

// AssertionVerifier validates a raw provider token and extracts the identity
// assertion it carries. Implementations must reject tokens they cannot
// cryptographically verify.
type AssertionVerifier interface {
	Verify(ctx context.Context, rawToken string) (auth.Assertion, error)
}

// Google verifies Google ID tokens submitted by clients.
type Google struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogle discovers Google's OIDC configuration and builds a verifier bound
// to clientID. The discovery request uses ctx.
func NewGoogle(ctx context.Context, clientID string) (*Google, error) {
	if clientID == "" {
		return nil, oops.Code("PROVIDER_CONFIG_INVALID").Errorf("google client ID is required")
	}

	oidcProvider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, oops.Code("PROVIDER_DISCOVERY_FAILED").With("issuer", googleIssuer).Wrap(err)
	}

	return &Google{
		verifier: oidcProvider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// Verify checks the signature, issuer, audience, and expiry of rawToken and
// returns the assertion it carries. Any verification failure maps to
// auth.ErrUnauthorized so callers treat a bad provider token exactly like a
// bad session token.
func (g *Google) Verify(ctx context.Context, rawToken string) (auth.Assertion, error) {
	idToken, err := g.verifier.Verify(ctx, rawToken)
	if err != nil {
		return auth.Assertion{}, oops.
			Code("AUTH_PROVIDER_TOKEN_INVALID").
			With("provider", auth.ProviderGoogle).
			Wrapf(auth.ErrUnauthorized, "google id_token verification failed: %v", err)
	}

	var claims struct {
		Subject string `json:"sub"`
		Email   string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return auth.Assertion{}, oops.
			Code("AUTH_PROVIDER_TOKEN_INVALID").
			With("provider", auth.ProviderGoogle).
			Wrapf(auth.ErrUnauthorized, "google id_token claims parse failed: %v", err)
	}

	if claims.Subject == "" {
		return auth.Assertion{}, oops.
			Code("AUTH_PROVIDER_TOKEN_INVALID").
			With("provider", auth.ProviderGoogle).
			Wrapf(auth.ErrUnauthorized, "google id_token missing subject claim")
	}

	// Email may legitimately be absent; the resolver decides what to do
	// with an assertion that has no email.
	return auth.Assertion{
		Provider:  auth.ProviderGoogle,
		SubjectID: claims.Subject,
		Email:     claims.Email,
	}, nil
}
