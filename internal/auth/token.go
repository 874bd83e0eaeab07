// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodlog Contributors

package auth

import (
	"crypto/rsa"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultTokenTTL is the session token lifetime when none is configured.
const DefaultTokenTTL = 86400 * time.Second

// Principal is the resolved identity attached to an authenticated request.
type Principal struct {
	AccountID ulid.ULID
}

// TokenCodec signs and verifies compact, time-bounded session tokens.
//
// Tokens are RS256-signed JWTs so that verification requires only the public
// key; the private signing key never leaves the issuing process. Tokens are
// not persisted and cannot be revoked before expiry.
type TokenCodec struct {
	signKey   *rsa.PrivateKey
	verifyKey *rsa.PublicKey
	ttl       time.Duration
	now       func() time.Time
}

// NewTokenCodec creates a TokenCodec. verifyKey is required; signKey may be
// nil for verify-only holders. A non-positive ttl selects DefaultTokenTTL.
func NewTokenCodec(signKey *rsa.PrivateKey, verifyKey *rsa.PublicKey, ttl time.Duration) (*TokenCodec, error) {
	if verifyKey == nil {
		return nil, oops.Code("TOKEN_CODEC_INVALID").Errorf("verify key is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenCodec{
		signKey:   signKey,
		verifyKey: verifyKey,
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

// TTL returns the configured token lifetime.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue produces a signed token asserting accountID until now+ttl.
// A non-positive ttl selects the codec's configured lifetime.
func (c *TokenCodec) Issue(accountID ulid.ULID, ttl time.Duration) (token string, expiresAt time.Time, err error) {
	if c.signKey == nil {
		return "", time.Time{}, oops.Code("TOKEN_SIGN_UNAVAILABLE").
			Errorf("codec has no signing key")
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	issuedAt := c.now()
	expiresAt = issuedAt.Add(ttl)

	claims := jwt.RegisteredClaims{
		Subject:   accountID.String(),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.signKey)
	if err != nil {
		return "", time.Time{}, oops.Code("TOKEN_SIGN_FAILED").Wrap(err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature and expiry and returns the asserted principal.
//
// Every failure mode (malformed token, wrong algorithm, bad signature,
// expired) wraps ErrUnauthorized: a client presenting a stale or garbled
// token is an expected, frequent case, not an exceptional one.
func (c *TokenCodec) Verify(token string) (Principal, error) {
	if token == "" {
		return Principal{}, oops.Code("TOKEN_EMPTY").
			Errorf("session token is empty: %w", ErrUnauthorized)
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return c.verifyKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return Principal{}, oops.Code("TOKEN_INVALID").
			Errorf("invalid session token: %w", ErrUnauthorized)
	}

	accountID, err := ulid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, oops.Code("TOKEN_INVALID").
			With("subject", claims.Subject).
			Errorf("invalid session token: %w", ErrUnauthorized)
	}

	return Principal{AccountID: accountID}, nil
}
