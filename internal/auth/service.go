// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodlog Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// LogOverdueAfter is how long after the last mood rating a login is told the
// account is overdue for a new one.
const LogOverdueAfter = 24 * time.Hour

// dummyPasswordHash is verified against when an account doesn't exist or has
// no password, so that all login failures take the same time. This is NOT a
// real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// FederatedStatus is the outcome of a federated resolution.
type FederatedStatus string

// Federated resolution outcomes.
const (
	// StatusLoggedIn means the assertion resolved to an account and a
	// session was issued.
	StatusLoggedIn FederatedStatus = "logged_in"

	// StatusPromptPasswordLogin means an account with the asserted email
	// exists but has no binding for this provider. No binding is created:
	// linking must be an explicit, separately authorized action, otherwise
	// anyone able to obtain a federated token for an email could take over
	// the password account.
	StatusPromptPasswordLogin FederatedStatus = "prompt_password_login"
)

// Session is an issued session token plus the facts the login response needs.
type Session struct {
	Token      string
	AccountID  ulid.ULID
	IssuedAt   time.Time
	ExpiresAt  time.Time
	LogOverdue bool
}

// FederatedLogin is the result of LoginFederated. Session and Account are
// nil unless Status is StatusLoggedIn.
type FederatedLogin struct {
	Status  FederatedStatus
	Session *Session
	Account *Account
}

// Service is the identity resolver: the decision engine for registration,
// password and federated login, and password changes.
type Service struct {
	accounts   AccountRepository
	identities IdentityRepository
	tx         Transactor
	hasher     PasswordHasher
	codec      *TokenCodec
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a Service. All dependencies are required.
func NewService(
	accounts AccountRepository,
	identities IdentityRepository,
	tx Transactor,
	hasher PasswordHasher,
	codec *TokenCodec,
	logger *slog.Logger,
) (*Service, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("accounts repository is required")
	}
	if identities == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("identities repository is required")
	}
	if tx == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("transactor is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}
	if codec == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("token codec is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		accounts:   accounts,
		identities: identities,
		tx:         tx,
		hasher:     hasher,
		codec:      codec,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Register creates an account with a hashed password. The plaintext never
// reaches the store.
func (s *Service) Register(ctx context.Context, email, password string) (*Account, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := NewAccount(email, &hash)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create account").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "account registered", "account_id", account.ID.String())
	return account, nil
}

// ResolvePassword authenticates an email/password pair and returns the
// owning account. Unknown email, password-less account, and wrong password
// all yield the same ErrInvalidCredentials so the three cases cannot be told
// apart. Session issuance and TouchLastLogin are the caller's job.
func (s *Service) ResolvePassword(ctx context.Context, email, password string) (*Account, error) {
	account, lookupErr := s.accounts.GetByEmail(ctx, email)

	// Pick the hash to verify against; keep verifying even when the account
	// is missing or password-less so response time stays flat.
	targetHash := dummyPasswordHash
	exists := false

	switch {
	case lookupErr == nil:
		if account.HasPassword() {
			targetHash = *account.PasswordHash
		}
		exists = true
	case errors.Is(lookupErr, ErrNotFound):
		// fall through with the dummy hash
	default:
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get account by email").
			Wrap(lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil && exists && account.HasPassword() {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !exists || !account.HasPassword() || !valid {
		return nil, invalidCredentials()
	}

	return account, nil
}

// Login wraps ResolvePassword with session issuance and TouchLastLogin.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	account, err := s.ResolvePassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.issueSession(ctx, account)
}

// LoginFederated resolves a verified provider assertion to an account.
//
// The three-way branch:
//   - the subject is already bound: log into the bound account, mutate nothing
//   - no binding but the asserted email matches an existing account: prompt
//     for password login, create nothing
//   - no binding and no account: create account (no password) and binding
//     atomically, then log in
//
// Binding lookup happens before any email lookup, so a bound subject always
// resolves to its bound account even if the provider's asserted email has
// since changed.
func (s *Service) LoginFederated(ctx context.Context, assertion Assertion) (*FederatedLogin, error) {
	if !assertion.Provider.Valid() {
		return nil, oops.Code("AUTH_INVALID_PROVIDER").
			With("provider", string(assertion.Provider)).
			Errorf("unknown identity provider: %w", ErrValidation)
	}
	if assertion.SubjectID == "" {
		return nil, oops.Code("AUTH_INVALID_SUBJECT").
			Errorf("provider subject ID cannot be empty: %w", ErrValidation)
	}

	binding, err := s.identities.Get(ctx, assertion.Provider, assertion.SubjectID)
	switch {
	case err == nil:
		account, err := s.accounts.GetByID(ctx, binding.AccountID)
		if err != nil {
			return nil, oops.Code("AUTH_FEDERATED_FAILED").
				With("operation", "get bound account").
				With("account_id", binding.AccountID.String()).
				Wrap(err)
		}
		session, err := s.issueSession(ctx, account)
		if err != nil {
			return nil, err
		}
		return &FederatedLogin{Status: StatusLoggedIn, Session: session, Account: account}, nil
	case errors.Is(err, ErrNotFound):
		// no binding yet, continue with the email
	default:
		return nil, oops.Code("AUTH_FEDERATED_FAILED").
			With("operation", "get identity binding").
			Wrap(err)
	}

	if assertion.Email == "" {
		return nil, oops.Code("AUTH_FEDERATED_NO_EMAIL").
			Errorf("missing an email address for federated login: %w", ErrValidation)
	}

	existing, err := s.accounts.GetByEmail(ctx, assertion.Email)
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "federated subject matches unlinked account, prompting password login",
			"provider", string(assertion.Provider),
			"account_id", existing.ID.String(),
		)
		return &FederatedLogin{Status: StatusPromptPasswordLogin}, nil
	case errors.Is(err, ErrNotFound):
		// brand-new identity, continue with signup
	default:
		return nil, oops.Code("AUTH_FEDERATED_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}

	account, err := NewAccount(assertion.Email, nil)
	if err != nil {
		return nil, err
	}
	identity, err := NewFederatedIdentity(assertion.Provider, assertion.SubjectID, account.ID)
	if err != nil {
		return nil, err
	}

	// Account and binding must land together: a failed binding insert must
	// not leave behind an orphaned, password-less account.
	err = s.tx.InTransaction(ctx, func(txCtx context.Context) error {
		if err := s.accounts.Create(txCtx, account); err != nil {
			return err
		}
		return s.identities.Create(txCtx, identity)
	})
	if err != nil {
		return nil, oops.Code("AUTH_FEDERATED_SIGNUP_FAILED").
			With("provider", string(assertion.Provider)).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "federated account created",
		"provider", string(assertion.Provider),
		"account_id", account.ID.String(),
	)

	session, err := s.issueSession(ctx, account)
	if err != nil {
		return nil, err
	}
	return &FederatedLogin{Status: StatusLoggedIn, Session: session, Account: account}, nil
}

// ChangePassword replaces an account's password.
//
// oldPassword must be supplied and must verify against the stored hash, and
// newPassword must accompany it. When oldPassword is empty no change may be
// requested: a newPassword on its own is invalid input. Empty old and new is
// a no-op returning the account unchanged.
func (s *Service) ChangePassword(ctx context.Context, accountID ulid.ULID, oldPassword, newPassword string) (*Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "get account").
			Wrap(err)
	}

	if oldPassword == "" {
		if newPassword != "" {
			return nil, oops.Code("AUTH_OLD_PASSWORD_REQUIRED").
				Errorf("old password is required to select a new one: %w", ErrValidation)
		}
		return account, nil
	}

	if newPassword == "" {
		return nil, oops.Code("AUTH_NEW_PASSWORD_REQUIRED").
			Errorf("missing new replacement password: %w", ErrValidation)
	}
	if err := ValidatePassword(newPassword); err != nil {
		return nil, err
	}

	if !account.HasPassword() {
		return nil, invalidCredentials()
	}

	valid, err := s.hasher.Verify(oldPassword, *account.PasswordHash)
	if err != nil {
		return nil, oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "verify old password").
			Wrap(err)
	}
	if !valid {
		return nil, invalidCredentials()
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	if err := s.accounts.UpdatePassword(ctx, accountID, hash); err != nil {
		return nil, oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "update password").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "password changed", "account_id", accountID.String())

	account.PasswordHash = &hash
	account.UpdatedAt = s.now()
	return account, nil
}

// GetAccount retrieves an account by ID.
func (s *Service) GetAccount(ctx context.Context, id ulid.ULID) (*Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, oops.Code("AUTH_GET_ACCOUNT_FAILED").Wrap(err)
	}
	return account, nil
}

// VerifySession validates a raw session token.
func (s *Service) VerifySession(token string) (Principal, error) {
	return s.codec.Verify(token)
}

// issueSession mints a token for the account and records the login.
func (s *Service) issueSession(ctx context.Context, account *Account) (*Session, error) {
	token, expiresAt, err := s.codec.Issue(account.ID, 0)
	if err != nil {
		return nil, oops.Code("AUTH_ISSUE_FAILED").
			With("account_id", account.ID.String()).
			Wrap(err)
	}

	now := s.now()

	// Best effort: the login already succeeded, a failed timestamp update
	// should not undo it.
	if err := s.accounts.TouchLastLogin(ctx, account.ID, now); err != nil {
		s.logger.WarnContext(ctx, "failed to record last login",
			"account_id", account.ID.String(),
			"error", err,
		)
	}

	return &Session{
		Token:      token,
		AccountID:  account.ID,
		IssuedAt:   now,
		ExpiresAt:  expiresAt,
		LogOverdue: logOverdue(account, now),
	}, nil
}

// logOverdue reports whether the account has gone LogOverdueAfter without a
// mood rating.
func logOverdue(account *Account, now time.Time) bool {
	if account.LastLogAt == nil {
		return true
	}
	return now.Sub(*account.LastLogAt) > LogOverdueAfter
}

// invalidCredentials builds the single generic authentication failure. All
// password-flow refusals go through here so they are indistinguishable.
func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
}
