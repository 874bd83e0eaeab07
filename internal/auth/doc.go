// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodlog Contributors

// Package auth is the identity-resolution and session-issuance core.
//
// # Domain Types
//
// Domain types (Account, FederatedIdentity) should be created using their
// constructors:
//   - NewAccount - creates an Account with a validated email address
//   - NewFederatedIdentity - creates a provider binding with validated fields
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from these
// constructors.
//
// # Services
//
// Service is the decision engine: given a credential assertion (email and
// password, or a federated provider assertion) it determines the owning
// account and either issues a signed session token or returns a typed
// refusal. TokenCodec signs and verifies the tokens; RequireSession guards
// HTTP requests with them.
package auth
