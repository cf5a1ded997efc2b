// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package auth provides authentication primitives for Warden.
//
// # Domain Types
//
// User records come from a UserStore and are never mutated by this package.
// Sessions are created through SessionManager, which issues an opaque token
// to the caller and persists only its digest.
//
// # Lockout
//
// Failed attempts are counted per identity bucket by an AttemptTracker.
// Buckets are selected by hashing the username, so unrelated usernames may
// share a counter. Unknown usernames count against their bucket exactly like
// wrong passwords.
//
// # Services
//
// Service coordinates the flow:
//   - Authenticate - lockout check, lookup, verification, counter update
//   - CreateSession, ValidateSession, DestroySession - token lifecycle
//   - CheckPermission, HandleAction - role checks and action dispatch
//
// Every failure is an oops error carrying one of the Code* constants.
// Only CodeStoreUnavailable is retryable (see IsRetryable).
package auth
