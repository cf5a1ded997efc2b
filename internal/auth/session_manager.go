// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
)

// SessionManager issues, validates and revokes session tokens.
// A session is Active from creation until it expires or is destroyed;
// only Active sessions validate.
type SessionManager struct {
	store SessionStore
	ttl   time.Duration
	now   func() time.Time
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithSessionTTL sets the lifetime of new sessions.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(m *SessionManager) {
		m.ttl = ttl
	}
}

// WithClock replaces time.Now, for deterministic expiry in tests.
func WithClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) {
		m.now = now
	}
}

// NewSessionManager creates a SessionManager over store.
func NewSessionManager(store SessionStore, opts ...SessionOption) (*SessionManager, error) {
	if store == nil {
		return nil, oops.Code("SESSION_MANAGER_INVALID").Errorf("session store is required")
	}
	m := &SessionManager{
		store: store,
		ttl:   DefaultSessionTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.ttl <= 0 {
		return nil, oops.Code("SESSION_MANAGER_INVALID").
			With("ttl", m.ttl.String()).
			Errorf("session ttl must be positive")
	}
	return m, nil
}

// TTL returns the lifetime given to new sessions.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Create issues a token for username and persists the session.
// The plaintext token is returned only here.
func (m *SessionManager) Create(ctx context.Context, username string) (string, *Session, error) {
	if username == "" {
		return "", nil, oops.Code(CodeSessionInvalid).Errorf("session subject cannot be empty")
	}

	issuedAt := m.now()
	token, tokenHash, err := GenerateSessionToken(username, issuedAt)
	if err != nil {
		return "", nil, err
	}

	session, err := NewSession(username, tokenHash, issuedAt, m.ttl)
	if err != nil {
		return "", nil, err
	}

	if err := m.store.Create(ctx, session); err != nil {
		return "", nil, storeError(ctx, "persist session", err)
	}

	return token, session, nil
}

// Validate returns the session for token if it is Active.
// Empty, unknown, expired and revoked tokens all fail with SESSION_INVALID.
func (m *SessionManager) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, oops.Code(CodeSessionInvalid).Errorf("session token cannot be empty")
	}

	tokenHash := HashSessionToken(token)
	session, err := m.store.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeSessionInvalid).Errorf("invalid session token")
		}
		return nil, storeError(ctx, "get session by token hash", err)
	}

	if !DigestEqual(session.TokenHash, tokenHash) {
		return nil, oops.Code(CodeSessionInvalid).Errorf("invalid session token")
	}

	if session.IsExpiredAt(m.now()) {
		// Best effort; Sweep removes anything left behind.
		_ = m.store.DeleteByTokenHash(ctx, tokenHash) //nolint:errcheck // validation fails regardless
		return nil, oops.Code(CodeSessionInvalid).
			With("expired_at", session.ExpiresAt).
			Errorf("session has expired")
	}

	return session, nil
}

// Destroy revokes token. Revoking an unknown or already revoked token succeeds.
func (m *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.DeleteByTokenHash(ctx, HashSessionToken(token)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return storeError(ctx, "delete session", err)
	}
	return nil
}

// Sweep removes all expired sessions and returns how many were deleted.
func (m *SessionManager) Sweep(ctx context.Context) (int64, error) {
	n, err := m.store.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, storeError(ctx, "delete expired sessions", err)
	}
	return n, nil
}
