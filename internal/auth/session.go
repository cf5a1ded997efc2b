// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionNonceBytes = 32               // random bytes mixed into every token
	DefaultSessionTTL = 30 * time.Minute // lifetime of a new session
)

// Session is a persisted authenticated session. Only the token's digest is
// stored; the plaintext token is returned once, to the caller of Create.
type Session struct {
	ID        ulid.ULID
	TokenHash string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NewSession creates a validated Session instance.
func NewSession(subject, tokenHash string, issuedAt time.Time, ttl time.Duration) (*Session, error) {
	if subject == "" {
		return nil, oops.Code(CodeSessionInvalid).Errorf("session subject cannot be empty")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if ttl <= 0 {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").With("ttl", ttl.String()).Errorf("session ttl must be positive")
	}

	return &Session{
		ID:        ulid.MustNew(ulid.Timestamp(issuedAt), rand.Reader),
		TokenHash: tokenHash,
		Subject:   subject,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(ttl),
	}, nil
}

// IsExpiredAt returns true if the session is no longer valid at t.
// A session is expired from the instant ExpiresAt is reached.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// TTL returns the session's total lifetime.
func (s *Session) TTL() time.Duration {
	return s.ExpiresAt.Sub(s.IssuedAt)
}

// GenerateSessionToken derives an opaque token for subject and its at-rest hash.
// The token is the digest of subject, issue time and a random nonce, so two
// tokens for the same subject in the same instant still differ.
func GenerateSessionToken(subject string, issuedAt time.Time) (token, hash string, err error) {
	nonce := make([]byte, SessionNonceBytes)
	if _, err = rand.Read(nonce); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionNonceBytes).
			Wrap(err)
	}

	seed := subject + ":" + strconv.FormatInt(issuedAt.UnixNano(), 10) + ":" + hex.EncodeToString(nonce)
	token = Digest(seed)
	return token, HashSessionToken(token), nil
}

// HashSessionToken computes the at-rest hash of a session token.
func HashSessionToken(token string) string {
	return Digest(token)
}

// SessionStore persists sessions keyed by token hash.
type SessionStore interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session by its token hash.
	// Returns an error wrapping ErrNotFound if none exists.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// DeleteByTokenHash removes a session.
	// Returns an error wrapping ErrNotFound if none exists.
	DeleteByTokenHash(ctx context.Context, tokenHash string) error

	// DeleteExpired removes all sessions expired at now and returns the
	// count of deleted records.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
