// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/auth"
)

// sessionRecord is the stored JSON form of auth.Session.
type sessionRecord struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore implements auth.SessionStore. Each session is one key whose
// Redis TTL matches the session expiry.
type SessionStore struct {
	rdb    goredis.UniversalClient
	prefix string
	now    func() time.Time
}

// Compile-time interface check.
var _ auth.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a SessionStore on rdb using DefaultKeyPrefix.
func NewSessionStore(rdb goredis.UniversalClient) *SessionStore {
	return &SessionStore{rdb: rdb, prefix: DefaultKeyPrefix, now: time.Now}
}

func (s *SessionStore) key(tokenHash string) string {
	return s.prefix + "session:" + tokenHash
}

// Create implements auth.SessionStore.
func (s *SessionStore) Create(ctx context.Context, session *auth.Session) error {
	payload, err := json.Marshal(sessionRecord{
		ID:        session.ID.String(),
		Subject:   session.Subject,
		IssuedAt:  session.IssuedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return oops.With("operation", "marshal session").Wrap(err)
	}

	ttl := session.ExpiresAt.Sub(s.now())
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}

	created, err := s.rdb.SetNX(ctx, s.key(session.TokenHash), payload, ttl).Result()
	if err != nil {
		return oops.With("operation", "store session").
			With("subject", session.Subject).
			Wrap(err)
	}
	if !created {
		return oops.With("session_id", session.ID.String()).Errorf("session token hash collision")
	}
	return nil
}

// GetByTokenHash implements auth.SessionStore.
func (s *SessionStore) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	raw, err := s.rdb.Get(ctx, s.key(tokenHash)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, oops.With("operation", "get session").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get session").Wrap(err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, oops.With("operation", "decode session").Wrap(err)
	}
	id, err := ulid.Parse(rec.ID)
	if err != nil {
		return nil, oops.With("operation", "parse session id").With("id", rec.ID).Wrap(err)
	}

	return &auth.Session{
		ID:        id,
		TokenHash: tokenHash,
		Subject:   rec.Subject,
		IssuedAt:  rec.IssuedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// DeleteByTokenHash implements auth.SessionStore.
func (s *SessionStore) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	n, err := s.rdb.Del(ctx, s.key(tokenHash)).Result()
	if err != nil {
		return oops.With("operation", "delete session").Wrap(err)
	}
	if n == 0 {
		return oops.With("operation", "delete session").Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteExpired implements auth.SessionStore. Redis evicts expired keys on
// its own; this removes keys whose recorded expiry has passed but whose TTL
// has not fired yet (clock skew between writers).
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, s.prefix+"session:*", 100).Result()
		if err != nil {
			return deleted, oops.With("operation", "scan sessions").Wrap(err)
		}
		for _, key := range keys {
			raw, err := s.rdb.Get(ctx, key).Bytes()
			if errors.Is(err, goredis.Nil) {
				continue
			}
			if err != nil {
				return deleted, oops.With("operation", "read session").Wrap(err)
			}
			var rec sessionRecord
			if err := json.Unmarshal(raw, &rec); err != nil || !now.Before(rec.ExpiresAt) {
				n, err := s.rdb.Del(ctx, key).Result()
				if err != nil {
					return deleted, oops.With("operation", "delete expired session").Wrap(err)
				}
				deleted += n
			}
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}
