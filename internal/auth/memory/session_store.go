// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/auth"
)

// SessionStore implements auth.SessionStore with a map keyed by token hash.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]auth.Session
}

// Compile-time interface check.
var _ auth.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]auth.Session)}
}

// Create implements auth.SessionStore.
func (s *SessionStore) Create(ctx context.Context, session *auth.Session) error {
	if err := ctx.Err(); err != nil {
		return oops.With("operation", "create session").Wrap(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.TokenHash]; exists {
		return oops.With("session_id", session.ID.String()).Errorf("session token hash collision")
	}
	s.sessions[session.TokenHash] = *session
	return nil
}

// GetByTokenHash implements auth.SessionStore.
func (s *SessionStore) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.With("operation", "get session").Wrap(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[tokenHash]
	if !ok {
		return nil, oops.With("operation", "get session").Wrap(auth.ErrNotFound)
	}
	return &session, nil
}

// DeleteByTokenHash implements auth.SessionStore.
func (s *SessionStore) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	if err := ctx.Err(); err != nil {
		return oops.With("operation", "delete session").Wrap(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[tokenHash]; !ok {
		return oops.With("operation", "delete session").Wrap(auth.ErrNotFound)
	}
	delete(s.sessions, tokenHash)
	return nil
}

// DeleteExpired implements auth.SessionStore.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, oops.With("operation", "delete expired sessions").Wrap(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for hash, session := range s.sessions {
		if session.IsExpiredAt(now) {
			delete(s.sessions, hash)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
