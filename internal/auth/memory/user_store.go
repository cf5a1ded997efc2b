// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package memory provides in-process implementations of the auth stores,
// used by the default "memory" driver and by tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/auth"
)

// UserStore implements auth.UserRepository with a map.
type UserStore struct {
	mu     sync.RWMutex
	byID   map[int64]*auth.User
	byName map[string]int64
	nextID int64
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserStore)(nil)

// NewUserStore creates an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{
		byID:   make(map[int64]*auth.User),
		byName: make(map[string]int64),
		nextID: 1,
	}
}

// Lookup implements auth.UserStore.
func (s *UserStore) Lookup(ctx context.Context, username string) (*auth.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.With("operation", "lookup user").Wrap(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[username]
	if !ok {
		return nil, oops.With("username", username).Wrap(auth.ErrNotFound)
	}
	u := *s.byID[id]
	return &u, nil
}

// LookupByID implements auth.UserStore.
func (s *UserStore) LookupByID(ctx context.Context, id int64) (*auth.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.With("operation", "lookup user by id").Wrap(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.byID[id]
	if !ok {
		return nil, oops.With("user_id", id).Wrap(auth.ErrNotFound)
	}
	u := *stored
	return &u, nil
}

// Create implements auth.UserRepository. The assigned ID is written back to user.
func (s *UserStore) Create(ctx context.Context, user *auth.User) error {
	if err := ctx.Err(); err != nil {
		return oops.With("operation", "create user").Wrap(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[user.Username]; exists {
		return oops.Code("USER_EXISTS").With("username", user.Username).Errorf("username already taken")
	}

	user.ID = s.nextID
	s.nextID++
	stored := *user
	s.byID[stored.ID] = &stored
	s.byName[stored.Username] = stored.ID
	return nil
}

// Update implements auth.UserRepository.
func (s *UserStore) Update(ctx context.Context, user *auth.User) error {
	if err := ctx.Err(); err != nil {
		return oops.With("operation", "update user").Wrap(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[user.ID]
	if !ok {
		return oops.With("user_id", user.ID).Wrap(auth.ErrNotFound)
	}
	if existing.Username != user.Username {
		if _, taken := s.byName[user.Username]; taken {
			return oops.Code("USER_EXISTS").With("username", user.Username).Errorf("username already taken")
		}
		delete(s.byName, existing.Username)
		s.byName[user.Username] = user.ID
	}

	stored := *user
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now()
	s.byID[user.ID] = &stored
	return nil
}

// Delete implements auth.UserRepository.
func (s *UserStore) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return oops.With("operation", "delete user").Wrap(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[id]
	if !ok {
		return oops.With("user_id", id).Wrap(auth.ErrNotFound)
	}
	delete(s.byName, existing.Username)
	delete(s.byID, id)
	return nil
}
