// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package mocks provides testify mocks for the auth store interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/wardenauth/warden/internal/auth"
)

// MockUserStore is a mock implementation of auth.UserStore.
type MockUserStore struct {
	mock.Mock
}

// NewMockUserStore creates a MockUserStore whose expectations are asserted on cleanup.
func NewMockUserStore(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockUserStore {
	m := &MockUserStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Lookup provides a mock function.
func (m *MockUserStore) Lookup(ctx context.Context, username string) (*auth.User, error) {
	ret := m.Called(ctx, username)
	var user *auth.User
	if v := ret.Get(0); v != nil {
		user = v.(*auth.User)
	}
	return user, ret.Error(1)
}

// LookupByID provides a mock function.
func (m *MockUserStore) LookupByID(ctx context.Context, id int64) (*auth.User, error) {
	ret := m.Called(ctx, id)
	var user *auth.User
	if v := ret.Get(0); v != nil {
		user = v.(*auth.User)
	}
	return user, ret.Error(1)
}

// MockAttemptTracker is a mock implementation of auth.AttemptTracker.
type MockAttemptTracker struct {
	mock.Mock
}

// NewMockAttemptTracker creates a MockAttemptTracker whose expectations are asserted on cleanup.
func NewMockAttemptTracker(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockAttemptTracker {
	m := &MockAttemptTracker{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Get provides a mock function.
func (m *MockAttemptTracker) Get(ctx context.Context, username string) (int, error) {
	ret := m.Called(ctx, username)
	return ret.Int(0), ret.Error(1)
}

// Increment provides a mock function.
func (m *MockAttemptTracker) Increment(ctx context.Context, username string) (int, error) {
	ret := m.Called(ctx, username)
	return ret.Int(0), ret.Error(1)
}

// Reserve provides a mock function.
func (m *MockAttemptTracker) Reserve(ctx context.Context, username string, limit int) (int, bool, error) {
	ret := m.Called(ctx, username, limit)
	return ret.Int(0), ret.Bool(1), ret.Error(2)
}

// Release provides a mock function.
func (m *MockAttemptTracker) Release(ctx context.Context, username string) error {
	ret := m.Called(ctx, username)
	return ret.Error(0)
}

// Reset provides a mock function.
func (m *MockAttemptTracker) Reset(ctx context.Context, username string) error {
	ret := m.Called(ctx, username)
	return ret.Error(0)
}

// MockSessionStore is a mock implementation of auth.SessionStore.
type MockSessionStore struct {
	mock.Mock
}

// NewMockSessionStore creates a MockSessionStore whose expectations are asserted on cleanup.
func NewMockSessionStore(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockSessionStore {
	m := &MockSessionStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create provides a mock function.
func (m *MockSessionStore) Create(ctx context.Context, session *auth.Session) error {
	ret := m.Called(ctx, session)
	return ret.Error(0)
}

// GetByTokenHash provides a mock function.
func (m *MockSessionStore) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	ret := m.Called(ctx, tokenHash)
	var session *auth.Session
	if v := ret.Get(0); v != nil {
		session = v.(*auth.Session)
	}
	return session, ret.Error(1)
}

// DeleteByTokenHash provides a mock function.
func (m *MockSessionStore) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	ret := m.Called(ctx, tokenHash)
	return ret.Error(0)
}

// DeleteExpired provides a mock function.
func (m *MockSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ret := m.Called(ctx, now)
	var n int64
	if v := ret.Get(0); v != nil {
		n = v.(int64)
	}
	return n, ret.Error(1)
}

// Compile-time interface checks.
var (
	_ auth.UserStore      = (*MockUserStore)(nil)
	_ auth.AttemptTracker = (*MockAttemptTracker)(nil)
	_ auth.SessionStore   = (*MockSessionStore)(nil)
)
