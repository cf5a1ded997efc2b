// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/access"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 64
)

// usernameRegex matches usernames that:
// - Start with a letter (a-z, A-Z)
// - Contain only letters, numbers, dots, dashes and underscores
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.-]*$`)

// User is a stored account record.
type User struct {
	ID             int64
	Username       string
	PasswordDigest string
	Email          string
	Role           access.Role
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewUser creates a validated, active User. The password digest must already
// be produced by a PasswordHasher. ID is assigned by the store.
func NewUser(username, email, passwordDigest string, role access.Role) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if passwordDigest == "" {
		return nil, oops.Code("AUTH_INVALID_DIGEST").Errorf("password digest cannot be empty")
	}
	if !role.Valid() {
		return nil, oops.Code("AUTH_INVALID_ROLE").
			With("role", role.String()).
			Errorf("user must have an assignable role")
	}

	now := time.Now()
	return &User{
		Username:       username,
		PasswordDigest: passwordDigest,
		Email:          email,
		Role:           role,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ValidateUsername validates a username against rules.
// Username requirements:
// - Length: MinUsernameLength to MaxUsernameLength characters
// - Must start with a letter
// - Can contain only letters, numbers, dots, dashes and underscores
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("AUTH_INVALID_USERNAME").
			Errorf("username must start with a letter and contain only letters, numbers, dots, dashes, and underscores")
	}
	return nil
}

// UserStore resolves user records. Implementations return a fresh copy on
// every call and wrap ErrNotFound when no record matches.
type UserStore interface {
	// Lookup retrieves a user by exact username.
	Lookup(ctx context.Context, username string) (*User, error)

	// LookupByID retrieves a user by numeric ID.
	LookupByID(ctx context.Context, id int64) (*User, error)
}

// UserRepository is a UserStore that can also manage records.
type UserRepository interface {
	UserStore

	// Create stores a new user and assigns its ID.
	Create(ctx context.Context, user *User) error

	// Update replaces the mutable fields of an existing user.
	Update(ctx context.Context, user *User) error

	// Delete removes a user.
	Delete(ctx context.Context, id int64) error
}
