// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package access

import (
	"strings"

	"github.com/samber/oops"
)

// Role is the closed set of privilege levels a user record can carry.
type Role uint8

// Known roles. RoleUnknown is the zero value and is never granted anything.
const (
	RoleUnknown Role = iota
	RoleUser
	RoleEditor
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleUser:   "user",
	RoleEditor: "editor",
	RoleAdmin:  "admin",
}

// Roles returns all assignable roles, lowest privilege first.
func Roles() []Role {
	return []Role{RoleUser, RoleEditor, RoleAdmin}
}

// String returns the role's canonical name, or "unknown".
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether r is one of the assignable roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// ParseRole maps a role name to a Role. Matching is case-insensitive.
// Empty or unrecognized names return RoleUnknown and an INVALID_ROLE error.
func ParseRole(name string) (Role, error) {
	if name == "" {
		return RoleUnknown, oops.In("access").Code("INVALID_ROLE").Errorf("role cannot be empty")
	}
	lower := strings.ToLower(name)
	for r, n := range roleNames {
		if n == lower {
			return r, nil
		}
	}
	return RoleUnknown, oops.In("access").Code("INVALID_ROLE").With("role", name).Errorf("unknown role")
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Action is one of the built-in operations on the data store.
type Action uint8

// Built-in actions.
const (
	ActionUnknown Action = iota
	ActionRead
	ActionWrite
	ActionDelete
)

var actionNames = map[Action]string{
	ActionRead:   "read",
	ActionWrite:  "write",
	ActionDelete: "delete",
}

// Actions returns all built-in actions.
func Actions() []Action {
	return []Action{ActionRead, ActionWrite, ActionDelete}
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// ParseAction maps an action name to an Action. Matching is exact; anything
// else yields ActionUnknown and false.
func ParseAction(name string) (Action, bool) {
	for a, n := range actionNames {
		if n == name {
			return a, true
		}
	}
	return ActionUnknown, false
}
