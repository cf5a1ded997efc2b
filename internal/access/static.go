// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package access

import (
	"log/slog"
	"sort"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Engine implements Checker with a static role table.
//
// Thread-safety: roles is immutable after construction and requires no
// synchronization.
type Engine struct {
	roles map[Role][]compiledPermission
}

// compiledPermission holds a permission pattern and its compiled glob.
type compiledPermission struct {
	pattern string
	glob    glob.Glob
}

// NewEngine creates an engine with the default roles.
//
// Panics if default roles contain invalid permission patterns (configuration bug).
func NewEngine() *Engine {
	e, err := NewEngineWithRoles(DefaultRoles())
	if err != nil {
		panic("invalid permission pattern in DefaultRoles: " + err.Error())
	}
	return e
}

// NewEngineWithRoles creates an engine from a role name → patterns table.
//
// Returns error if a role name is not one of the known roles or a pattern
// fails to compile. Roles missing from the table are granted nothing.
func NewEngineWithRoles(roles map[string][]string) (*Engine, error) {
	compiledRoles := make(map[Role][]compiledPermission, len(roles))
	for name, perms := range roles {
		role, err := ParseRole(name)
		if err != nil {
			return nil, err
		}
		compiled := make([]compiledPermission, 0, len(perms))
		for _, p := range perms {
			g, err := glob.Compile(p, ActionSeparator)
			if err != nil {
				return nil, oops.In("access").
					Code("INVALID_PERMISSION_PATTERN").
					With("role", name).
					With("pattern", p).
					Wrap(err)
			}
			compiled = append(compiled, compiledPermission{pattern: p, glob: g})
		}
		compiledRoles[role] = append(compiledRoles[role], compiled...)
	}

	return &Engine{roles: compiledRoles}, nil
}

// Check implements Checker.
func (e *Engine) Check(role Role, action string) bool {
	if action == "" || !role.Valid() {
		return false
	}

	for _, perm := range e.roles[role] {
		if perm.glob.Match(action) {
			return true
		}
	}

	slog.Debug("permission denied by role table",
		"role", role.String(),
		"action", action)
	return false
}

// CheckAction is Check for a built-in action.
func (e *Engine) CheckAction(role Role, action Action) bool {
	if action == ActionUnknown {
		return false
	}
	return e.Check(role, action.String())
}

// Permissions returns the patterns granted to role, sorted.
func (e *Engine) Permissions(role Role) []string {
	perms := e.roles[role]
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, p.pattern)
	}
	sort.Strings(out)
	return out
}
