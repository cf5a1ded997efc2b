// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package access provides role-based authorization for Warden.
//
// Decisions are a pure function of (role, action): no subject state, no
// resource scoping. Anything not granted by a role's permission patterns is
// denied.
//
//   - role: one of the closed set admin, editor, user
//   - action: "read", "write", "delete", or any other string (denied unless
//     a pattern matches it)
package access

// Checker decides whether a role may perform an action.
type Checker interface {
	// Check returns true if role is allowed to perform action.
	// Returns false for unknown roles, empty actions and anything not
	// explicitly granted (deny by default).
	Check(role Role, action string) bool
}

// ActionSeparator separates segments in hierarchical action names, e.g.
// "report:export". Permission patterns use the same separator so that "*"
// matches a single segment and "**" matches any number.
const ActionSeparator = ':'
