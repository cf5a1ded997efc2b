// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package access

// Permission groups define reusable sets of action patterns.
// Roles compose these groups rather than inheriting.

var readPowers = []string{
	"read",
}

var editPowers = []string{
	"write",
}

var adminPowers = []string{
	// Everything, including actions that have no executor.
	"**",
}

// DefaultRoles returns the default role definitions keyed by role name.
// Roles compose permission groups explicitly (no inheritance).
func DefaultRoles() map[string][]string {
	return map[string][]string{
		RoleUser.String():   readPowers,
		RoleEditor.String(): compose(readPowers, editPowers),
		RoleAdmin.String():  compose(readPowers, editPowers, adminPowers),
	}
}

// compose merges multiple permission slices into one.
func compose(groups ...[]string) []string {
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	result := make([]string, 0, total)
	for _, g := range groups {
		result = append(result, g...)
	}
	return result
}
