// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package seed loads initial user accounts from a YAML file.
package seed

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/wardenauth/warden/internal/access"
	"github.com/wardenauth/warden/internal/auth"
	"github.com/wardenauth/warden/pkg/errutil"
)

// File is the top level of a seed file.
type File struct {
	Users []User `json:"users" yaml:"users" jsonschema:"required,minItems=1"`
}

// User is one account to create.
type User struct {
	Username string `json:"username" yaml:"username" jsonschema:"required,minLength=3,maxLength=64,pattern=^[a-zA-Z][a-zA-Z0-9_.-]*$"`
	Password string `json:"password" yaml:"password" jsonschema:"required,minLength=1"`
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
	Role     string `json:"role" yaml:"role" jsonschema:"required,enum=admin,enum=editor,enum=user"`
	Disabled bool   `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// Report lists what Apply did.
type Report struct {
	Created []string
	Skipped []string
}

// Parse validates data against the seed schema and decodes it.
func Parse(data []byte) (*File, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, oops.Code("SEED_INVALID").Wrap(err)
	}

	seen := make(map[string]bool, len(f.Users))
	for i, u := range f.Users {
		if seen[u.Username] {
			return nil, oops.Code("SEED_INVALID").
				With("index", i).
				With("username", u.Username).
				Errorf("duplicate username")
		}
		seen[u.Username] = true
	}
	return &f, nil
}

// Apply creates every user in f. Users that already exist are skipped.
// Apply stops at the first other failure; the report covers the users
// handled before it.
func Apply(ctx context.Context, repo auth.UserRepository, hasher auth.PasswordHasher, f *File, logger *slog.Logger) (Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var report Report

	for _, u := range f.Users {
		role, err := access.ParseRole(u.Role)
		if err != nil {
			return report, oops.Code("SEED_INVALID").With("username", u.Username).Wrap(err)
		}
		digest, err := hasher.Hash(u.Password)
		if err != nil {
			return report, oops.Code("SEED_FAILED").With("username", u.Username).Wrap(err)
		}
		user, err := auth.NewUser(u.Username, u.Email, digest, role)
		if err != nil {
			return report, oops.Code("SEED_INVALID").With("username", u.Username).Wrap(err)
		}
		user.Active = !u.Disabled

		if err := repo.Create(ctx, user); err != nil {
			if errutil.Code(err) == "USER_EXISTS" {
				logger.InfoContext(ctx, "seed user exists, skipping", "username", u.Username)
				report.Skipped = append(report.Skipped, u.Username)
				continue
			}
			return report, oops.Code("SEED_FAILED").With("username", u.Username).Wrap(err)
		}

		logger.InfoContext(ctx, "seed user created", "username", u.Username, "role", role.String())
		report.Created = append(report.Created, u.Username)
	}
	return report, nil
}
