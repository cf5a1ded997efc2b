// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wardenauth/warden/internal/access"
)

// NewCheckCmd creates the check subcommand.
func NewCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <role> <action>",
		Short: "Report whether a role may perform an action",
		Long: `Evaluates the configured role table. Unknown roles and empty actions
are denied.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			engine, err := cfg.PermissionEngine()
			if err != nil {
				return err
			}

			role, err := access.ParseRole(args[0])
			if err != nil {
				role = access.RoleUnknown
			}
			decision := "denied"
			if engine.Check(role, args[1]) {
				decision = "allowed"
			}
			fmt.Fprintln(cmd.OutOrStdout(), decision) //nolint:errcheck // stdout
			return nil
		},
	}
}
