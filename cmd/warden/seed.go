// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	authpg "github.com/wardenauth/warden/internal/auth/postgres"
	"github.com/wardenauth/warden/internal/config"
	"github.com/wardenauth/warden/internal/seed"
	"github.com/wardenauth/warden/internal/store"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	timeout      time.Duration
	validateOnly bool
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: "Create user accounts from a seed file",
		Long: `Creates the users listed in a YAML seed file in the PostgreSQL store.
Users that already exist are skipped, so the command can be re-run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args[0], cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")
	cmd.Flags().BoolVar(&cfg.validateOnly, "validate-only", false, "check the file without touching the database")

	return cmd
}

func runSeed(cmd *cobra.Command, path string, sc *seedConfig) error {
	if sc.validateOnly {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
		if err != nil {
			return oops.Code("SEED_READ_FAILED").With("path", path).Wrap(err)
		}
		f, err := seed.Parse(data)
		if err != nil {
			return err
		}
		cmd.Printf("%s: %d user(s), valid\n", path, len(f.Users))
		return nil
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Store.Driver == config.DriverMemory {
		return oops.Code("CONFIG_INVALID").Errorf("seed needs a persistent store; set --store to postgres or redis")
	}

	// cmd.Context() carries SIGINT/SIGTERM cancellation.
	ctx, cancel := context.WithTimeout(cmd.Context(), sc.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	pool, err := store.Connect(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	report, err := applySeedFile(ctx, path, cfg, authpg.NewUserRepository(pool), logger)
	for _, name := range report.Created {
		cmd.Printf("created %s\n", name)
	}
	for _, name := range report.Skipped {
		cmd.Printf("exists  %s\n", name)
	}
	if err != nil {
		return err
	}

	cmd.Println("Seeding complete")
	return nil
}

// NewSeedSchemaCmd creates the seed-schema subcommand.
func NewSeedSchemaCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "seed-schema",
		Short: "Print the JSON Schema for seed files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := seed.GenerateSchema()
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), string(schema)) //nolint:errcheck // stdout
				return nil
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
				return oops.Code("SCHEMA_WRITE_FAILED").With("path", out).Wrap(err)
			}
			if err := os.WriteFile(out, schema, 0o600); err != nil {
				return oops.Code("SCHEMA_WRITE_FAILED").With("path", out).Wrap(err)
			}
			cmd.Printf("Generated %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write the schema to this file instead of stdout")

	return cmd
}
