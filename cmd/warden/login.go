// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"

	"github.com/wardenauth/warden/internal/auth"
)

// Retry defaults for transient store failures.
const (
	defaultLoginRetries = 3
	defaultRetryBase    = 100 * time.Millisecond
)

// loginConfig holds configuration for the login command.
type loginConfig struct {
	seedFile string
	retries  uint64
}

// NewLoginCmd creates the login subcommand.
func NewLoginCmd() *cobra.Command {
	cfg := &loginConfig{}

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Authenticate and print a session token",
		Long: `Reads the password from the first line of stdin, authenticates it
against the configured store and prints a new session token. Store outages
are retried with exponential backoff; credential and lockout failures are not.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, args[0], cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.seedFile, "seed", "", "seed file applied before logging in")
	cmd.Flags().Uint64Var(&cfg.retries, "retries", defaultLoginRetries, "retries when the store is unavailable")

	return cmd
}

func runLogin(cmd *cobra.Command, username string, lc *loginConfig) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	if lc.seedFile != "" {
		if _, err := applySeedFile(ctx, lc.seedFile, cfg, b.users, logger); err != nil {
			return err
		}
	}

	svc, err := newService(cfg, b, logger)
	if err != nil {
		return err
	}

	var (
		token   string
		session *auth.Session
	)
	backoff := retry.WithMaxRetries(lc.retries, retry.NewExponential(defaultRetryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var loginErr error
		_, token, session, loginErr = svc.Login(ctx, username, password)
		if auth.IsRetryable(loginErr) {
			logger.WarnContext(ctx, "login attempt failed, retrying", "error", loginErr)
			return retry.RetryableError(loginErr)
		}
		return loginErr
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token) //nolint:errcheck // stdout
	cmd.PrintErrf("expires %s\n", session.ExpiresAt.Format(time.RFC3339))
	return nil
}

func readPassword(cmd *cobra.Command) (string, error) {
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", oops.Code("PASSWORD_REQUIRED").Errorf("password must be supplied on stdin")
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", oops.Code("PASSWORD_REQUIRED").Errorf("password must be supplied on stdin")
	}
	return password, nil
}
