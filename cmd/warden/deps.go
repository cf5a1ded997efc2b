// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/action"
	"github.com/wardenauth/warden/internal/auth"
	authmem "github.com/wardenauth/warden/internal/auth/memory"
	authpg "github.com/wardenauth/warden/internal/auth/postgres"
	authredis "github.com/wardenauth/warden/internal/auth/redis"
	"github.com/wardenauth/warden/internal/config"
	"github.com/wardenauth/warden/internal/observability"
	"github.com/wardenauth/warden/internal/seed"
	"github.com/wardenauth/warden/internal/store"
)

// backend is the set of stores selected by store.driver.
type backend struct {
	users    auth.UserRepository
	attempts auth.AttemptTracker
	sessions auth.SessionStore
	executor action.Executor
	ready    observability.ReadinessChecker
	closers  []func()
}

// Close releases connections in reverse order of opening.
func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend connects the stores for cfg.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres, config.DriverRedis:
	default:
		return &backend{
			users:    authmem.NewUserStore(),
			attempts: auth.NewBucketTracker(cfg.Auth.Buckets),
			sessions: authmem.NewSessionStore(),
			executor: action.NewMemoryExecutor(),
		}, nil
	}

	pool, err := store.Connect(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	b := &backend{
		users:    authpg.NewUserRepository(pool),
		attempts: auth.NewBucketTracker(cfg.Auth.Buckets),
		sessions: authpg.NewSessionRepository(pool),
		executor: action.NewPostgresExecutor(pool),
		ready:    pool.Ping,
		closers:  []func(){pool.Close},
	}
	if cfg.Store.Driver == config.DriverPostgres {
		return b, nil
	}

	rdb, err := authredis.Connect(ctx, authredis.ClientOptions{
		Addr:     cfg.Store.RedisAddr,
		Password: cfg.Store.RedisPassword,
		DB:       cfg.Store.RedisDB,
		TLS:      cfg.Store.RedisTLS,
	})
	if err != nil {
		b.Close()
		return nil, err
	}
	b.closers = append(b.closers, func() { _ = rdb.Close() }) //nolint:errcheck // shutdown
	b.attempts = authredis.NewAttemptTracker(rdb,
		authredis.WithBuckets(cfg.Auth.Buckets),
		authredis.WithWindow(cfg.Auth.AttemptWindow))
	b.sessions = authredis.NewSessionStore(rdb)
	b.ready = func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	}
	return b, nil
}

func newVerifier(cfg *config.Config) *auth.PasswordVerifier {
	return auth.NewPasswordVerifier(auth.NewArgon2idHasherWithParams(cfg.Argon2))
}

// newService wires an auth.Service over b.
func newService(cfg *config.Config, b *backend, logger *slog.Logger) (*auth.Service, error) {
	manager, err := auth.NewSessionManager(b.sessions, auth.WithSessionTTL(cfg.Auth.SessionTTL))
	if err != nil {
		return nil, err
	}
	engine, err := cfg.PermissionEngine()
	if err != nil {
		return nil, err
	}
	return auth.NewService(auth.ServiceConfig{
		Users:       b.users,
		Attempts:    b.attempts,
		Sessions:    manager,
		Permissions: engine,
		Executor:    b.executor,
		Verifier:    newVerifier(cfg),
		Lockout:     auth.LockoutPolicy{Threshold: cfg.Auth.MaxAttempts},
		Logger:      logger,
	})
}

// applySeedFile creates the users listed in path.
func applySeedFile(ctx context.Context, path string, cfg *config.Config, repo auth.UserRepository, logger *slog.Logger) (seed.Report, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return seed.Report{}, oops.Code("SEED_READ_FAILED").With("path", path).Wrap(err)
	}
	f, err := seed.Parse(data)
	if err != nil {
		return seed.Report{}, oops.With("path", path).Wrap(err)
	}
	return seed.Apply(ctx, repo, auth.NewArgon2idHasherWithParams(cfg.Argon2), f, logger)
}
