// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

//go:build integration

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/wardenauth/warden/internal/access"
	"github.com/wardenauth/warden/internal/action"
	"github.com/wardenauth/warden/internal/auth"
	authpg "github.com/wardenauth/warden/internal/auth/postgres"
	authredis "github.com/wardenauth/warden/internal/auth/redis"
	"github.com/wardenauth/warden/internal/seed"
	"github.com/wardenauth/warden/internal/store"
)

func TestAuth(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Integration Suite")
}

// testEnv holds the resources shared by the suite.
type testEnv struct {
	ctx       context.Context
	container testcontainers.Container
	pool      *pgxpool.Pool
	redis     *miniredis.Miniredis
	rdb       *goredis.Client
	hasher    auth.PasswordHasher
}

var env *testEnv

const seedUsers = `
users:
  - username: admin
    password: secret
    role: admin
  - username: alice
    password: wonderland
    role: editor
  - username: bob
    password: builder
    role: user
  - username: carol
    password: retired
    role: editor
    disabled: true
`

var _ = BeforeSuite(func() {
	var err error
	env, err = setupAuthTestEnv()
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if env != nil {
		env.cleanup()
	}
})

var _ = BeforeEach(func() {
	_, err := env.pool.Exec(env.ctx, `TRUNCATE users, sessions, data RESTART IDENTITY`)
	Expect(err).NotTo(HaveOccurred())
	env.redis.FlushAll()

	f, err := seed.Parse([]byte(seedUsers))
	Expect(err).NotTo(HaveOccurred())
	_, err = seed.Apply(env.ctx, authpg.NewUserRepository(env.pool), env.hasher, f, nil)
	Expect(err).NotTo(HaveOccurred())
})

func setupAuthTestEnv() (*testEnv, error) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:18-alpine",
		tcpostgres.WithDatabase("warden_test"),
		tcpostgres.WithUsername("warden"),
		tcpostgres.WithPassword("warden"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}
	_ = migrator.Close()

	pool, err := store.Connect(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	mr, err := miniredis.Run()
	if err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}
	rdb, err := authredis.Connect(ctx, authredis.ClientOptions{Addr: mr.Addr()})
	if err != nil {
		mr.Close()
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &testEnv{
		ctx:       ctx,
		container: container,
		pool:      pool,
		redis:     mr,
		rdb:       rdb,
		hasher:    auth.NewArgon2idHasherWithParams(auth.Argon2Params{Memory: 1024}),
	}, nil
}

func (e *testEnv) cleanup() {
	if e.rdb != nil {
		_ = e.rdb.Close()
	}
	if e.redis != nil {
		e.redis.Close()
	}
	if e.pool != nil {
		e.pool.Close()
	}
	if e.container != nil {
		_ = e.container.Terminate(e.ctx)
	}
}

// stack is one fully wired service.
type stack struct {
	svc      *auth.Service
	attempts auth.AttemptTracker
}

// postgresStack keeps everything in PostgreSQL, with lockout counters in process.
func postgresStack() *stack {
	sessions, err := auth.NewSessionManager(authpg.NewSessionRepository(env.pool))
	Expect(err).NotTo(HaveOccurred())
	return newStack(auth.NewBucketTracker(auth.DefaultBuckets), sessions)
}

// redisStack keeps lockout counters and sessions in Redis.
func redisStack() *stack {
	sessions, err := auth.NewSessionManager(authredis.NewSessionStore(env.rdb))
	Expect(err).NotTo(HaveOccurred())
	return newStack(authredis.NewAttemptTracker(env.rdb, authredis.WithWindow(time.Minute)), sessions)
}

func newStack(attempts auth.AttemptTracker, sessions *auth.SessionManager) *stack {
	svc, err := auth.NewService(auth.ServiceConfig{
		Users:       authpg.NewUserRepository(env.pool),
		Attempts:    attempts,
		Sessions:    sessions,
		Permissions: access.NewEngine(),
		Executor:    action.NewPostgresExecutor(env.pool),
		Verifier:    auth.NewPasswordVerifier(env.hasher),
	})
	Expect(err).NotTo(HaveOccurred())
	return &stack{svc: svc, attempts: attempts}
}
