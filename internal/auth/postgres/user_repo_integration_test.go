// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

//go:build integration

package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/wardenauth/warden/internal/access"
	"github.com/wardenauth/warden/internal/auth"
	"github.com/wardenauth/warden/internal/auth/postgres"
	"github.com/wardenauth/warden/internal/store"
	"github.com/wardenauth/warden/pkg/errutil"
)

// testPool is the shared database pool for integration tests.
var testPool *pgxpool.Pool

// TestMain starts a PostgreSQL container and applies migrations.
func TestMain(m *testing.M) {
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
		panic("failed to start postgres container: " + err.Error())
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		panic("failed to get connection string: " + err.Error())
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		panic("failed to create migrator: " + err.Error())
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		_ = container.Terminate(ctx)
		panic("failed to run migrations: " + err.Error())
	}
	_ = migrator.Close()

	pool, err := store.Connect(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		panic("failed to create pool: " + err.Error())
	}
	testPool = pool

	code := m.Run()

	pool.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestUserRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewUserRepository(testPool)

	user, err := auth.NewUser("it_editor", "it@example.com", "$argon2id$placeholder", access.RoleEditor)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, user))
	t.Cleanup(func() { _ = repo.Delete(ctx, user.ID) })

	assert.NotZero(t, user.ID)

	got, err := repo.Lookup(ctx, "it_editor")
	require.NoError(t, err)
	assert.Equal(t, access.RoleEditor, got.Role)
	assert.True(t, got.Active)

	byID, err := repo.LookupByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "it_editor", byID.Username)

	got.Active = false
	got.UpdatedAt = time.Now()
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.Lookup(ctx, "it_editor")
	require.NoError(t, err)
	assert.False(t, got.Active)

	dup, err := auth.NewUser("it_editor", "", "$argon2id$placeholder", access.RoleUser)
	require.NoError(t, err)
	errutil.AssertErrorCode(t, repo.Create(ctx, dup), "USER_EXISTS")

	_, err = repo.Lookup(ctx, "it_nobody")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestSessionRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewSessionRepository(testPool)
	manager, err := auth.NewSessionManager(repo, auth.WithSessionTTL(time.Minute))
	require.NoError(t, err)

	token, session, err := manager.Create(ctx, "it_alice")
	require.NoError(t, err)

	got, err := manager.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)

	require.NoError(t, manager.Destroy(ctx, token))
	_, err = manager.Validate(ctx, token)
	errutil.AssertErrorCode(t, err, auth.CodeSessionInvalid)

	expired, err := auth.NewSession("it_bob", auth.HashSessionToken("old"), time.Now().Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, expired))

	n, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))
}
