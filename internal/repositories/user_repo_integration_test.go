//go:build integration

package repositories

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/BradenHooton/backoffice/internal/database"
	"github.com/BradenHooton/backoffice/internal/models"
)

// setupPostgres starts a disposable Postgres, applies the embedded migrations
// and returns a pool bound to it.
func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("backoffice"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := database.NewFromPool(pool, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, db.Migrate(ctx), "failed to run migrations")

	return pool
}

func TestUserRepository_Integration(t *testing.T) {
	pool := setupPostgres(t)
	repo := NewUserRepository(pool, 5*time.Second)
	ctx := context.Background()

	t.Run("register then duplicate in another case", func(t *testing.T) {
		created, err := repo.Create(ctx, &models.User{Name: "Ann", Email: "Ann@X.io", PasswordHash: "h1"})
		require.NoError(t, err)
		assert.Equal(t, "ann@x.io", created.Email)
		assert.Equal(t, models.StatusActive, created.Status)

		_, err = repo.Create(ctx, &models.User{Name: "Ann 2", Email: "ANN@x.io", PasswordHash: "h2"})
		assert.ErrorIs(t, err, models.ErrConflict)

		found, err := repo.GetByEmail(ctx, "ann@X.IO")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
	})

	t.Run("concurrent registrations yield one record", func(t *testing.T) {
		const n = 8
		var wg sync.WaitGroup
		var ok, conflicts atomic.Int32

		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Create(ctx, &models.User{Name: "Bob", Email: "bob@x.io", PasswordHash: "h"})
				switch {
				case err == nil:
					ok.Add(1)
				case errors.Is(err, models.ErrConflict):
					conflicts.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), ok.Load())
		assert.Equal(t, int32(n-1), conflicts.Load())
	})

	t.Run("reset digest is single use", func(t *testing.T) {
		user, err := repo.GetByEmail(ctx, "ann@x.io")
		require.NoError(t, err)

		now := time.Now()
		require.NoError(t, repo.SetResetToken(ctx, user.ID, "digest-1", now.Add(30*time.Minute)))

		// A second request replaces the first digest.
		require.NoError(t, repo.SetResetToken(ctx, user.ID, "digest-2", now.Add(30*time.Minute)))
		_, err = repo.ConsumeResetToken(ctx, "digest-1", "new", now)
		assert.ErrorIs(t, err, models.ErrNotFound)

		const n = 8
		var wg sync.WaitGroup
		var winners atomic.Int32
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := repo.ConsumeResetToken(ctx, "digest-2", "new", time.Now()); err == nil {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), winners.Load())

		updated, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "new", updated.PasswordHash)
		assert.False(t, updated.HasPendingReset())
	})

	t.Run("expired digest is rejected and cleaned up", func(t *testing.T) {
		user, err := repo.GetByEmail(ctx, "bob@x.io")
		require.NoError(t, err)

		now := time.Now()
		require.NoError(t, repo.SetResetToken(ctx, user.ID, "stale", now.Add(-time.Minute)))

		_, err = repo.ConsumeResetToken(ctx, "stale", "new", now)
		assert.ErrorIs(t, err, models.ErrNotFound)

		cleared, err := repo.ClearExpiredResetTokens(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), cleared)

		user, err = repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.False(t, user.HasPendingReset())
	})
}
