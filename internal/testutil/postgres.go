package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
)

// StartPostgres launches a throwaway Postgres container, applies the
// embedded migrations and returns a pool. Everything is torn down through
// t.Cleanup.
func StartPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in -short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("storefront"),
		postgres.WithPassword("storefront"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cleanupCancel()
		_ = container.Terminate(cleanupCtx)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, db.RunMigrations(dsn, zaptest.NewLogger(t)))

	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

// SeedProduct inserts or replaces a catalog row.
func SeedProduct(t *testing.T, pool *pgxpool.Pool, id, name, price string, images ...string) {
	t.Helper()
	if images == nil {
		images = []string{}
	}
	_, err := pool.Exec(context.Background(), `
		INSERT INTO product (id, name, price, images) VALUES ($1, $2, $3::numeric, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price, images = EXCLUDED.images
	`, id, name, price, images)
	require.NoError(t, err)
}

// DeleteProduct removes a catalog row, as the separate catalog admin would.
func DeleteProduct(t *testing.T, pool *pgxpool.Pool, id string) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `DELETE FROM product WHERE id = $1`, id)
	require.NoError(t, err)
}
