package postgres

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	testDatabaseURL string
	pgContainer     testcontainers.Container
)

func TestMain(m *testing.M) {
	// Parse flags to check for -short
	flag.Parse()

	// Skip container setup if running in short mode
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, err := pgcontainer.Run(ctx, "postgres:16-alpine",
		pgcontainer.WithDatabase("counter"),
		pgcontainer.WithUsername("counter"),
		pgcontainer.WithPassword("counter"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
		os.Exit(1)
	}
	pgContainer = container

	testDatabaseURL, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get postgres connection string: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to terminate postgres container: %v\n", err)
		}
	}()
	os.Exit(m.Run())
}

func setupTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, testDatabaseURL)
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}

	// Reset the counter row before each test
	if _, err := pool.Exec(ctx, `DELETE FROM counters`); err != nil {
		t.Fatalf("failed to reset counters table: %v", err)
	}

	t.Cleanup(pool.Close)

	return pool
}

func TestCounterStore_GetDefaultsToZero(t *testing.T) {
	store := NewCounterStore(setupTestPool(t))
	ctx := context.Background()

	value, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), value)
}

func TestCounterStore_PutAndGet(t *testing.T) {
	store := NewCounterStore(setupTestPool(t))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, 1))
	value, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), value)

	// Put is an upsert: overwriting works.
	require.NoError(t, store.Put(ctx, 2))
	value, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), value)
}

func TestCounterStore_ValueVisibleToFreshPool(t *testing.T) {
	pool := setupTestPool(t)
	store := NewCounterStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, 9))

	fresh, err := Connect(ctx, testDatabaseURL)
	require.NoError(t, err)
	t.Cleanup(fresh.Close)

	value, err := NewCounterStore(fresh).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(9), value)
}

func TestCounterStore_Ping(t *testing.T) {
	store := NewCounterStore(setupTestPool(t))
	assert.NoError(t, store.Ping(context.Background()))
}
