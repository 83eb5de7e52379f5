package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyu-don/counter-app/internal/metrics"
)

// counterName is the fixed row key for the shared counter.
const counterName = "shared"

const backendLabel = "postgres"

// CounterStore persists the counter value in a single Postgres row.
type CounterStore struct {
	pool *pgxpool.Pool
}

func NewCounterStore(pool *pgxpool.Pool) *CounterStore {
	return &CounterStore{pool: pool}
}

// Get returns the current value, or 0 if the row does not exist.
func (s *CounterStore) Get(ctx context.Context) (int64, error) {
	timer := metrics.ObserveStoreOp(backendLabel, "get")
	defer timer.ObserveDuration()

	var value int64
	err := s.pool.QueryRow(ctx, `SELECT value FROM counters WHERE name = $1`, counterName).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues(backendLabel, "get").Inc()
		return 0, fmt.Errorf("failed to read counter row: %w", err)
	}
	return value, nil
}

// Put overwrites the current value, creating the row on first write.
func (s *CounterStore) Put(ctx context.Context, value int64) error {
	timer := metrics.ObserveStoreOp(backendLabel, "put")
	defer timer.ObserveDuration()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO counters (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`,
		counterName, value)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues(backendLabel, "put").Inc()
		return fmt.Errorf("failed to upsert counter row: %w", err)
	}
	return nil
}

// Ping implements the readiness check.
func (s *CounterStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
