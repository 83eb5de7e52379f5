package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/gyu-don/counter-app/internal/metrics"
)

// counterKey is the fixed key holding the shared counter value.
const counterKey = "counter:value"

const backendLabel = "redis"

// CounterStore persists the counter value in Redis.
type CounterStore struct {
	rdb *goredis.Client
}

func NewCounterStore(rdb *goredis.Client) *CounterStore {
	return &CounterStore{rdb: rdb}
}

// Get returns the current value, or 0 if the key does not exist.
func (s *CounterStore) Get(ctx context.Context) (int64, error) {
	timer := metrics.ObserveStoreOp(backendLabel, "get")
	defer timer.ObserveDuration()

	result, err := s.rdb.Get(ctx, counterKey).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues(backendLabel, "get").Inc()
		return 0, fmt.Errorf("failed to get counter key: %w", err)
	}

	value, err := strconv.ParseInt(result, 10, 64)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues(backendLabel, "get").Inc()
		return 0, fmt.Errorf("counter key holds invalid value %q: %w", result, err)
	}
	return value, nil
}

// Put overwrites the current value. No TTL: the counter lives for the
// deployment lifetime.
func (s *CounterStore) Put(ctx context.Context, value int64) error {
	timer := metrics.ObserveStoreOp(backendLabel, "put")
	defer timer.ObserveDuration()

	if err := s.rdb.Set(ctx, counterKey, value, 0).Err(); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues(backendLabel, "put").Inc()
		return fmt.Errorf("failed to set counter key: %w", err)
	}
	return nil
}

// Ping implements the readiness check.
func (s *CounterStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
