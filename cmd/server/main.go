package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gyu-don/counter-app/internal/config"
	"github.com/gyu-don/counter-app/internal/counter"
	"github.com/gyu-don/counter-app/internal/logging"
	"github.com/gyu-don/counter-app/internal/postgres"
	counterredis "github.com/gyu-don/counter-app/internal/redis"
	"github.com/gyu-don/counter-app/internal/server"
)

// storeBackend bundles a counter store with its readiness check and cleanup.
type storeBackend struct {
	store  counter.Store
	health interface {
		Ping(ctx context.Context) error
	}
	close func()
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupStore(cfg *config.Config) storeBackend {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.CounterBackend {
	case config.BackendRedis:
		client, err := counterredis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		store := counterredis.NewCounterStore(client)
		return storeBackend{store: store, health: store, close: func() { _ = client.Close() }}

	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		store := postgres.NewCounterStore(pool)
		return storeBackend{store: store, health: store, close: pool.Close}

	default:
		slog.Warn("Using in-memory counter store, values will not survive restarts")
		store := counter.NewMemoryStore()
		return storeBackend{store: store, health: store, close: func() {}}
	}
}

func runGracefulShutdown(cfg *config.Config, srv *server.Server, actor *counter.Actor) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		actor.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "backend", cfg.CounterBackend)

	backend := setupStore(cfg)
	defer backend.close()

	actor := counter.NewActor(backend.store, clock, cfg.MaxSubscribers)

	srv := server.NewServer(cfg, actor, backend.health)

	done := runGracefulShutdown(cfg, srv, actor)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
