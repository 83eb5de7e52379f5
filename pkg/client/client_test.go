package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyu-don/counter-app/internal/config"
	"github.com/gyu-don/counter-app/internal/counter"
	"github.com/gyu-don/counter-app/internal/server"
)

// newTestService spins up the real gateway + actor on a memory store.
func newTestService(t *testing.T) string {
	t.Helper()

	store := counter.NewMemoryStore()
	actor := counter.NewActor(store, clockwork.NewRealClock(), 100)
	t.Cleanup(func() { actor.Stop() })

	cfg := &config.Config{
		AppEnv:         "test",
		Port:           "0",
		CounterBackend: config.BackendMemory,
		MaxSubscribers: 100,
	}
	srv := server.NewServer(cfg, actor, store)

	httpSrv := httptest.NewServer(srv.Handler())
	t.Cleanup(httpSrv.Close)

	return httpSrv.URL
}

func receiveValue(t *testing.T, updates <-chan int64) int64 {
	t.Helper()
	select {
	case value, ok := <-updates:
		require.True(t, ok, "updates channel closed unexpectedly")
		return value
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for counter update")
		return 0
	}
}

func TestClient_OneShotCalls(t *testing.T) {
	c := New(newTestService(t))
	ctx := context.Background()

	value, err := c.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), value)

	value, err = c.Increment(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), value)

	value, err = c.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), value)
}

func TestClient_WatchReceivesSnapshotAndUpdates(t *testing.T) {
	baseURL := newTestService(t)
	c := New(baseURL)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	updates, err := c.Watch(ctx)
	require.NoError(t, err)

	// Snapshot first.
	assert.Equal(t, int64(0), receiveValue(t, updates))

	value, err := c.Increment(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), value)

	assert.Equal(t, int64(1), receiveValue(t, updates))
}

func TestClient_WatchClosesOnCancel(t *testing.T) {
	c := New(newTestService(t))

	ctx, cancel := context.WithCancel(context.Background())
	updates, err := c.Watch(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(0), receiveValue(t, updates))

	cancel()

	select {
	case _, ok := <-updates:
		assert.False(t, ok, "updates channel should close after cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("updates channel did not close after cancel")
	}
}

func TestClient_WatchReconnectsAfterFailures(t *testing.T) {
	store := counter.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), 3))

	actor := counter.NewActor(store, clockwork.NewRealClock(), 100)
	t.Cleanup(func() { actor.Stop() })

	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	// Reject the first two connection attempts, then behave.
	var attempts atomic.Int32
	httpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" {
			http.NotFound(w, r)
			return
		}
		if attempts.Add(1) <= 2 {
			http.Error(w, "not yet", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if err := actor.Register(conn); err != nil {
			conn.Close()
			return
		}
		go func() {
			defer actor.Unregister(conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					break
				}
			}
		}()
	}))
	t.Cleanup(httpSrv.Close)

	c := New(httpSrv.URL, WithReconnectBackoff(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	updates, err := c.Watch(ctx)
	require.NoError(t, err)

	// The snapshot from the surviving connection is authoritative.
	assert.Equal(t, int64(3), receiveValue(t, updates))
	assert.GreaterOrEqual(t, attempts.Load(), int32(3))
}

func TestClient_OneShotErrorStatus(t *testing.T) {
	httpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(httpSrv.Close)

	c := New(httpSrv.URL)

	_, err := c.Increment(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}

func TestClient_RejectsUnsupportedScheme(t *testing.T) {
	c := New("ftp://localhost")
	_, err := c.Watch(context.Background())
	require.Error(t, err)
}
