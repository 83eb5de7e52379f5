// Package client is a Go client for the counter service.
//
// One-shot calls go over plain HTTP; Watch maintains a realtime WebSocket
// subscription with a fixed-backoff reconnect loop that never gives up. After
// every reconnect the server's snapshot message is authoritative, so callers
// just consume the stream of values.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	defaultReconnectBackoff = 2 * time.Second
	defaultRequestTimeout   = 10 * time.Second
)

type countResponse struct {
	Count int64 `json:"count"`
}

type countMessage struct {
	Type  string `json:"type"`
	Value int64  `json:"value"`
}

// Option configures a Client.
type Option func(*Client)

// WithReconnectBackoff overrides the fixed delay between reconnect attempts.
func WithReconnectBackoff(backoff time.Duration) Option {
	return func(c *Client) { c.backoff = backoff }
}

// WithHTTPClient overrides the HTTP client used for one-shot calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithClock overrides the clock, for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// Client talks to one counter service instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer
	clock      clockwork.Clock
	backoff    time.Duration
}

// New creates a client for the service at baseURL (e.g. "http://localhost:8080").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		dialer:     websocket.DefaultDialer,
		clock:      clockwork.NewRealClock(),
		backoff:    defaultReconnectBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Increment performs a one-shot increment and returns the value after
// applying it. Delivery is not deduplicated server-side: retrying after an
// ambiguous failure may count twice.
func (c *Client) Increment(ctx context.Context) (int64, error) {
	return c.oneShot(ctx, http.MethodPost, "/counter/increment")
}

// Value returns the current counter value without mutating it.
func (c *Client) Value(ctx context.Context) (int64, error) {
	return c.oneShot(ctx, http.MethodGet, "/counter")
}

func (c *Client) oneShot(ctx context.Context, method, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	var body countResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	return body.Count, nil
}

// Watch subscribes to counter updates. The returned channel receives the
// snapshot value on every (re)connect and every broadcast value afterwards.
// On connection loss Watch retries after a fixed backoff, without limit,
// until ctx is cancelled; the channel is closed when the context ends.
func (c *Client) Watch(ctx context.Context) (<-chan int64, error) {
	wsURL, err := c.websocketURL()
	if err != nil {
		return nil, err
	}

	updates := make(chan int64)
	go c.watchLoop(ctx, wsURL, updates)
	return updates, nil
}

func (c *Client) watchLoop(ctx context.Context, wsURL string, updates chan<- int64) {
	defer close(updates)

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			slog.Debug("Counter watch dial failed, retrying", "error", err, "backoff", c.backoff)
			if !c.sleep(ctx) {
				return
			}
			continue
		}

		c.readUpdates(ctx, conn, updates)
		_ = conn.Close()

		// Fixed backoff before re-establishing; the next snapshot replaces
		// anything the caller saw before the drop.
		if !c.sleep(ctx) {
			return
		}
	}
}

// readUpdates forwards count messages until the connection or context dies.
func (c *Client) readUpdates(ctx context.Context, conn *websocket.Conn, updates chan<- int64) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg countMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			slog.Debug("Ignoring malformed server message", "error", err)
			continue
		}
		if msg.Type != "count" {
			continue
		}

		select {
		case updates <- msg.Value:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) sleep(ctx context.Context) bool {
	timer := c.clock.NewTimer(c.backoff)
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Client) websocketURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}
