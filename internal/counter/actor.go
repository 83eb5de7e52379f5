package counter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/gyu-don/counter-app/internal/metrics"
)

const (
	storeTimeout   = 2 * time.Second
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
)

// Increment origins for metrics.
const (
	originOneshot   = "oneshot"
	originWebSocket = "websocket"
)

// actorCmd is the command interface for the Actor.
type actorCmd interface{ isActorCmd() }

type baseActorCmd struct{}

func (baseActorCmd) isActorCmd() {}

type valueResult struct {
	value int64
	err   error
}

type incrementCmd struct {
	baseActorCmd
	replyChannel chan valueResult
}

type getValueCmd struct {
	baseActorCmd
	replyChannel chan valueResult
}

type registerCmd struct {
	baseActorCmd
	connection   *websocket.Conn
	errorChannel chan error
}

type unregisterCmd struct {
	baseActorCmd
	connection *websocket.Conn
}

type inboundCmd struct {
	baseActorCmd
	connection *websocket.Conn
	payload    []byte
}

type subscriberCountCmd struct {
	baseActorCmd
	replyChannel chan int
}

type stopCmd struct {
	baseActorCmd
}

type subscriber struct {
	id     uuid.UUID
	writer *subscriberWriter
}

// Actor is the single authoritative owner of the counter value and the
// subscriber set. All state is touched only by the run goroutine.
type Actor struct {
	cmdCh          chan actorCmd
	clock          clockwork.Clock
	store          Store
	subscribers    map[*websocket.Conn]*subscriber
	done           chan struct{}
	maxSubscribers int
}

// NewActor creates the counter actor and starts its command loop.
// store holds the durable value; maxSubscribers caps the broadcast set.
func NewActor(store Store, clock clockwork.Clock, maxSubscribers int) *Actor {
	a := &Actor{
		cmdCh:          make(chan actorCmd, 256),
		clock:          clock,
		store:          store,
		subscribers:    make(map[*websocket.Conn]*subscriber),
		done:           make(chan struct{}),
		maxSubscribers: maxSubscribers,
	}
	go a.run()
	return a
}

// Increment applies value+1 against the store, broadcasts the new value to
// every registered subscriber, and returns it. Concurrent calls are applied
// strictly one after another by the actor loop.
func (a *Actor) Increment() (int64, error) {
	replyCh := make(chan valueResult, 1)
	a.cmdCh <- incrementCmd{replyChannel: replyCh}

	timer := a.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case res := <-replyCh:
		return res.value, res.err
	case <-timer.Chan():
		return 0, fmt.Errorf("increment command timed out after %v", commandTimeout)
	}
}

// Value returns the current persisted value without mutating state.
func (a *Actor) Value() (int64, error) {
	replyCh := make(chan valueResult, 1)
	a.cmdCh <- getValueCmd{replyChannel: replyCh}

	timer := a.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case res := <-replyCh:
		return res.value, res.err
	case <-timer.Chan():
		return 0, fmt.Errorf("value command timed out after %v", commandTimeout)
	}
}

// Register adds a connection to the broadcast set and immediately sends it
// the current value as a snapshot. Fails if the store is unreachable or the
// subscriber cap is hit; the connection is closed on failure.
func (a *Actor) Register(conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	a.cmdCh <- registerCmd{connection: conn, errorChannel: errCh}

	timer := a.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a connection from the broadcast set. Safe to call for
// connections that were never registered or are already gone.
func (a *Actor) Unregister(conn *websocket.Conn) {
	a.cmdCh <- unregisterCmd{connection: conn}
}

// HandleMessage processes one inbound WebSocket frame from a subscriber.
// Recognized commands mutate the counter; everything else is dropped.
func (a *Actor) HandleMessage(conn *websocket.Conn, payload []byte) {
	a.cmdCh <- inboundCmd{connection: conn, payload: payload}
}

// SubscriberCount returns the size of the broadcast set.
// Returns -1 if the command times out.
func (a *Actor) SubscriberCount() int {
	replyCh := make(chan int, 1)
	a.cmdCh <- subscriberCountCmd{replyChannel: replyCh}

	timer := a.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("SubscriberCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts down the actor, sending a close frame to every subscriber.
// Blocks until the actor goroutine has exited or the stop timeout is reached.
func (a *Actor) Stop() {
	a.cmdCh <- stopCmd{}

	timer := a.clock.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-a.done:
		slog.Info("Counter actor stopped gracefully")
	case <-timer.Chan():
		slog.Warn("Counter actor stop timeout exceeded", "timeout", stopTimeout)
		metrics.ActorStopTimeoutsTotal.Inc()
	}
}

func (a *Actor) run() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Counter actor panic recovered", "panic", r)
			metrics.ActorPanicsTotal.Inc()
			a.closeAllSubscribers("counter actor panic")
		}
	}()
	defer close(a.done)

	for cmd := range a.cmdCh {
		switch c := cmd.(type) {
		case incrementCmd:
			value, err := a.applyIncrement(originOneshot)
			c.replyChannel <- valueResult{value: value, err: err}
		case getValueCmd:
			value, err := a.readValue()
			c.replyChannel <- valueResult{value: value, err: err}
		case registerCmd:
			a.handleRegister(c)
		case unregisterCmd:
			a.handleUnregister(c.connection)
		case inboundCmd:
			a.handleInbound(c)
		case subscriberCountCmd:
			c.replyChannel <- len(a.subscribers)
		case stopCmd:
			a.handleStop()
			return
		default:
			slog.Warn("Counter actor received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

// applyIncrement is the serialized read-modify-write-broadcast sequence.
// Only ever called from the run goroutine.
func (a *Actor) applyIncrement(origin string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	value, err := a.store.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read counter: %w", err)
	}

	next := value + 1
	if err := a.store.Put(ctx, next); err != nil {
		return 0, fmt.Errorf("failed to persist counter: %w", err)
	}

	metrics.ActorIncrementsTotal.WithLabelValues(origin).Inc()
	a.broadcast(next)
	return next, nil
}

func (a *Actor) readValue() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	value, err := a.store.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read counter: %w", err)
	}
	return value, nil
}

func (a *Actor) handleRegister(c registerCmd) {
	if len(a.subscribers) >= a.maxSubscribers {
		slog.Warn("Rejecting subscriber: max subscribers reached", "max_subscribers", a.maxSubscribers)
		c.connection.Close()
		c.errorChannel <- fmt.Errorf("max subscribers (%d) reached", a.maxSubscribers)
		return
	}

	// Snapshot comes from the store, not a cached value, so a freshly
	// restarted actor serves the durable state.
	value, err := a.readValue()
	if err != nil {
		slog.Error("Failed to read snapshot for new subscriber", "error", err)
		c.connection.Close()
		c.errorChannel <- err
		return
	}

	snapshot, err := encodeCount(value)
	if err != nil {
		c.connection.Close()
		c.errorChannel <- err
		return
	}

	conn := c.connection
	onDead := func() {
		// Non-blocking: dropping is fine, the read pump unregisters too.
		select {
		case a.cmdCh <- unregisterCmd{connection: conn}:
		default:
		}
	}

	sub := &subscriber{
		id:     uuid.New(),
		writer: newSubscriberWriter(conn, a.clock, onDead),
	}
	a.subscribers[conn] = sub

	// The writer channel is freshly created, so the snapshot always fits and
	// is delivered before any later broadcast.
	sub.writer.sendChannel <- snapshot

	metrics.ActorConnectedSubscribers.Set(float64(len(a.subscribers)))
	slog.Debug("Subscriber registered", "subscriber_id", sub.id.String(), "total_subscribers", len(a.subscribers), "snapshot_value", value)
	c.errorChannel <- nil
}

func (a *Actor) handleUnregister(conn *websocket.Conn) {
	sub, exists := a.subscribers[conn]
	if !exists {
		return
	}

	sub.writer.stop()
	delete(a.subscribers, conn)

	metrics.ActorConnectedSubscribers.Set(float64(len(a.subscribers)))
	slog.Debug("Subscriber unregistered", "subscriber_id", sub.id.String(), "remaining_subscribers", len(a.subscribers))
}

func (a *Actor) handleInbound(c inboundCmd) {
	msg, err := decodeInbound(c.payload)
	if err != nil {
		metrics.ActorDroppedMessagesTotal.WithLabelValues("malformed").Inc()
		slog.Warn("Dropping malformed subscriber message", "error", err)
		return
	}

	switch msg.Type {
	case MessageTypeIncrement:
		if _, err := a.applyIncrement(originWebSocket); err != nil {
			slog.Error("Failed to apply subscriber increment", "error", err)
		}
	default:
		metrics.ActorDroppedMessagesTotal.WithLabelValues("unknown_type").Inc()
		slog.Debug("Dropping message with unknown type", "type", msg.Type)
	}
}

func (a *Actor) broadcast(value int64) {
	if len(a.subscribers) == 0 {
		return
	}

	data, err := encodeCount(value)
	if err != nil {
		slog.Error("Failed to marshal broadcast message", "error", err)
		return
	}

	var slow []*websocket.Conn
	for conn, sub := range a.subscribers {
		select {
		case sub.writer.sendChannel <- data:
		default:
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow subscriber", "subscriber_id", a.subscribers[conn].id.String())
		metrics.ActorSlowSubscribersEvicted.Inc()
		a.handleUnregister(conn)
	}

	metrics.ActorBroadcastsTotal.Inc()
}

func (a *Actor) handleStop() {
	slog.Info("Counter actor shutting down", "subscribers", len(a.subscribers))
	a.closeAllSubscribers("Server shutting down")
}

// closeAllSubscribers closes every subscriber connection with the given
// reason. Used during graceful shutdown and panic recovery.
func (a *Actor) closeAllSubscribers(reason string) {
	for conn, sub := range a.subscribers {
		sub.writer.stopGraceful(reason)
		delete(a.subscribers, conn)
	}
	metrics.ActorConnectedSubscribers.Set(0)
}
