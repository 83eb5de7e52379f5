package counter

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/gyu-don/counter-app/internal/metrics"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	pongDeadline      = 60 * time.Second
	messageBufferSize = 16
)

// subscriberWriter owns all writes to one WebSocket connection.
// The actor enqueues payloads on sendChannel; a write failure reports the
// connection dead via onDead so the actor can unregister it.
type subscriberWriter struct {
	connection  *websocket.Conn
	clock       clockwork.Clock
	sendChannel chan []byte
	doneChannel chan struct{}
	onDead      func()
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func newSubscriberWriter(connection *websocket.Conn, clock clockwork.Clock, onDead func()) *subscriberWriter {
	sw := &subscriberWriter{
		connection:  connection,
		clock:       clock,
		sendChannel: make(chan []byte, messageBufferSize),
		doneChannel: make(chan struct{}),
		onDead:      onDead,
	}
	sw.configurePongHandler()
	sw.wg.Add(1)
	go sw.run()
	return sw
}

func (sw *subscriberWriter) run() {
	ticker := sw.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer sw.wg.Done()

	for {
		select {
		case msg, ok := <-sw.sendChannel:
			if !ok {
				return
			}
			start := sw.clock.Now()
			sw.updateWriteDeadline()
			if err := sw.connection.WriteMessage(websocket.TextMessage, msg); err != nil {
				sw.notifyDead()
				return
			}
			metrics.WebSocketMessageSendDuration.Observe(sw.clock.Since(start).Seconds())
		case <-ticker.Chan():
			sw.updateWriteDeadline()
			if err := sw.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				metrics.WebSocketPingFailures.Inc()
				sw.notifyDead()
				return
			}
		case <-sw.doneChannel:
			return
		}
	}
}

// stop terminates the writer without a close frame. Used when the peer is
// already gone.
func (sw *subscriberWriter) stop() {
	sw.stopOnce.Do(func() {
		close(sw.doneChannel)
		_ = sw.connection.Close()
	})
	sw.wg.Wait()
}

// stopGraceful sends a WebSocket close frame with reason before closing.
func (sw *subscriberWriter) stopGraceful(reason string) {
	sw.stopOnce.Do(func() {
		// Stop the run goroutine first so the close frame is the only writer.
		close(sw.doneChannel)
		sw.wg.Wait()

		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		sw.updateWriteDeadline()
		_ = sw.connection.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = sw.connection.Close()
	})
}

// notifyDead reports a write failure back to the actor. Must not block:
// the actor may be mid-broadcast on this same writer.
func (sw *subscriberWriter) notifyDead() {
	if sw.onDead != nil {
		sw.onDead()
	}
}

func (sw *subscriberWriter) configurePongHandler() {
	sw.updateReadDeadline()
	sw.connection.SetPongHandler(func(string) error {
		sw.updateReadDeadline()
		return nil
	})
}

func (sw *subscriberWriter) updateWriteDeadline() {
	_ = sw.connection.SetWriteDeadline(sw.clock.Now().Add(writeDeadline))
}

func (sw *subscriberWriter) updateReadDeadline() {
	_ = sw.connection.SetReadDeadline(sw.clock.Now().Add(pongDeadline))
}
