package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	apperrors "github.com/gyu-don/counter-app/internal/errors"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // counter pages are public, browser clients connect from anywhere
	},
}

// handleIncrement is the one-shot increment call. The response reflects the
// value after applying the increment.
func (s *Server) handleIncrement(c echo.Context) error {
	value, err := s.actor.Increment()
	if err != nil {
		return apperrors.InternalError("failed to increment counter", err)
	}

	if err := c.JSON(http.StatusOK, map[string]int64{"count": value}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// handleValue is the one-shot query call. Does not mutate the counter.
func (s *Server) handleValue(c echo.Context) error {
	value, err := s.actor.Value()
	if err != nil {
		return apperrors.InternalError("failed to read counter", err)
	}

	if err := c.JSON(http.StatusOK, map[string]int64{"count": value}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade WebSocket: %w", err)
	}

	if err := s.actor.Register(conn); err != nil {
		slog.Warn("Failed to register subscriber", "error", err)
		return nil
	}

	// Read pump: forward every inbound frame to the actor until the
	// connection closes or errors.
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.actor.HandleMessage(conn, payload)
	}

	s.actor.Unregister(conn)

	return nil //nolint:nilerr // ReadMessage err is block-scoped; outer err is nil
}
