package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)

	// One-shot counter operations
	s.echo.POST("/counter/increment", s.handleIncrement)
	s.echo.GET("/counter", s.handleValue)

	// Realtime subscriber endpoint
	s.echo.GET("/ws", s.handleWebSocket)

	// Everything else falls through to Echo's 404.
}
