package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/gyu-don/counter-app/internal/config"
	"github.com/gyu-don/counter-app/internal/counter"
	apperrors "github.com/gyu-don/counter-app/internal/errors"
)

// storeHealthChecker is the minimal interface the readiness check needs from
// the counter store backend.
type storeHealthChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	actor       *counter.Actor
	storeHealth storeHealthChecker
	startTime   time.Time
}

func NewServer(cfg *config.Config, actor *counter.Actor, storeHealth storeHealthChecker) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:        e,
		config:      cfg,
		actor:       actor,
		storeHealth: storeHealth,
		startTime:   time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
