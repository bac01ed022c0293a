// Package server exposes the generated site over HTTP for local preview.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/goliatone/go-sitegen/internal/logging"
	"github.com/goliatone/go-sitegen/pkg/interfaces"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const defaultAddr = ":8080"

// ErrDirRequired indicates the server was configured without a directory to serve.
var ErrDirRequired = errors.New("server: output directory is required")

// Config controls the preview listener.
type Config struct {
	// Addr is the listen address, defaulting to ":8080".
	Addr string
	// Dir is the generated output directory to serve.
	Dir string
}

// Server serves a generated site directory for preview.
type Server struct {
	cfg    Config
	logger interfaces.Logger
	echo   *echo.Echo
}

// New wires an echo instance that serves the output directory at the site
// root. Directory requests fall through to their index.html, matching the
// routes the generator writes.
func New(cfg Config, logger interfaces.Logger) (*Server, error) {
	cfg.Dir = strings.TrimSpace(cfg.Dir)
	if cfg.Dir == "" {
		return nil, ErrDirRequired
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = defaultAddr
	}
	if logger == nil {
		logger = logging.NoOp()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("server.request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
			)
			return nil
		},
	}))
	e.Static("/", cfg.Dir)

	return &Server{
		cfg:    cfg,
		logger: logger,
		echo:   e,
	}, nil
}

// Start blocks serving requests until Shutdown is called or the listener
// fails. A graceful shutdown is reported as nil.
func (s *Server) Start() error {
	s.logger.Info("server.started", "addr", s.cfg.Addr, "dir", s.cfg.Dir)
	if err := s.echo.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener, waiting for in-flight requests up to the
// context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.logger.Info("server.stopping")
	return s.echo.Shutdown(ctx)
}
