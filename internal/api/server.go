// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package api exposes the auth service over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/auth"
	"github.com/wardenauth/warden/internal/observability"
)

// Config holds the dependencies of a Server.
type Config struct {
	Service *auth.Service

	// Optional.
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Server serves the HTTP API.
type Server struct {
	echo       *echo.Echo
	svc        *auth.Service
	metrics    *observability.Metrics
	logger     *slog.Logger
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer builds the API and registers its routes.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, oops.Code("API_CONFIG_INVALID").Errorf("auth service is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		svc:     cfg.Service,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
	e.HTTPErrorHandler = s.handleError

	if s.metrics != nil {
		e.Use(s.recordMetrics)
	}
	e.Use(s.recoverPanics)
	s.routes()

	return s, nil
}

func (s *Server) routes() {
	s.echo.GET("/health", health)

	v1 := s.echo.Group("/v1")
	v1.POST("/login", s.login)
	v1.GET("/permissions/:role/:action", s.checkPermission)

	authed := v1.Group("", s.requireSession)
	authed.GET("/session", s.getSession)
	authed.DELETE("/session", s.deleteSession)
	authed.POST("/actions/:action", s.runAction)
}

// Handler returns the API as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr and serves in the background. The returned channel
// receives a serve error, if any, and is closed when the server stops.
func (s *Server) Start(addr string) (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", addr).Wrap(err)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := s.httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts the server down. Stopping a stopped server is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.running.Store(true)
		return oops.With("operation", "shutdown_api_server").Wrap(err)
	}
	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the listen address, or "" if the server never started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
