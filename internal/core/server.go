// Package core provides the API chassis for the TrailWatch service. It
// creates a chi router and enforces the cross-cutting concerns -- panic
// recovery, request correlation, logging, security headers -- before requests
// reach the domain handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RouteRegistrar mounts one domain handler's routes under /v1. Registrars are
// populated by the application entry point; the indirection avoids import
// cycles between core and handler packages.
type RouteRegistrar func(r chi.Router)

// Server holds the API's cross-cutting dependencies. Domain handlers receive
// their own dependencies directly and only rely on core for the chassis.
type Server struct {
	Logger            *slog.Logger
	HealthProbes      []HealthProbe
	V1RouteRegistrars []RouteRegistrar

	router *chi.Mux

	// closers run during Shutdown, in registration order.
	closers []func(ctx context.Context) error
}

// NewServer prepares the router. The caller mounts routes via MountRoutes
// after registering handlers.
func NewServer(logger *slog.Logger) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	return &Server{
		Logger: logger,
		router: chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration in tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// OnShutdown registers a cleanup function to run during Shutdown.
func (s *Server) OnShutdown(fn func(ctx context.Context) error) {
	s.closers = append(s.closers, fn)
}

// Shutdown runs the registered cleanup functions. The first error is
// returned; later closers still run.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	var firstErr error
	for _, fn := range s.closers {
		if err := fn(ctx); err != nil {
			s.Logger.Error("shutdown cleanup failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	s.Logger.Info("server shutdown complete")
	return firstErr
}
