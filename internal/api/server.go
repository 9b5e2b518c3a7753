// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api exposes the engine over HTTP. Every engine call is marshalled
// onto the engine's loop.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/playcore/internal/api/middleware"
	"github.com/ManuGH/playcore/internal/engine"
	"github.com/ManuGH/playcore/internal/health"
	"github.com/ManuGH/playcore/internal/log"
)

// Runner runs fn on the goroutine owning the engine and waits for it.
// loop.Loop implements it.
type Runner interface {
	Do(ctx context.Context, fn func()) error
}

// Options configures a Server.
type Options struct {
	Version string
	Stack   middleware.StackConfig
	// MaxBodyBytes caps request bodies. 0 means 1 MiB.
	MaxBodyBytes int64
	// Checks are readiness checks in addition to the loop check.
	Checks []health.Checker
}

// Server is the control API.
type Server struct {
	runner Runner
	eng    *engine.Engine
	opts   Options
	logger zerolog.Logger
	health *health.Manager
	router *chi.Mux
}

// New builds the router. eng must only be touched through runner.
func New(runner Runner, eng *engine.Engine, opts Options) (*Server, error) {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	doc, err := Contract()
	if err != nil {
		return nil, err
	}
	validator, err := newContractValidator(doc, opts.MaxBodyBytes)
	if err != nil {
		return nil, err
	}
	s := &Server{
		runner: runner,
		eng:    eng,
		opts:   opts,
		logger: log.WithComponent("api"),
		health: health.NewManager(opts.Version),
	}
	s.health.Register(health.NewLoopChecker(runner))
	s.health.Register(opts.Checks...)
	s.router = s.routes(validator)
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes(validator *contractValidator) *chi.Mux {
	r := middleware.NewRouter(s.opts.Stack)

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(validator.Middleware)
		r.Get("/openapi.yaml", s.handleContract)
		r.Get("/state", s.handleState)

		r.Get("/items", s.handleListItems)
		r.Post("/items", s.handleAddItems)
		r.Put("/items/current", s.handleSetCurrent)
		r.Delete("/items/{id}", s.handleRemoveItem)

		r.Post("/commands/{name}", s.handleCommand)

		r.Get("/cuepoints", s.handleListCuepoints)
		r.Post("/cuepoints", s.handleAddCuepoint)
		r.Delete("/cuepoints/{id}", s.handleRemoveCuepoint)

		r.Get("/events", s.handleEvents)
	})
	return r
}

// ServeConfig configures Serve.
type ServeConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Serve listens on cfg.Addr until ctx is done, then shuts down gracefully.
// Request contexts derive from ctx, so event streams end with it.
func (s *Server) Serve(ctx context.Context, cfg ServeConfig) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	return s.ServeListener(ctx, ln, cfg)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener, cfg ServeConfig) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: cfg.ReadTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.logger.Info().
		Str(log.FieldEvent, "api.listening").
		Str("addr", ln.Addr().String()).
		Msg("control API listening")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-errCh
	s.logger.Info().Str(log.FieldEvent, "api.stopped").Msg("control API stopped")
	return nil
}

// call runs fn on the loop and writes its result with code.
func (s *Server) call(w http.ResponseWriter, r *http.Request, code int, fn func() (any, error)) {
	var (
		out   any
		fnErr error
	)
	if err := s.runner.Do(r.Context(), func() { out, fnErr = fn() }); err != nil {
		writeError(w, r, err)
		return
	}
	if fnErr != nil {
		writeError(w, r, fnErr)
		return
	}
	writeJSON(w, code, out)
}
