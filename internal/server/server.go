package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/STRATINT/zonewatch/internal/config"
)

// Server represents the HTTP server hosting the API and live streams.
type Server struct {
	cfg    config.ServerConfig
	logger *slog.Logger
	http   *http.Server
}

// Option configures a Server.
type Option func(*http.Server)

// OnShutdown registers fn to run when shutdown begins. Shutdown never cancels
// request contexts, so open event streams must be ended here.
func OnShutdown(fn func()) Option {
	return func(srv *http.Server) {
		srv.RegisterOnShutdown(fn)
	}
}

// New constructs a Server with sane defaults. When cfg.StaticDir is set the
// dashboard build is served for every non-API path.
func New(cfg config.ServerConfig, logger *slog.Logger, handler http.Handler, opts ...Option) *Server {
	if cfg.StaticDir != "" {
		handler = SPAMiddleware(handler, cfg.StaticDir)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	for _, opt := range opts {
		opt(srv)
	}

	return &Server{
		cfg:    cfg,
		logger: logger.With("component", "server"),
		http:   srv,
	}
}

// Run listens on the configured port and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", ln.Addr().String())
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if err := s.Shutdown(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	return <-errCh
}

// Shutdown gracefully terminates the server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down server")
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
