// Package health serves the liveness endpoint that container platforms
// probe to decide whether the bot is up.
package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// Body is returned by every health route.
const Body = "Bot is running!"

// Server timeouts.
const (
	ReadTimeout     = 5 * time.Second
	WriteTimeout    = 10 * time.Second
	ShutdownTimeout = 10 * time.Second
)

// NewHandler returns the router serving / and /health.
func NewHandler(logger *zap.Logger) http.Handler {
	router := bunrouter.New()

	handle := func(w http.ResponseWriter, req bunrouter.Request) error {
		logger.Debug("Health check", zap.String("path", req.URL.Path), zap.String("addr", req.RemoteAddr))

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(Body))

		return err
	}

	router.GET("/", handle)
	router.GET("/health", handle)
	router.HEAD("/health", handle)

	return router
}

// Server runs the health endpoint until its context ends.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewServer creates a health server listening on every interface at port.
func NewServer(port int, logger *zap.Logger) *Server {
	logger = logger.Named("health")

	return &Server{
		srv: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      NewHandler(logger),
			ReadTimeout:  ReadTimeout,
			WriteTimeout: WriteTimeout,
		},
		logger: logger,
	}
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}

	return s.Serve(ctx, listener)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("Health server started", zap.String("addr", listener.Addr().String()))

		if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("health server failed: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down health server: %w", err)
	}

	s.logger.Info("Health server stopped")

	return nil
}
