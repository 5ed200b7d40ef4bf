package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/vanin2004/orbis-file-storage/internal/httpapi/handlers"
	"github.com/vanin2004/orbis-file-storage/internal/logger"
)

// Server wraps http.Server with the lifecycle the daemon needs: listen
// on a configured host/port, serve until the context is cancelled, then
// shut down gracefully.
type Server struct {
	server       *http.Server
	host         string
	port         int
	shutdownOnce sync.Once
}

// NewServer builds a Server bound to host:port, serving the file
// storage API described by deps.
func NewServer(host string, port int, deps handlers.Deps) *Server {
	router := NewRouter(deps)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		host: host,
		port: port,
	}
}

// Start listens and serves until ctx is cancelled, then shuts down
// gracefully with a 5s timeout.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("http server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("http server failed: %w", err)
	}
}

// Stop shuts the server down gracefully. Safe to call multiple times.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("http server shutdown error: %w", err)
			logger.Error("http server shutdown error", "error", err)
		} else {
			logger.Info("http server stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server listens on.
func (s *Server) Port() int {
	return s.port
}
