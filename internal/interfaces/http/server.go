package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/turtacn/forgeff/internal/infrastructure/monitoring/logging"
)

// Server wraps the API router in an http.Server with graceful shutdown.
type Server struct {
	srv *http.Server
	log logging.Logger
}

func NewServer(port int, handler http.Handler, log logging.Logger) *Server {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Server{
		log: log.Named("http_server"),
		srv: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Minute, // fits executed synchronously can be slow
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start blocks serving requests until Stop is called.
func (s *Server) Start() error {
	s.log.Info("http server listening", logging.String("addr", s.srv.Addr))
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop drains in-flight requests and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("http server stopped")
	return nil
}
