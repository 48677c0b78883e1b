// Package httpserver wraps http.Server with configured timeouts and
// graceful shutdown.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/taskpom/taskpom/internal/config"
	"github.com/taskpom/taskpom/pkg/logger"
)

// Server is the HTTP listener for the API.
type Server struct {
	srv *http.Server
	log *logger.Logger
}

// New builds a server from configuration.
func New(cfg config.ServerConfig, log *logger.Logger, handler http.Handler) *Server {
	if log == nil {
		log = logger.NewDefault("httpserver")
	}

	readTimeout := time.Duration(cfg.ReadTimeout) * time.Second
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}
	writeTimeout := time.Duration(cfg.WriteTimeout) * time.Second
	if writeTimeout <= 0 {
		writeTimeout = 15 * time.Second
	}

	return &Server{
		srv: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  60 * time.Second,
		},
		log: log,
	}
}

// Start begins serving. Blocks until the listener stops.
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown drains connections and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Addr returns the configured bind address.
func (s *Server) Addr() string {
	return s.srv.Addr
}
