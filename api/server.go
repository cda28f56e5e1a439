package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// Server runs the HTTP API in the background
type Server struct {
	server *http.Server
}

// NewServer creates a server for handler on addr
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
		},
	}
}

// Start begins serving. Listen errors after startup are logged.
func (s *Server) Start() {
	go func() {
		log.Infof("HTTP API listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("HTTP API server error: %v", err)
		}
	}()
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx ends
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
