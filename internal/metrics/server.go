package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Server exposes the Prometheus registry over HTTP.
type Server struct {
	httpServer *http.Server
	log        *logrus.Logger
}

// NewServer creates a metrics server listening on the given port.
func NewServer(port int, path string, log *logrus.Logger) *Server {
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, Handler())

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.log.WithField("addr", s.httpServer.Addr).Info("Metrics server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("Metrics server failed")
		}
	}()
}

// Shutdown gracefully stops the metrics server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
