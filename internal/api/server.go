// v0
// internal/api/server.go
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

type Server struct {
	lg   *slog.Logger
	http *http.Server
}

func NewServer(bind string, h http.Handler, lg *slog.Logger) *Server {
	return &Server{lg: lg, http: &http.Server{
		Addr:              bind,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Serve blocks until the listener fails or Stop is called. A graceful stop
// returns nil.
func (s *Server) Serve(ln net.Listener) error {
	s.lg.Info("http_server_listen", "addr", ln.Addr().String())
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Listen() (net.Listener, error) {
	return net.Listen("tcp", s.http.Addr)
}

func (s *Server) Stop(ctx context.Context) error {
	s.lg.Info("http_server_stop")
	return s.http.Shutdown(ctx)
}
