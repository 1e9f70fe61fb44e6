// Package web owns the HTTP listener shared by the WebSocket endpoint and the
// administrative surface.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/webitel/im-relay-service/config"
	"go.uber.org/fx"
)

type Server struct {
	logger *slog.Logger
	router chi.Router
	http   *http.Server
}

func NewServer(cfg *config.Config, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	return &Server{
		logger: logger,
		router: r,
		http: &http.Server{
			Addr:    cfg.Listen,
			Handler: r,
			// Read/write timeouts are deliberately absent: WebSocket connections
			// are hijacked and long-lived. Only the handshake is bounded.
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Router exposes the mux so handler modules can register their routes.
func (s *Server) Router() chi.Router {
	return s.router
}

var Module = fx.Module("web-server",
	fx.Provide(NewServer),
	fx.Invoke(func(lc fx.Lifecycle, s *Server) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go func() {
					s.logger.Info("http server listening", "addr", s.http.Addr)
					if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						s.logger.Error("http server stopped", "error", err)
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return s.http.Shutdown(ctx)
			},
		})
	}),
)
