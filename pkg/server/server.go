package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/m-mizutani/veostudio/pkg/adapter"
)

// Config carries everything the forwarding endpoints need. The API
// credential never leaves the adapter; handlers only see the interface.
type Config struct {
	Addr       string
	GenAI      adapter.GenAI
	ImageModel string
	VideoModel string
	Logger     *slog.Logger
	StartTime  time.Time
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

func New(cfg Config) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
