package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mgoffin/authgate/internal/auth/oidc"
	"github.com/mgoffin/authgate/internal/config"
	"github.com/mgoffin/authgate/internal/store"
)

type Server struct {
	cfg        *config.Config
	store      store.Store
	provider   *oidc.Client
	logger     *slog.Logger
	httpServer *http.Server
}

func New(cfg *config.Config, st store.Store, provider *oidc.Client, logger *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		store:    st,
		provider: provider,
		logger:   logger,
	}
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      s.setupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			"host", s.cfg.Server.Host,
			"port", s.cfg.Server.Port,
			"base_url", s.cfg.Server.BaseURL,
		)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig)
		return s.Shutdown()
	}
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("shutting down server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("error during server shutdown", "error", err)
		return err
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing session store", "error", err)
	}

	s.logger.Info("server shutdown complete")
	return nil
}
