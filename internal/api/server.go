package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/price-vault-factory/internal/api/handlers"
	"github.com/babylonlabs-io/price-vault-factory/internal/config"
	"github.com/babylonlabs-io/price-vault-factory/internal/services"
)

type Server struct {
	httpServer *http.Server
	handlers   *handlers.Handler
	cfg        *config.ServerConfig
}

func New(cfg *config.ServerConfig, service *services.Service) *Server {
	r := chi.NewRouter()
	r.Use(TracingMiddleware)
	r.Use(ContentLengthMiddleware(maxRequestBodyBytes))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		Handler:      r,
	}

	server := &Server{
		httpServer: srv,
		handlers:   handlers.New(cfg, service),
		cfg:        cfg,
	}
	server.SetupRoutes(r)
	return server
}

func (a *Server) Handler() http.Handler {
	return a.httpServer.Handler
}

func (a *Server) Start() error {
	log.Info().Msgf("Starting server on %s", a.httpServer.Addr)
	if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down api server")
	return a.httpServer.Shutdown(ctx)
}
