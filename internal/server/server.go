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

	"github.com/zenrelay/zenrelay/internal/config"
	"github.com/zenrelay/zenrelay/internal/handlers"
	"github.com/zenrelay/zenrelay/internal/middleware"
	"github.com/zenrelay/zenrelay/internal/router"
	"github.com/zenrelay/zenrelay/internal/upstream"
)

type Server struct {
	cfg    *config.Config
	routes *router.Table
	logger *slog.Logger
	server *http.Server
}

// New builds the dispatch table and upstream client from the startup
// configuration. Both are immutable afterward.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	client, err := upstream.NewClient(cfg.ProxyURL)
	if err != nil {
		return nil, err
	}

	routes := router.New(cfg)

	mux := http.NewServeMux()
	chain := middleware.New(middleware.NewLoggingMiddleware(logger))
	mux.Handle("/health", handlers.NewHealthHandler(logger))
	mux.Handle("/", chain.Handler(handlers.NewProxyHandler(routes, client, cfg.APIKey, logger)))

	return &Server{
		cfg:    cfg,
		routes: routes,
		logger: logger,
		server: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler: mux,
		},
	}, nil
}

func (s *Server) Start() error {
	s.logger.Info("Starting server",
		"address", s.server.Addr,
		"routes", s.routes.Paths(),
		"openai_upstream", s.cfg.Upstreams.OpenAI,
		"anthropic_upstream", s.cfg.Upstreams.Anthropic,
		"outbound_proxy", s.cfg.ProxyURL,
		"web_search", s.cfg.WebSearch.Enabled,
	)

	// Start server in goroutine
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server error", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	s.logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.logger.Info("Server exited")

	return nil
}

func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}
