package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ludarr/ludarr/internal/api/handlers"
	"github.com/ludarr/ludarr/internal/api/middleware"
	"github.com/ludarr/ludarr/internal/config"
	"github.com/ludarr/ludarr/internal/enricher"
	"github.com/ludarr/ludarr/internal/models"
)

// Server represents the HTTP server
type Server struct {
	server   *http.Server
	db       *models.Database
	enricher *enricher.Enricher
	logger   *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, db *models.Database, e *enricher.Enricher, logger *logrus.Logger) *Server {
	s := &Server{
		db:       db,
		enricher: e,
		logger:   logger,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux, cfg)

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      middleware.Logging(mux, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // a full library refresh can fan out to every source
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux, cfg *config.Config) {
	healthHandler := handlers.NewHealthHandler(s.db, s.logger)
	mux.HandleFunc("/health", healthHandler.ServeHTTP)

	libraryTTL := time.Duration(cfg.LibraryCacheTTL) * time.Minute
	libraryHandler := handlers.NewLibraryHandler(s.db, s.enricher, libraryTTL, s.logger)
	mux.HandleFunc("/api/library", libraryHandler.List)
	mux.HandleFunc("/api/library/refresh", libraryHandler.Refresh)

	cacheHandler := handlers.NewCacheHandler(s.enricher, libraryHandler.Invalidate, s.logger)
	mux.HandleFunc("/api/cache/stats", cacheHandler.Stats)
	mux.HandleFunc("/api/cache", cacheHandler.Clear)
	mux.HandleFunc("/api/cache/", cacheHandler.Clear)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
