// Package api provides the HTTP interface to the analysis pipeline.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/pipeline"
	"github.com/opensource-finance/harrier/internal/screening"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, svc *pipeline.Service, repo domain.Repository, cache domain.Cache, engine *screening.Engine, version string) *Server {
	handler := NewHandler(svc, repo, cache, engine, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints (no tenant required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// API routes (tenant required)
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(TenantMiddleware)

		// Ingest
		r.Post("/transactions", handler.IngestTransaction)
		r.Post("/transactions/batch", handler.IngestBatch)
		r.Post("/transactions/synthetic", handler.GenerateSynthetic)
		r.Get("/transactions/{id}", handler.GetTransaction)
		r.Get("/transactions/{id}/screenings", handler.GetScreenings)

		// Analysis pipeline
		r.Post("/analyze", handler.Analyze)
		r.Get("/profiles", handler.ListProfiles)
		r.Get("/profiles/{account}", handler.GetProfile)
		r.Get("/anomalies", handler.ListAnomalies)
		r.Get("/report", handler.GetReport)

		// Supervised model
		r.Post("/model/train", handler.TrainModel)
		r.Post("/model/predict", handler.PredictTransaction)
		r.Post("/model/save", handler.SaveModel)
		r.Post("/model/restore", handler.RestoreModel)
		r.Post("/model/ensure", handler.EnsureModel)

		// Screening rule management
		r.Get("/rules", handler.ListRules)
		r.Get("/rules/{id}", handler.GetRule)
		r.Post("/rules", handler.CreateRule)
		r.Delete("/rules/{id}", handler.DeleteRule)
		r.Post("/rules/reload", handler.ReloadRules)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
