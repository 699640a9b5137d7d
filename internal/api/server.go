// Package api provides the HTTP API server and handlers for the DefectDesk application.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/defectdesk/defectdesk-server/internal/catalog"
	"github.com/defectdesk/defectdesk-server/internal/http/response"
	"github.com/defectdesk/defectdesk-server/internal/imageproxy"
	"github.com/defectdesk/defectdesk-server/internal/service"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	dashboardService *service.DashboardService
	tableService     *service.TableService
	exportService    *service.ExportService
	submitService    *service.SubmitService
	imageFetcher     *imageproxy.Fetcher
	catalog          *catalog.Catalog
	writeLimiter     *RateLimiter
	proxyLimiter     *RateLimiter
	router           *chi.Mux
	logger           *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(dashboardService *service.DashboardService, tableService *service.TableService, exportService *service.ExportService, submitService *service.SubmitService, imageFetcher *imageproxy.Fetcher, cat *catalog.Catalog, logger *slog.Logger) *Server {
	s := &Server{
		dashboardService: dashboardService,
		tableService:     tableService,
		exportService:    exportService,
		submitService:    submitService,
		imageFetcher:     imageFetcher,
		catalog:          cat,
		// Mutations fan out to the script endpoints, which are slow and
		// quota-bound; keep clients from hammering them.
		writeLimiter: NewRateLimiter(20, time.Minute, 5),
		// The image proxy fetches arbitrary remote bytes per request.
		proxyLimiter: NewRateLimiter(120, time.Minute, 20),
		router:       chi.NewRouter(),
		logger:       logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// Image proxy (consumed directly by <img> tags, outside the envelope).
	s.router.With(RateLimitMiddleware(s.proxyLimiter, s.logger)).
		Get("/api/proxy-image", s.handleProxyImage)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/dashboard", s.handleGetDashboard)
		r.Get("/categories", s.handleListCategories)

		r.Route("/tables/{category}", func(r chi.Router) {
			r.Get("/", s.handleGetTable)
			r.Get("/locate", s.handleLocateRow)
			r.Get("/export", s.handleExportTable)
			r.With(RateLimitMiddleware(s.writeLimiter, s.logger)).
				Put("/rows/{row}", s.handleUpdateRow)
		})

		// Mutations.
		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(s.writeLimiter, s.logger))
			r.Post("/reports", s.handleCreateReport)
			r.Post("/processing", s.handleSubmitProcessing)
		})

		r.Get("/pending", s.handleGetPending)
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}
