package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stockfolio/performance-backend/internal/api/handlers"
	custommiddleware "github.com/stockfolio/performance-backend/internal/api/middleware"
	"github.com/stockfolio/performance-backend/internal/config"
	"github.com/stockfolio/performance-backend/internal/service"
)

// NewRouter creates and configures the HTTP router. Only operational
// endpoints are served; product reads go through the service layer.
func NewRouter(systemService *service.SystemService, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(systemService)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})
	})

	return r
}
