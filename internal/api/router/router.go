package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/leadradar/internal/apperror"
	"github.com/wolfman30/leadradar/internal/forms"
	"github.com/wolfman30/leadradar/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/leadradar/internal/http/middleware"
	"github.com/wolfman30/leadradar/internal/leads"
	"github.com/wolfman30/leadradar/pkg/logging"
)

var (
	errRouteNotFound    = apperror.NotFound("NOT_FOUND", "Route not found")
	errMethodNotAllowed = &apperror.Error{Status: http.StatusMethodNotAllowed, Code: "METHOD_NOT_ALLOWED", Message: "Method not allowed"}
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	FormsHandler       *forms.Handler
	LeadsHandler       *leads.Handler
	HealthHandler      *handlers.HealthHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// LeadRateLimiter throttles public lead submissions per client IP (optional).
	LeadRateLimiter httpmiddleware.Limiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apperror.Write(w, r, nil, errRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apperror.Write(w, r, nil, errMethodNotAllowed)
	})

	// Public endpoints (health, metrics, lead submission)
	r.Group(func(public chi.Router) {
		if cfg.HealthHandler != nil {
			public.Get("/api/health", cfg.HealthHandler.Check)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.LeadsHandler != nil {
			public.Route("/api/leads", func(r chi.Router) {
				if cfg.LeadRateLimiter != nil {
					r.Use(httpmiddleware.RateLimit(cfg.LeadRateLimiter, logger))
				}
				cfg.LeadsHandler.PublicRoutes(r)
			})
		}
	})

	// Admin routes
	r.Route("/api/admin", func(admin chi.Router) {
		if cfg.FormsHandler != nil {
			admin.Route("/forms", cfg.FormsHandler.Routes)
		}
		if cfg.LeadsHandler != nil {
			admin.Route("/leads", cfg.LeadsHandler.AdminRoutes)
		}
	})

	return r
}
