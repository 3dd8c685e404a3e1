package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/studio-site/internal/http/middleware"
	"github.com/wolfman30/studio-site/internal/leads"
	"github.com/wolfman30/studio-site/internal/seo"
	"github.com/wolfman30/studio-site/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	LeadsHandler       *leads.Handler
	SEOHandler         *seo.Handler
	OriginGuard        *httpmiddleware.OriginGuard
	RateLimiter        httpmiddleware.Limiter
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.LeadsHandler != nil {
		r.Group(func(lead chi.Router) {
			// Forbidden origins are rejected before they consume rate limit budget.
			if cfg.OriginGuard != nil {
				lead.Use(cfg.OriginGuard.Middleware)
			}
			if cfg.RateLimiter != nil {
				lead.Use(httpmiddleware.RateLimit(cfg.RateLimiter, logger))
			}
			lead.Post("/api/lead", cfg.LeadsHandler.Submit)
		})
	}

	if cfg.SEOHandler != nil {
		r.Get("/api/seo", cfg.SEOHandler.GetMetadata)
		r.Get("/robots.txt", cfg.SEOHandler.Robots)
		r.Get("/sitemap.xml", cfg.SEOHandler.Sitemap)
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
