package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/artificer-dev/artificer/internal/middleware"
)

// RouterConfig tunes the middleware stack around the handlers.
type RouterConfig struct {
	AllowedOrigin string
	APIKeyHashes  []string
	RateLimiter   *middleware.RateLimiter
	Instrument    func(http.Handler) http.Handler
}

// NewRouter assembles the full HTTP surface: the legacy engine contract at
// the root and the operator API under /api/v1. The auth and rate-limit
// guards run before anything touches the registry.
func NewRouter(h *Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(h.logger))
	r.Use(chimiddleware.Recoverer)
	if cfg.Instrument != nil {
		r.Use(cfg.Instrument)
	}
	if cfg.AllowedOrigin != "" {
		r.Use(CORS(cfg.AllowedOrigin))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Middleware)
	}
	r.Use(middleware.APIKeyAuth(cfg.APIKeyHashes))

	r.Get("/health", h.handleHealth)

	r.Get("/", h.handleEngineGet)
	r.Post("/", h.handleEngineRun)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tools", func(r chi.Router) {
			r.Get("/", h.listTools)
			r.Post("/", h.handleCreateTool)
			r.Post("/{name}/approve", h.handleApproveTool)
			r.Get("/{name}/runs", h.handleToolRuns)
		})
		r.Post("/run", h.handleEngineRun)
	})

	return r
}
