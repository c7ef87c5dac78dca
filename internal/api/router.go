package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/resumeprocessor/internal/api/handlers"
	"github.com/nikhilbhutani/resumeprocessor/internal/api/middleware"
	"github.com/nikhilbhutani/resumeprocessor/internal/auth"
	"github.com/nikhilbhutani/resumeprocessor/internal/config"
)

// Deps are the services the HTTP layer serves.
type Deps struct {
	Resumes    handlers.ResumeService
	Dispatcher handlers.Dispatcher
	// Checks run on /readyz, keyed by dependency name.
	Checks map[string]handlers.Check
}

type Router struct {
	mux  *chi.Mux
	cfg  *config.Config
	deps Deps
	rl   *middleware.RateLimiter
}

func NewRouter(cfg *config.Config, deps Deps) *Router {
	return &Router{
		mux:  chi.NewRouter(),
		cfg:  cfg,
		deps: deps,
		rl:   middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
	}
}

// Start runs background upkeep until ctx is done.
func (rt *Router) Start(ctx context.Context) {
	go rt.rl.Cleanup(ctx)
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.Server.CORSOrigins))
	r.Use(rt.rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.deps.Checks)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	r.Route("/api/v1", func(r chi.Router) {
		// Event Grid authenticates with its own shared secret.
		eventH := handlers.NewEventGridHandler(rt.deps.Dispatcher, rt.cfg.Auth.EventGridSecret)
		r.Post("/webhooks/eventgrid", eventH.Handle)

		r.Group(func(r chi.Router) {
			if rt.cfg.Auth.RequireJWT {
				r.Use(auth.NewJWTMiddleware(rt.cfg.Auth.JWTSecret).Authenticate)
			}

			resumeH := handlers.NewResumeHandler(rt.deps.Resumes, rt.cfg.Intake.MaxUploadBytes)
			r.Route("/resumes", func(r chi.Router) {
				r.Post("/upload", resumeH.Upload)
				r.Get("/", resumeH.List)
				r.Get("/{id}", resumeH.Get)
				r.Post("/{id}/process", resumeH.Process)
				r.Delete("/{id}", resumeH.Delete)
			})
		})
	})

	return r
}
