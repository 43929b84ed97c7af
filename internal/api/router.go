package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/pdfprecheck/internal/api/handlers"
	"github.com/nikhilbhutani/pdfprecheck/internal/api/middleware"
	"github.com/nikhilbhutani/pdfprecheck/internal/auth"
	"github.com/nikhilbhutani/pdfprecheck/internal/config"
	"github.com/nikhilbhutani/pdfprecheck/internal/runs"
	"github.com/nikhilbhutani/pdfprecheck/internal/storage"
	"github.com/nikhilbhutani/pdfprecheck/internal/web"
)

// Deps are the services the router wires into handlers. Checks feed /readyz.
type Deps struct {
	Precheck handlers.Processor
	Batches  handlers.BatchStore
	Queue    handlers.Enqueuer
	Storage  storage.Storage
	Runs     runs.Store
	Pages    *web.Renderer
	Checks   map[string]handlers.Pinger
}

type Router struct {
	mux  *chi.Mux
	cfg  *config.Config
	deps Deps
	auth *auth.Authenticator
}

func NewRouter(cfg *config.Config, deps Deps) *Router {
	return &Router{
		mux:  chi.NewRouter(),
		cfg:  cfg,
		deps: deps,
		auth: auth.NewAuthenticator(cfg.Auth),
	}
}

func (rt *Router) Setup(ctx context.Context) http.Handler {
	r := rt.mux
	maxBytes := rt.cfg.Server.MaxUploadBytes

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.Server.CORSOrigins, rt.cfg.Auth.APIKeyHeader))

	rl := middleware.NewRateLimiter(ctx, rt.cfg.Server.RateLimitRPS, rt.cfg.Server.RateLimitBurst)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.deps.Checks)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Browser flow
	if rt.deps.Pages != nil {
		uiH := handlers.NewUIHandler(rt.deps.Precheck, rt.deps.Pages, maxBytes)
		r.Get("/", uiH.Index)
		r.Post("/upload", uiH.Upload)
		r.Post("/download", uiH.Download)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.auth.Authenticate)

		precheckH := handlers.NewPrecheckHandler(rt.deps.Precheck, maxBytes)
		r.Route("/precheck", func(r chi.Router) {
			r.Post("/", precheckH.Generate)
			r.Post("/download", precheckH.Download)
		})
		r.Post("/filenames/parse", precheckH.ParseFilenames)

		if rt.deps.Batches != nil && rt.deps.Queue != nil {
			batchH := handlers.NewBatchHandler(rt.deps.Batches, rt.deps.Storage, rt.cfg.Storage.Bucket, rt.deps.Queue, maxBytes)
			r.Route("/batches", func(r chi.Router) {
				r.Post("/", batchH.Create)
				r.Get("/{id}", batchH.Get)
				r.Get("/{id}/download", batchH.Download)
			})
		}

		runsStore := rt.deps.Runs
		if runsStore == nil {
			runsStore = runs.NopStore{}
		}
		runH := handlers.NewRunHandler(runsStore)
		r.Get("/runs", runH.List)
	})

	return r
}
