package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upiguard/upiguard/internal/auth"
	"github.com/upiguard/upiguard/internal/config"
	"github.com/upiguard/upiguard/internal/handlers"
	"github.com/upiguard/upiguard/internal/middleware"
	"go.uber.org/zap"
)

// routeDeps is everything the router wires together
type routeDeps struct {
	cfg         *config.Config
	logger      *zap.Logger
	issuer      *auth.Issuer
	rateCounter middleware.Counter

	health    *handlers.HealthHandler
	records   *handlers.RecordHandler
	reports   *handlers.ReportHandler
	activity  *handlers.ActivityHandler
	integrity *handlers.IntegrityHandler
	auth      *handlers.AuthHandler
}

func newRouter(d routeDeps) http.Handler {
	sugar := d.logger.Sugar()
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(d.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Rate limiting
	r.Use(middleware.RateLimit(d.cfg.RateLimitRPM, d.rateCounter, sugar))

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", d.health.Check)
		r.Get("/health/ready", d.health.Ready)

		// Session endpoints
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", d.auth.SignUp)
			r.Post("/login", d.auth.Login)
		})

		// Risk record API consumed by the operator console. Reads are open,
		// writes need a session.
		r.Route("/upi-records", func(r chi.Router) {
			r.Get("/", d.records.List)
			r.Get("/stats", d.records.Stats)
			r.Get("/{id}", d.records.Get)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(d.issuer))
				r.Post("/", d.records.Create)
				r.Put("/{id}", d.records.Update)
				r.Delete("/{id}", d.records.Delete)
			})
		})

		// Fraud reports (session required, scoped to the caller)
		r.Route("/reports", func(r chi.Router) {
			r.Use(middleware.RequireAuth(d.issuer))
			r.Post("/", d.reports.Create)
			r.Get("/", d.reports.List)
			r.Get("/summary", d.reports.Summary)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", d.reports.Get)
				r.Patch("/", d.reports.Update)
				r.Delete("/", d.reports.Delete)
				r.Post("/submit", d.reports.Submit)
				r.Post("/evidence", d.reports.UploadEvidence)
				r.Get("/evidence", d.reports.ListEvidence)
				r.Get("/evidence/manifest", d.integrity.Manifest)
				r.Get("/activity", d.activity.ByReport)
			})
		})

		// Integrity endpoints (Merkle proofs over evidence checksums)
		r.Route("/integrity", func(r chi.Router) {
			r.Post("/verify", d.integrity.Verify)
		})
	})

	return r
}
