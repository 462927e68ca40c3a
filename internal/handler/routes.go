// Copyright (c) 2025-2026 Cross Point Baptist Church
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/twiztd/cpbc-volunteer-app/internal/auth"
	"github.com/twiztd/cpbc-volunteer-app/internal/middleware"
)

// RouterConfig holds the dependencies needed to build the HTTP router.
type RouterConfig struct {
	DB      *sql.DB
	Tokens  *auth.TokenIssuer
	Handler *Handler
	Logger  *slog.Logger

	// PublicRPS rate limits unauthenticated endpoints per client IP.
	PublicRPS   float64
	PublicBurst int
}

// NewRouter builds the chi router with the full route surface: public signup
// and auth endpoints, authenticated admin endpoints, and health checks.
func NewRouter(cfg RouterConfig) chi.Router {
	h := cfg.Handler

	if cfg.PublicRPS <= 0 {
		cfg.PublicRPS = 5
	}
	if cfg.PublicBurst <= 0 {
		cfg.PublicBurst = 10
	}
	publicLimit := middleware.NewGlobalRateLimiter(cfg.PublicRPS, cfg.PublicBurst)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(chimw.Recoverer)

	healthHandler := NewHealthHandler(cfg.DB)
	r.Get("/", healthHandler.Health)
	r.Get("/healthz", healthHandler.Health)
	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	// Public endpoints
	r.Group(func(r chi.Router) {
		r.Use(publicLimit.Middleware())

		r.Post("/api/volunteers", h.SubmitVolunteer)
		r.Get("/api/ministry-areas", h.MinistryAreas)

		r.With(h.login.Middleware()).Post("/api/admin/login", h.Login)
		r.Post("/api/admin/forgot-password", h.ForgotPassword)
		r.Post("/api/admin/reset-password", h.ResetPassword)
	})

	// Authenticated admin endpoints
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(cfg.Tokens, h.admins))

		r.Get("/health", healthHandler.HealthDetailed)

		r.Get("/volunteers", h.ListVolunteers)
		r.Get("/volunteers/{id}", h.GetVolunteer)
		r.Delete("/volunteers/{id}", h.DeleteVolunteer)
		r.Put("/volunteers/{id}/ministries", h.ReplaceMinistries)
		r.Get("/volunteers/{id}/notes", h.ListNotes)
		r.Post("/volunteers/{id}/notes", h.AddNote)

		r.Get("/reports/export", h.ExportVolunteers)

		r.Get("/users", h.ListAdmins)
		r.Patch("/users/{id}", h.UpdateAdmin)

		// Super admin only
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSuperAdmin())
			r.Post("/users", h.CreateAdmin)
			r.Post("/users/{id}/transfer-super-admin", h.TransferSuperAdmin)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteNotFound(w, "Route not found")
	})

	return r
}
