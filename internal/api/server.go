// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/marcin-karbowniczyn/natours/internal/platform/config"
	"github.com/marcin-karbowniczyn/natours/internal/platform/constants"
	"github.com/marcin-karbowniczyn/natours/internal/platform/middleware"
	"github.com/marcin-karbowniczyn/natours/internal/platform/sec"
	"github.com/marcin-karbowniczyn/natours/internal/tours/booking"
	"github.com/marcin-karbowniczyn/natours/internal/tours/review"
	"github.com/marcin-karbowniczyn/natours/internal/tours/tour"
	"github.com/marcin-karbowniczyn/natours/internal/users/account"
	"github.com/marcin-karbowniczyn/natours/internal/users/auth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
//
// # Usage
//
// New domains add a field here — no other change to server.go is required.
type Handlers struct {
	// Liveness is the /health handler — always returns 200 if process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler — returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Auth handles credential routes (signup, login, password flows).
	Auth *auth.Handler

	// Account handles the profile surface and the admin user directory.
	Account *account.Handler

	// Tour handles the tour catalogue.
	Tour *tour.Handler

	// Review handles tour reviews, nested under the catalogue.
	Review *review.Handler

	// Booking handles bookings, checkout and payment fulfilment.
	Booking *booking.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(
	context context.Context,
	cfg *config.Config,
	log *slog.Logger,
	verifier middleware.TokenVerifier,
	loader middleware.PrincipalLoader,
	h Handlers,
) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(context))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Route Guards
	// Built once and shared by every route group.
	protect := middleware.Protect(verifier, loader)
	softAuth := middleware.IsLoggedIn(verifier, loader)
	restrictAdmin := middleware.RestrictTo(sec.RoleAdmin)
	restrictManagers := middleware.RestrictTo(sec.RoleAdmin, sec.RoleLeadGuide)
	restrictTravellers := middleware.RestrictTo(sec.RoleUser)
	restrictAuthors := middleware.RestrictTo(sec.RoleUser, sec.RoleAdmin)

	// # Infrastructure Endpoints
	// Unauthenticated health probes for container orchestration.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # Payment Webhook
	// Mounted outside /api/v1: it carries a provider signature instead of a
	// session and must see the raw body.
	r.Post(constants.PathWebhookCheckout, h.Booking.Webhook)

	// # Application API
	// Domain-specific route groups mounted under versioned prefix.
	r.Route("/api/v1", func(api chi.Router) {

		// Credential and profile routes share the /users prefix
		usersRouter := h.Auth.Routes(protect)
		h.Account.Mount(usersRouter, protect, restrictAdmin)
		api.Mount("/users", usersRouter)

		// Reviews nest under the tour they belong to
		toursRouter := h.Tour.Routes(softAuth, protect, restrictManagers)
		toursRouter.Mount("/{tourID}/reviews", h.Review.Routes(protect, restrictTravellers, restrictAuthors))
		api.Mount("/tours", toursRouter)

		api.Mount("/bookings", h.Booking.Routes(protect, restrictManagers))
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
