// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

// Command api is the entry point for the Natours HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcin-karbowniczyn/natours/internal/api"
	"github.com/marcin-karbowniczyn/natours/internal/platform/config"
	"github.com/marcin-karbowniczyn/natours/internal/platform/constants"
	"github.com/marcin-karbowniczyn/natours/internal/platform/mailer"
	"github.com/marcin-karbowniczyn/natours/internal/platform/migration"
	pgstore "github.com/marcin-karbowniczyn/natours/internal/platform/postgres"
	redisstore "github.com/marcin-karbowniczyn/natours/internal/platform/redis"
	"github.com/marcin-karbowniczyn/natours/internal/platform/respond"
	"github.com/marcin-karbowniczyn/natours/internal/platform/sec"
	"github.com/marcin-karbowniczyn/natours/internal/platform/storage"
	"github.com/marcin-karbowniczyn/natours/internal/tours/booking"
	"github.com/marcin-karbowniczyn/natours/internal/tours/review"
	"github.com/marcin-karbowniczyn/natours/internal/tours/tour"
	"github.com/marcin-karbowniczyn/natours/internal/users/account"
	"github.com/marcin-karbowniczyn/natours/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("[Natours] service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	// Development mode returns error causes to the client; production hides them.
	respond.Configure(cfg.IsDevelopment())

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Platform Services ──────────────────────────────────────────────
	tokenService, err := sec.NewTokenService(cfg.JWTSecret, constants.AuthIssuer, cfg.JWTExpiresIn)
	must(log, err, "initialize token service")

	// Outbound email: real provider when configured, log-only otherwise.
	var mail mailer.Service
	mail, err = mailer.NewMailerSend(cfg.MailerSendAPIKey, cfg.EmailFromName, cfg.EmailFromAddress)
	if err != nil {
		if !errors.Is(err, mailer.ErrDisabled) {
			must(log, err, "initialize mailer")
		}
		log.Warn("mailer_disabled_using_dev_logger")
		mail = mailer.NewLogMailer(log)
	}

	// Payments: same pattern as email.
	var checkout booking.CheckoutProvider
	checkout, err = booking.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	if err != nil {
		log.Warn("payments_disabled_using_dev_provider")
		checkout = booking.NewDevCheckoutProvider(log)
	}

	photoStore := storage.NewNoopStore(log)

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	userRepository := auth.NewUserRepository(pool)
	verificationTokens := auth.NewVerificationTokenRepository(rdb)
	authService := auth.NewService(userRepository, verificationTokens, tokenService, mail, cfg.PublicBaseURL)
	authHandler := auth.NewHandler(authService, cfg.JWTCookieExpiresDays)

	accountRepository := account.NewAccountRepository(pool)
	favouriteRepository := account.NewFavouriteRepository(pool)
	accountService := account.NewService(accountRepository, favouriteRepository, photoStore, log)
	accountHandler := account.NewHandler(accountService)

	tourRepository := tour.NewPostgresTourRepository(pool)
	tourService := tour.NewService(tourRepository, log)
	tourHandler := tour.NewHandler(tourService)

	bookingRepository := booking.NewPostgresBookingRepository(pool)
	bookingService := booking.NewService(bookingRepository, tourRepository, checkout, userRepository, cfg.PublicBaseURL, log)
	bookingHandler := booking.NewHandler(bookingService)

	reviewService := review.NewService(review.NewPostgresReviewRepository(pool), tourRepository, bookingRepository, log)
	reviewHandler := review.NewHandler(reviewService)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		Account:   accountHandler,
		Tour:      tourHandler,
		Review:    reviewHandler,
		Booking:   bookingHandler,
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	server := api.NewServer(rootCtx, cfg, log, tokenService, authService, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
