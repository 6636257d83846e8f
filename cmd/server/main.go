// Package main is the entry point for the rehabilitation platform server.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eRom/health-sub001/internal/config"
	"github.com/eRom/health-sub001/internal/database"
	"github.com/eRom/health-sub001/internal/handler"
	"github.com/eRom/health-sub001/internal/handler/web"
	"github.com/eRom/health-sub001/internal/mailer"
	"github.com/eRom/health-sub001/internal/middleware"
	"github.com/eRom/health-sub001/internal/pkg/response"
	"github.com/eRom/health-sub001/internal/repository"
	"github.com/eRom/health-sub001/internal/service"
)

const sessionSweepInterval = time.Hour

func main() {
	// Setup structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Starting rehab server",
		slog.String("environment", cfg.Server.Environment),
		slog.Int("port", cfg.Server.Port),
		slog.Bool("registration_enabled", cfg.Registration.Enabled),
	)

	// Connect to PostgreSQL
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Run migrations
	if err := database.MigrateUp(cfg.Database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Database migrations completed")

	// Connect to Redis
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()
	logger.Info("Connected to Redis")

	// Repositories
	pool := db.Pool()
	tx := database.NewTxManager(pool)
	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	verificationRepo := repository.NewVerificationRepository(pool)
	consentRepo := repository.NewConsentRepository(pool)
	subscriptionRepo := repository.NewSubscriptionRepository(pool)
	associationRepo := repository.NewAssociationRepository(pool)
	exerciseRepo := repository.NewExerciseRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	// Services
	baseURL := cfg.App.BaseURL
	mail := mailer.New(cfg.Email, logger)
	audit := service.NewAuditService(auditRepo)
	authService := service.NewAuthService(userRepo, sessionRepo, audit, cfg.Auth, cfg.Registration, logger)
	oauthService := service.NewOAuthService(cfg.Auth, cfg.Registration, userRepo, sessionRepo, logger)
	resetService := service.NewPasswordResetService(
		tx, userRepo, verificationRepo, sessionRepo,
		service.NewResetLimiter(rdb), mail, audit, baseURL, logger,
	)
	consentService := service.NewConsentService(tx, userRepo, consentRepo, audit, logger)
	profileService := service.NewProfileService(userRepo, audit, logger)
	billingService := service.NewBillingService(subscriptionRepo, service.NewStripeGateway(cfg.Stripe), audit, cfg.Stripe, baseURL, logger)
	associationService := service.NewAssociationService(tx, userRepo, associationRepo, mail, audit, baseURL, logger)
	exerciseService := service.NewExerciseService(exerciseRepo)
	messageService := service.NewMessageService(tx, associationRepo, messageRepo)
	adminService := service.NewAdminService(userRepo, subscriptionRepo, associationRepo, exerciseRepo, audit, logger)
	gate := service.NewAccessGate(billingService, logger)

	cookies := middleware.NewSessionCookies(
		cfg.Auth.SessionSecret,
		int(cfg.Auth.SessionExpiry.Seconds()),
		cfg.Server.Environment == "prod",
	)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, oauthService, resetService, cookies, logger)
	accountHandler := handler.NewAccountHandler(authService, profileService, consentService, cookies, logger)
	billingHandler := handler.NewBillingHandler(billingService, baseURL, logger)
	exerciseHandler := handler.NewExerciseHandler(exerciseService, gate, logger)
	associationHandler := handler.NewAssociationHandler(associationService, logger)
	messageHandler := handler.NewMessageHandler(messageService, logger)
	adminHandler := handler.NewAdminHandler(adminService, logger)
	webHandler := web.NewWebHandler(web.Services{
		Auth:        authService,
		OAuth:       oauthService,
		Reset:       resetService,
		Consent:     consentService,
		Profile:     profileService,
		Billing:     billingService,
		Association: associationService,
		Exercise:    exerciseService,
		Message:     messageService,
		Admin:       adminService,
	}, gate, cookies, baseURL, logger)

	// Setup router
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics())
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(baseURL))
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(middleware.LoadIdentity(authService, cookies, logger))

	// Health check endpoints (no auth required)
	r.Get("/health", healthHandler())
	r.Get("/ready", readyHandler(db, rdb))
	r.Handle("/metrics", promhttp.Handler())

	// JSON API
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(rdb, middleware.DefaultRateLimitConfig(), logger))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			response.OK(w, map[string]string{
				"name":    "Rehab API",
				"version": "1.0.0",
			})
		})

		r.With(middleware.RateLimit(rdb, middleware.AuthRateLimitConfig(), logger)).
			Mount("/auth", authHandler.Routes())
		r.Mount("/account", accountHandler.Routes())
		r.Mount("/billing", billingHandler.Routes())
		r.Mount("/exercises", exerciseHandler.Routes())
		r.Mount("/associations", associationHandler.Routes())
		r.Mount("/messages", messageHandler.Routes())
		r.Mount("/admin", adminHandler.Routes())
	})

	// Localized pages
	r.Mount("/", webHandler.Routes())

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go sweepSessions(ctx, sessionRepo, logger)

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Minute,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("Shutting down server", slog.String("signal", sig.String()))
	stop()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	logger.Info("Server stopped gracefully")
}

// sweepSessions purges expired sessions until ctx is cancelled.
func sweepSessions(ctx context.Context, sessions repository.SessionRepository, logger *slog.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpired(ctx)
			if err != nil {
				logger.Error("failed to purge expired sessions", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				logger.Debug("purged expired sessions", slog.Int64("count", n))
			}
		}
	}
}

// healthHandler reports that the process is up.
func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{"status": "ok"})
	}
}

// readyHandler returns a readiness check that verifies database and Redis connections.
func readyHandler(db *database.Postgres, rdb *database.Redis) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			response.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "component": "database"})
			return
		}
		if err := rdb.Ping(ctx); err != nil {
			response.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "component": "redis"})
			return
		}
		response.OK(w, map[string]string{"status": "ok", "database": "connected", "redis": "connected"})
	}
}
