package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/podguard/podguard/internal/auth"
	"github.com/podguard/podguard/internal/background"
	"github.com/podguard/podguard/internal/config"
	"github.com/podguard/podguard/internal/database"
	"github.com/podguard/podguard/internal/handlers"
	middlewareCustom "github.com/podguard/podguard/internal/middleware"
	"github.com/podguard/podguard/internal/models"
	"github.com/podguard/podguard/internal/repositories"
	"github.com/podguard/podguard/internal/routes"
	"github.com/podguard/podguard/internal/services"
	pkghttp "github.com/podguard/podguard/pkg/http"
	pkglogger "github.com/podguard/podguard/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	attemptRepo := repositories.NewAttemptRepository(db)
	banRepo := repositories.NewBanRepository(db)
	userRepo := repositories.NewUserRepository(db)
	apiKeyRepo := repositories.NewAPIKeyRepository(db)
	setupTokenRepo := repositories.NewSetupTokenRepository(db)
	subscriberTokenRepo := repositories.NewSubscriberTokenRepository(db)
	callRoomRepo := repositories.NewCallRoomRepository(db)

	clock := services.SystemClock()
	auditLogger := pkglogger.NewAuditLogger(logger)

	// Abuse policies per protected context
	policies, err := services.NewPolicyTable(map[models.AbuseContext]services.AbusePolicy{
		models.ContextAuthLogin:           policyFromConfig(cfg.Abuse.Login),
		models.ContextSetup:               policyFromConfig(cfg.Abuse.Setup),
		models.ContextAuthAPIKey:          policyFromConfig(cfg.Abuse.APIKey),
		models.ContextAuthSubscriberToken: policyFromConfig(cfg.Abuse.SubscriberToken),
		models.ContextCallJoin:            policyFromConfig(cfg.Abuse.CallJoin),
	})
	if err != nil {
		logger.Error("invalid abuse policy configuration", slog.Any("error", err))
		os.Exit(1)
	}

	guard := services.NewAbuseGuard(attemptRepo, banRepo, policies, clock, logger, auditLogger)

	// Ban alert notifications
	var alerts services.AlertNotifier = services.NoopAlertNotifier{}
	if cfg.Alerts.Enabled {
		sesAlerts, err := services.NewSESAlertService(cfg.Alerts.AWSRegion, cfg.Alerts.FromAddress, cfg.Alerts.OperatorAddress, logger)
		if err != nil {
			logger.Error("failed to initialize ban alert service", slog.Any("error", err))
			os.Exit(1)
		}
		alerts = sesAlerts
	}

	// Session tokens and API key hashing
	tokenManager := auth.NewTokenManager(cfg.Auth.SessionSecret, cfg.Auth.AccessTokenExpiry)
	apiKeyManager := auth.NewAPIKeyManager()

	// Timing delay for auth security
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandomMs,
	})

	// Initialize services
	authService := services.NewAuthService(userRepo, guard, tokenManager, timingDelay, alerts, logger, auditLogger)
	apiKeyService := services.NewAPIKeyService(apiKeyRepo, apiKeyManager, guard, clock, alerts, logger, auditLogger)
	setupService := services.NewSetupService(setupTokenRepo, guard, alerts, logger, auditLogger)
	feedService := services.NewFeedService(subscriberTokenRepo, guard, clock, alerts, logger, auditLogger)
	callService := services.NewCallService(callRoomRepo, guard, alerts, logger, auditLogger)
	banAdminService := services.NewBanAdminService(guard, banRepo, clock)

	// Client identity extraction honors forwarded headers only from
	// configured proxies
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, ipConfig)
	setupHandler := handlers.NewSetupHandler(setupService, ipConfig)
	feedHandler := handlers.NewFeedHandler(feedService, ipConfig)
	callHandler := handlers.NewCallHandler(callService, ipConfig)
	adminHandler := handlers.NewAdminHandler(banAdminService)
	keyHandler := handlers.NewKeyHandler()

	// Cleanup manager prunes old attempt history and long-expired bans
	cleanupManager := background.NewCleanupManager(
		attemptRepo,
		banRepo,
		clock,
		logger,
		cfg.Abuse.CleanupInterval,
		cfg.Abuse.AttemptRetention,
	)

	// Setup router
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, setupHandler, feedHandler, callHandler, adminHandler, keyHandler, apiKeyService, ipConfig)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func policyFromConfig(c config.ContextPolicyConfig) services.AbusePolicy {
	return services.AbusePolicy{
		Window:           c.Window,
		FailureThreshold: c.FailureThreshold,
		BanDuration:      c.BanDuration,
	}
}
