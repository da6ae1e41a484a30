package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/app"
	"storefront/internal/config"
	adminhandlers "storefront/internal/handlers/admin"
	"storefront/internal/handlers/shared"
	"storefront/internal/middleware"
	"storefront/internal/workers"
	"storefront/pkg/metrics"
	"storefront/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize services")
	}
	defer container.Close()

	// Initialize handlers
	referralHandler := shared.NewReferralHandler(container.Referrals, container.Analytics, container.Capture)
	couponHandler := shared.NewCouponHandler(container.Coupons)
	webhookHandler := shared.NewWebhookHandler(container.Webhooks)
	healthHandler := shared.NewHealthHandler(container.HealthChecks())
	adminReferralHandler := adminhandlers.NewReferralHandler(container.Referrals)
	adminCouponHandler := adminhandlers.NewCouponHandler(container.Coupons)

	publicLimiter := middleware.NewRateLimiter(cfg.Security.PublicRateLimitPerSec, cfg.Security.PublicRateLimitBurst, logger)
	auth := middleware.AuthRequired(cfg.Security.JWTSecret, logger)

	// Background jobs
	scheduler := workers.NewScheduler(logger)
	if err := scheduler.Register(workers.RecomputeRetryJob, cfg.Referral.RetryDrainSchedule, time.Minute,
		workers.RecomputeRetryJobFunc(container.Retrier, logger)); err != nil {
		logger.WithError(err).Fatal("Failed to schedule recompute retries")
	}
	if err := scheduler.Register(workers.RateLimiterCleanupJob, "@every 5m", 10*time.Second,
		workers.RateLimiterCleanupJobFunc(publicLimiter, logger)); err != nil {
		logger.WithError(err).Fatal("Failed to schedule rate limiter cleanup")
	}
	scheduler.Start()

	// Initialize Gin router
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		logger.WithError(err).Fatal("Invalid trusted proxies")
	}

	// Global middleware
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Security.CORSAllowedOrigins))

	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API routes
	v1 := router.Group("/api/v1")
	{
		routes.SetupReferralRoutes(v1, referralHandler, couponHandler, auth, publicLimiter.Handler())
		routes.SetupWebhookRoutes(v1, webhookHandler)
		routes.SetupAdminRoutes(v1, adminReferralHandler, adminCouponHandler, auth, middleware.AdminRequired(cfg.Security.AdminRole))
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.App.Port).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Scheduler did not stop cleanly")
	}
}
