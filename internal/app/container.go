// Package app builds the service graph shared by the API server and the
// operator CLI.
package app

import (
	"context"
	"fmt"

	"storefront/internal/config"
	"storefront/internal/repositories/interfaces"
	"storefront/internal/repositories/memory"
	"storefront/internal/repositories/mongodb"
	"storefront/internal/services"
	"storefront/pkg/cache"
	"storefront/pkg/database"
	"storefront/pkg/logger"
	"storefront/pkg/payment"
)

type Repositories struct {
	Stats     interfaces.ReferralStatsRepository
	Referrals interfaces.ReferralRepository
	Analytics interfaces.ReferralAnalyticsRepository
	Coupons   interfaces.CouponRepository
}

type Container struct {
	Config *config.Config
	Logger *logger.Logger

	DB    *database.MongoDB
	Redis *cache.RedisCache
	Cache services.CacheService

	Repos Repositories

	Tiers     *services.TierTable
	Queue     services.RecomputeQueue
	Referrals services.ReferralService
	Analytics services.AnalyticsService
	Capture   services.CaptureService
	Coupons   services.CouponService
	Webhooks  services.CheckoutWebhookService
	Retrier   *services.RecomputeRetrier
}

// NewLogger builds the process logger from config.
func NewLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.NewLogger(&logger.Config{
		Level:      logger.LogLevel(cfg.Log.Level),
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Caller:     cfg.Log.Caller,
		AppName:    cfg.App.Name,
		Version:    cfg.App.Version,
	})
}

// New connects to MongoDB and Redis and wires every service. MongoDB is
// required. Without Redis the cache-backed stores run in process memory.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
		Transactions:   cfg.Database.Transactions,
	})
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	if cfg.Database.RunMigrations {
		if err := database.NewMigrator(db.Database, log).Up(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	c := &Container{Config: cfg, Logger: log, DB: db}

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		KeyPrefix:    cfg.Redis.KeyPrefix,
	})
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, captured codes and the retry queue are process-local")
		c.Cache = cache.NewMemoryCache(cfg.Redis.KeyPrefix)
	} else {
		c.Redis = redisCache
		c.Cache = redisCache
	}

	c.Repos = Repositories{
		Stats:     mongodb.NewReferralStatsRepository(db.Database),
		Referrals: mongodb.NewReferralRepository(db, log),
		Analytics: mongodb.NewReferralAnalyticsRepository(db.Database),
		Coupons:   mongodb.NewCouponRepository(db.Database),
	}

	if err := c.wire(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// NewInMemory wires the same graph over in-process stores. Used for local
// runs without infrastructure.
func NewInMemory(cfg *config.Config, log *logger.Logger) (*Container, error) {
	store := memory.NewStore()
	c := &Container{
		Config: cfg,
		Logger: log,
		Cache:  cache.NewMemoryCache(cfg.Redis.KeyPrefix),
		Repos: Repositories{
			Stats:     store.ReferralStats(),
			Referrals: store.Referrals(),
			Analytics: store.Analytics(),
			Coupons:   store.Coupons(),
		},
	}
	if err := c.wire(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) wire() error {
	cfg := c.Config.Referral

	tiers, err := services.LoadTierTable(cfg.Tiers)
	if err != nil {
		return fmt.Errorf("load commission tiers: %w", err)
	}
	c.Tiers = tiers

	c.Queue = services.NewRecomputeQueue(c.Cache)
	c.Referrals = services.NewReferralService(cfg, c.Repos.Stats, c.Repos.Referrals, tiers, c.Cache, c.Queue, c.Logger)
	c.Analytics = services.NewAnalyticsService(c.Repos.Analytics, c.Repos.Stats, c.Logger)
	c.Capture = services.NewCaptureService(c.Cache, cfg.CaptureTTL, c.Logger)
	c.Coupons = services.NewCouponService(c.Repos.Coupons, c.Repos.Stats, cfg.LegacyDiscount, c.Logger)
	c.Webhooks = services.NewCheckoutWebhookService(
		payment.NewStripeProvider(c.Config.Payment.Stripe.WebhookSecret),
		c.Referrals,
		c.Coupons,
		services.NewEventDeduper(c.Cache, cfg.WebhookDedupTTL),
		cfg.AutoCompleteOnPayment,
		cfg.Currency,
		c.Logger,
	)
	c.Retrier = services.NewRecomputeRetrier(c.Queue, c.Referrals, services.RetrierConfig{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseBackoff: cfg.RetryBaseBackoff,
		BatchSize:   cfg.RetryBatchSize,
	}, c.Logger)

	return nil
}

// HealthChecks returns a ping per connected backend.
func (c *Container) HealthChecks() map[string]func(ctx context.Context) error {
	checks := make(map[string]func(ctx context.Context) error)
	if c.DB != nil {
		checks["mongodb"] = c.DB.Ping
	}
	if c.Redis != nil {
		checks["redis"] = c.Redis.Ping
	}
	return checks
}

func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.WithError(err).Warn("Failed to close redis")
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.WithError(err).Warn("Failed to close mongodb")
		}
	}
}
