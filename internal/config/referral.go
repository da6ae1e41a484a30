package config

import (
	"time"
)

type ReferralConfig struct {
	// Origin used when building shareable links: <origin>/#/?ref=<CODE>.
	LinkOrigin string `yaml:"link_origin"`
	// How long a captured ?ref= code stays attached to a visitor.
	CaptureTTL time.Duration `yaml:"capture_ttl"`
	// Flat discount granted when a referral code is used as a coupon.
	LegacyDiscount float64 `yaml:"legacy_discount"`
	// Complete referrals straight from the Stripe checkout webhook instead
	// of waiting for the fulfillment call.
	AutoCompleteOnPayment bool `yaml:"auto_complete_on_payment"`

	// Currency commissions are paid in. Checkouts in any other currency are
	// tracked but never completed from the webhook.
	Currency string `yaml:"currency"`

	// Commission tiers as a JSON array. Empty uses the built-in table.
	Tiers string `yaml:"tiers"`

	StatsCacheTTL      time.Duration `yaml:"stats_cache_ttl"`
	RetryMaxAttempts   int           `yaml:"retry_max_attempts"`
	RetryBaseBackoff   time.Duration `yaml:"retry_base_backoff"`
	RetryBatchSize     int           `yaml:"retry_batch_size"`
	RetryDrainSchedule string        `yaml:"retry_drain_schedule"`
	WebhookDedupTTL    time.Duration `yaml:"webhook_dedup_ttl"`
}

func loadReferralConfig() *ReferralConfig {
	return &ReferralConfig{
		LinkOrigin:            getEnv("REFERRAL_LINK_ORIGIN", getEnv("APP_BASE_URL", "http://localhost:5173")),
		CaptureTTL:            getEnvAsDuration("REFERRAL_CAPTURE_TTL", 30*24*time.Hour),
		LegacyDiscount:        getEnvAsFloat64("REFERRAL_LEGACY_DISCOUNT", 10),
		AutoCompleteOnPayment: getEnvAsBool("REFERRAL_AUTO_COMPLETE", false),
		Currency:              getEnv("REFERRAL_CURRENCY", getEnv("APP_CURRENCY", "USD")),
		Tiers:                 getEnv("REFERRAL_TIERS", ""),
		StatsCacheTTL:         getEnvAsDuration("REFERRAL_STATS_CACHE_TTL", 2*time.Minute),
		RetryMaxAttempts:      getEnvAsInt("REFERRAL_RETRY_MAX_ATTEMPTS", 8),
		RetryBaseBackoff:      getEnvAsDuration("REFERRAL_RETRY_BASE_BACKOFF", 30*time.Second),
		RetryBatchSize:        getEnvAsInt("REFERRAL_RETRY_BATCH_SIZE", 50),
		RetryDrainSchedule:    getEnv("REFERRAL_RETRY_DRAIN_SCHEDULE", "@every 1m"),
		WebhookDedupTTL:       getEnvAsDuration("REFERRAL_WEBHOOK_DEDUP_TTL", 24*time.Hour),
	}
}
