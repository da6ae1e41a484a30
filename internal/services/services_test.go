package services

import (
	"context"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/models"
	"storefront/internal/repositories/memory"
	"storefront/pkg/cache"
	"storefront/pkg/logger"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store     *memory.Store
	cache     *cache.MemoryCache
	queue     RecomputeQueue
	referrals ReferralService
	config    *config.ReferralConfig
}

func testReferralConfig() *config.ReferralConfig {
	return &config.ReferralConfig{
		LinkOrigin:       "https://shop.example",
		CaptureTTL:       30 * 24 * time.Hour,
		LegacyDiscount:   10,
		StatsCacheTTL:    time.Minute,
		RetryMaxAttempts: 3,
		RetryBaseBackoff: 30 * time.Second,
		RetryBatchSize:   10,
		WebhookDedupTTL:  time.Hour,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	store.SetClock(func() time.Time { return testNow })
	c := cache.NewMemoryCache("test:")
	queue := NewRecomputeQueue(c)
	cfg := testReferralConfig()

	referrals := NewReferralService(cfg, store.ReferralStats(), store.Referrals(), DefaultTierTable(), c, queue, logger.NewNopLogger())
	referrals.(*referralService).now = func() time.Time { return testNow }

	return &fixture{store: store, cache: c, queue: queue, referrals: referrals, config: cfg}
}

// seedReferrer creates a stats record with a fixed code and rate.
func (f *fixture) seedReferrer(t *testing.T, userID, code string, rate int) *models.ReferralStats {
	t.Helper()
	stats := &models.ReferralStats{
		UserID:                userID,
		ReferralCode:          code,
		CurrentTier:           1,
		CurrentCommissionRate: rate,
	}
	require.NoError(t, f.store.ReferralStats().Create(context.Background(), stats))
	return stats
}

func (f *fixture) track(t *testing.T, code, referred string) *models.Referral {
	t.Helper()
	referral, err := f.referrals.TrackReferral(context.Background(), TrackReferralInput{Code: code, ReferredUserID: referred})
	require.NoError(t, err)
	return referral
}

func (f *fixture) stats(t *testing.T, userID string) *models.ReferralStats {
	t.Helper()
	stats, err := f.store.ReferralStats().GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	return stats
}
