package services

import (
	"context"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/pkg/cache"
	"storefront/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsCacheDropsWriteFromBeforeInvalidation(t *testing.T) {
	ctx := context.Background()
	sc := newStatsCache(cache.NewMemoryCache("test:"), time.Minute, logger.NewNopLogger())

	cached, gen := sc.get(ctx, "referrer")
	assert.Nil(t, cached)
	assert.Equal(t, int64(0), gen)

	// A tracked referral lands between the store read and the cache fill.
	sc.invalidate(ctx, "referrer")
	sc.set(ctx, &models.ReferralStats{UserID: "referrer", TotalReferrals: 3}, gen)

	cached, gen = sc.get(ctx, "referrer")
	assert.Nil(t, cached)
	assert.Equal(t, int64(1), gen)

	sc.set(ctx, &models.ReferralStats{UserID: "referrer", TotalReferrals: 4}, gen)
	cached, _ = sc.get(ctx, "referrer")
	require.NotNil(t, cached)
	assert.Equal(t, int64(4), cached.TotalReferrals)

	sc.invalidate(ctx, "referrer")
	cached, _ = sc.get(ctx, "referrer")
	assert.Nil(t, cached)
}

func TestStatsCacheDisabledWithoutTTL(t *testing.T) {
	sc := newStatsCache(cache.NewMemoryCache(""), 0, logger.NewNopLogger())
	assert.Nil(t, sc)

	cached, gen := sc.get(context.Background(), "referrer")
	assert.Nil(t, cached)
	assert.Equal(t, noGeneration, gen)
	sc.invalidate(context.Background(), "referrer")
}
