package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/repositories/memory"
	"storefront/internal/services"
	"storefront/pkg/cache"
	"storefront/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(ctx context.Context) error { return nil }

func TestRegisterRejectsBadSpecsAndDuplicates(t *testing.T) {
	s := NewScheduler(nil)

	assert.Error(t, s.Register("bad", "every now and then", 0, noop))
	require.NoError(t, s.Register("job", "@every 1m", 0, noop))
	assert.Error(t, s.Register("job", "@every 5m", 0, noop))

	_, ok := s.Next("missing")
	assert.False(t, ok)
}

func TestRunNowReturnsJobError(t *testing.T) {
	s := NewScheduler(nil)
	boom := errors.New("boom")

	err := s.RunNow("failing", time.Second, func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestSchedulerRunsJobs(t *testing.T) {
	s := NewScheduler(nil)
	ran := make(chan struct{}, 1)

	require.NoError(t, s.Register("tick", "@every 1s", time.Second, func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}))
	s.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		assert.NoError(t, s.Stop(ctx))
	}()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestRecomputeRetryJobDrainsQueue(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	c := cache.NewMemoryCache("test:")
	queue := services.NewRecomputeQueue(c)
	cfg := &config.ReferralConfig{RetryBaseBackoff: time.Second}
	referrals := services.NewReferralService(cfg, store.ReferralStats(), store.Referrals(), nil, c, queue, nil)

	_, err := referrals.GetOrCreateStats(ctx, "referrer")
	require.NoError(t, err)
	require.NoError(t, queue.Enqueue(ctx, "referrer", time.Now().Add(-time.Minute)))

	retrier := services.NewRecomputeRetrier(queue, referrals, services.RetrierConfig{MaxAttempts: 3}, nil)
	s := NewScheduler(nil)
	require.NoError(t, s.RunNow(RecomputeRetryJob, time.Second, RecomputeRetryJobFunc(retrier, s.logger)))

	depth, err := queue.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)

	stats, err := store.ReferralStats().GetByUserID(ctx, "referrer")
	require.NoError(t, err)
	assert.NotNil(t, stats.LastRecomputedAt)
}

type countingSweeper struct{ calls int }

func (s *countingSweeper) Cleanup() int {
	s.calls++
	return 3
}

func TestRateLimiterCleanupJob(t *testing.T) {
	s := NewScheduler(nil)
	sweeper := &countingSweeper{}

	require.NoError(t, s.RunNow(RateLimiterCleanupJob, time.Second, RateLimiterCleanupJobFunc(sweeper, logger.NewNopLogger())))
	assert.Equal(t, 1, sweeper.calls)
}
