package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"storefront/internal/utils"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"
)

// RecomputeQueue is a durable set of referrers whose stats recompute
// failed. Entries are keyed by user id, so enqueueing twice is a no-op.
type RecomputeQueue interface {
	Enqueue(ctx context.Context, userID string, at time.Time) error
	Due(ctx context.Context, now time.Time, limit int) ([]string, error)
	// RecordFailure bumps the attempt counter and returns the new count.
	RecordFailure(ctx context.Context, userID string) (int64, error)
	Schedule(ctx context.Context, userID string, at time.Time) error
	Ack(ctx context.Context, userID string) error
	Len(ctx context.Context) (int64, error)
}

// cacheRecomputeQueue stores the schedule in a sorted set scored by the next
// attempt's unix time and the attempt counts in a hash.
type cacheRecomputeQueue struct {
	cache CacheService
}

func NewRecomputeQueue(c CacheService) RecomputeQueue {
	return &cacheRecomputeQueue{cache: c}
}

func (q *cacheRecomputeQueue) scheduleKey() string {
	return q.cache.Key("recompute", "queue")
}

func (q *cacheRecomputeQueue) attemptsKey() string {
	return q.cache.Key("recompute", "attempts")
}

func (q *cacheRecomputeQueue) Enqueue(ctx context.Context, userID string, at time.Time) error {
	_, err := q.cache.ZAddNX(ctx, q.scheduleKey(), float64(at.Unix()), userID)
	return err
}

func (q *cacheRecomputeQueue) Due(ctx context.Context, now time.Time, limit int) ([]string, error) {
	return q.cache.ZRangeByScore(ctx, q.scheduleKey(), "-inf", strconv.FormatInt(now.Unix(), 10), int64(limit))
}

func (q *cacheRecomputeQueue) RecordFailure(ctx context.Context, userID string) (int64, error) {
	return q.cache.HIncrBy(ctx, q.attemptsKey(), userID, 1)
}

func (q *cacheRecomputeQueue) Schedule(ctx context.Context, userID string, at time.Time) error {
	return q.cache.ZAdd(ctx, q.scheduleKey(), float64(at.Unix()), userID)
}

func (q *cacheRecomputeQueue) Ack(ctx context.Context, userID string) error {
	if _, err := q.cache.ZRem(ctx, q.scheduleKey(), userID); err != nil {
		return err
	}
	return q.cache.HDel(ctx, q.attemptsKey(), userID)
}

func (q *cacheRecomputeQueue) Len(ctx context.Context) (int64, error) {
	return q.cache.ZCard(ctx, q.scheduleKey())
}

type RetrierConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	BatchSize   int
}

type DrainResult struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Retried   int `json:"retried"`
	Dropped   int `json:"dropped"`
}

// RecomputeRetrier replays queued recomputes with exponential backoff.
type RecomputeRetrier struct {
	queue     RecomputeQueue
	recompute func(ctx context.Context, userID string) error
	config    RetrierConfig
	logger    *logger.Logger
	now       func() time.Time
}

func NewRecomputeRetrier(queue RecomputeQueue, referrals ReferralService, config RetrierConfig, log *logger.Logger) *RecomputeRetrier {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.BaseBackoff <= 0 {
		config.BaseBackoff = 30 * time.Second
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 6 * time.Hour
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &RecomputeRetrier{
		queue: queue,
		recompute: func(ctx context.Context, userID string) error {
			_, err := referrals.RecomputeStats(ctx, userID)
			return err
		},
		config: config,
		logger: log.WithField("component", "recompute_retrier"),
		now:    time.Now,
	}
}

// Drain runs every due entry once. Queue errors abort the pass; recompute
// errors reschedule the entry until MaxAttempts, then drop it.
func (r *RecomputeRetrier) Drain(ctx context.Context) (DrainResult, error) {
	var result DrainResult
	now := r.now()

	due, err := r.queue.Due(ctx, now, r.config.BatchSize)
	if err != nil {
		return result, utils.StoreError("read recompute queue", err)
	}

	for _, userID := range due {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Processed++
		log := r.logger.WithUserID(userID)

		recomputeErr := r.recompute(ctx, userID)
		if recomputeErr == nil {
			result.Succeeded++
			if err := r.queue.Ack(ctx, userID); err != nil {
				return result, utils.StoreError("ack recompute", err)
			}
			continue
		}

		if errors.Is(recomputeErr, utils.ErrStatsNotFound) {
			result.Dropped++
			log.WithError(recomputeErr).Error("Dropping recompute for referrer without stats")
			if err := r.queue.Ack(ctx, userID); err != nil {
				return result, utils.StoreError("ack recompute", err)
			}
			continue
		}

		attempts, err := r.queue.RecordFailure(ctx, userID)
		if err != nil {
			return result, utils.StoreError("record recompute failure", err)
		}

		if attempts >= int64(r.config.MaxAttempts) {
			result.Dropped++
			log.WithError(recomputeErr).
				WithField("attempts", attempts).
				Error("Giving up on stats recompute; run referralctl recompute to repair")
			if err := r.queue.Ack(ctx, userID); err != nil {
				return result, utils.StoreError("ack recompute", err)
			}
			continue
		}

		next := now.Add(r.backoff(attempts))
		if err := r.queue.Schedule(ctx, userID, next); err != nil {
			return result, utils.StoreError("reschedule recompute", err)
		}
		result.Retried++
		log.WithError(recomputeErr).
			WithFields(map[string]interface{}{"attempts": attempts, "next_attempt": next}).
			Warn("Stats recompute failed, rescheduled")
	}

	if depth, err := r.queue.Len(ctx); err == nil {
		metrics.SetRecomputeQueueDepth(depth)
	}

	return result, nil
}

func (r *RecomputeRetrier) backoff(attempts int64) time.Duration {
	d := r.config.BaseBackoff
	for i := int64(1); i < attempts; i++ {
		d *= 2
		if d >= r.config.MaxBackoff {
			return r.config.MaxBackoff
		}
	}
	return d
}
