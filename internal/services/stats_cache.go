package services

import (
	"context"
	"strconv"
	"time"

	"storefront/internal/models"
	"storefront/pkg/cache"
	"storefront/pkg/logger"
)

// statsCache keeps short-lived copies of ReferralStats for dashboard reads.
// Cache failures are logged and never fail the caller.
//
// Entries are keyed by a per-user generation. invalidate bumps the
// generation, so a reader that loaded stats before the bump writes under a
// generation nobody reads any more.
type statsCache struct {
	cache  CacheService
	ttl    time.Duration
	genTTL time.Duration
	logger *logger.Logger
}

// noGeneration means the generation could not be read; nothing is cached.
const noGeneration int64 = -1

func newStatsCache(c CacheService, ttl time.Duration, log *logger.Logger) *statsCache {
	if c == nil || ttl <= 0 {
		return nil
	}
	return &statsCache{cache: c, ttl: ttl, genTTL: ttl + 24*time.Hour, logger: log}
}

func (s *statsCache) genKey(userID string) string {
	return s.cache.Key("referral_stats_gen", userID)
}

func (s *statsCache) key(userID string, gen int64) string {
	return s.cache.Key("referral_stats", userID, strconv.FormatInt(gen, 10))
}

func (s *statsCache) generation(ctx context.Context, userID string) int64 {
	var gen int64
	if err := s.cache.Get(ctx, s.genKey(userID), &gen); err != nil {
		if cache.IsMiss(err) {
			return 0
		}
		s.logger.WithError(err).WithUserID(userID).Warn("Failed to read referral stats cache generation")
		return noGeneration
	}
	return gen
}

// get returns the cached stats, or nil, and the generation a later set
// must be tagged with.
func (s *statsCache) get(ctx context.Context, userID string) (*models.ReferralStats, int64) {
	if s == nil {
		return nil, noGeneration
	}
	gen := s.generation(ctx, userID)
	if gen == noGeneration {
		return nil, gen
	}

	var stats models.ReferralStats
	if err := s.cache.Get(ctx, s.key(userID, gen), &stats); err != nil {
		if !cache.IsMiss(err) {
			s.logger.WithError(err).WithUserID(userID).Warn("Failed to read cached referral stats")
		}
		return nil, gen
	}
	return &stats, gen
}

func (s *statsCache) set(ctx context.Context, stats *models.ReferralStats, gen int64) {
	if s == nil || stats == nil || gen == noGeneration {
		return
	}
	if err := s.cache.Set(ctx, s.key(stats.UserID, gen), stats, s.ttl); err != nil {
		s.logger.WithError(err).WithUserID(stats.UserID).Warn("Failed to cache referral stats")
		return
	}
	// The generation must outlive every entry written under it.
	if gen > 0 {
		if err := s.cache.SetExpire(ctx, s.genKey(stats.UserID), s.genTTL); err != nil {
			s.logger.WithError(err).WithUserID(stats.UserID).Warn("Failed to extend referral stats cache generation")
		}
	}
}

func (s *statsCache) invalidate(ctx context.Context, userID string) {
	if s == nil {
		return
	}
	key := s.genKey(userID)
	gen, err := s.cache.Increment(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithUserID(userID).Warn("Failed to invalidate cached referral stats")
		return
	}
	if err := s.cache.SetExpire(ctx, key, s.genTTL); err != nil {
		s.logger.WithError(err).WithUserID(userID).Warn("Failed to set referral stats cache generation expiry")
	}
	if err := s.cache.Delete(ctx, s.key(userID, gen-1)); err != nil {
		s.logger.WithError(err).WithUserID(userID).Debug("Failed to drop superseded referral stats")
	}
}
