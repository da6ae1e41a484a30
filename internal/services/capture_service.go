package services

import (
	"context"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/utils"
	"storefront/internal/validators"
	"storefront/pkg/cache"
	"storefront/pkg/logger"
)

// CaptureService remembers the ?ref= code a visitor arrived with, keyed by
// the storefront session id.
type CaptureService interface {
	Capture(ctx context.Context, sessionID, code string) (*models.CapturedCode, error)
	// Get returns nil when nothing is captured or the capture has expired.
	Get(ctx context.Context, sessionID string) (*models.CapturedCode, error)
	Clear(ctx context.Context, sessionID string) error
}

type captureService struct {
	cache  CacheService
	ttl    time.Duration
	logger *logger.Logger
	now    func() time.Time
}

func NewCaptureService(c CacheService, ttl time.Duration, log *logger.Logger) CaptureService {
	if ttl <= 0 {
		ttl = utils.ReferralCaptureTTL
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &captureService{
		cache:  c,
		ttl:    ttl,
		logger: log.WithField("service", "capture"),
		now:    time.Now,
	}
}

func (s *captureService) key(sessionID string) string {
	return s.cache.Key("captured", sessionID)
}

func (s *captureService) Capture(ctx context.Context, sessionID, code string) (*models.CapturedCode, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, utils.InvalidInput("session id is required")
	}
	code = validators.NormalizeCode(code)
	if err := ValidateCodeFormat(code); err != nil {
		return nil, err
	}

	captured := &models.CapturedCode{Code: code, CapturedAt: s.now()}
	// The key TTL only reclaims space. Expiry is decided by CapturedAt.
	if err := s.cache.Set(ctx, s.key(sessionID), captured, s.ttl+time.Hour); err != nil {
		return nil, utils.StoreError("capture referral code", err)
	}

	return captured, nil
}

func (s *captureService) Get(ctx context.Context, sessionID string) (*models.CapturedCode, error) {
	var captured models.CapturedCode
	if err := s.cache.Get(ctx, s.key(sessionID), &captured); err != nil {
		if cache.IsMiss(err) {
			return nil, nil
		}
		return nil, utils.StoreError("read captured referral code", err)
	}

	if captured.ExpiredAt(s.now(), s.ttl) {
		if err := s.cache.Delete(ctx, s.key(sessionID)); err != nil {
			s.logger.WithError(err).WithField("session_id", sessionID).Warn("Failed to purge expired captured code")
		}
		return nil, nil
	}

	return &captured, nil
}

func (s *captureService) Clear(ctx context.Context, sessionID string) error {
	if err := s.cache.Delete(ctx, s.key(sessionID)); err != nil {
		return utils.StoreError("clear captured referral code", err)
	}
	return nil
}
