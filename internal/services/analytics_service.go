package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories/interfaces"
	"storefront/internal/utils"
	"storefront/internal/validators"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"
)

type AnalyticsService interface {
	// Event Tracking
	TrackEvent(ctx context.Context, input TrackEventInput) (*models.ReferralAnalyticsEvent, error)

	// Referrer Analytics
	GetReferrerAnalytics(ctx context.Context, referrerID string) (*models.ReferrerAnalytics, error)
}

type TrackEventInput struct {
	Code      string
	EventType models.ReferralEventType
	UserID    string
	Visitor   *models.VisitorInfo
}

type analyticsService struct {
	analyticsRepo interfaces.ReferralAnalyticsRepository
	statsRepo     interfaces.ReferralStatsRepository
	logger        *logger.Logger
	now           func() time.Time
}

func NewAnalyticsService(
	analyticsRepo interfaces.ReferralAnalyticsRepository,
	statsRepo interfaces.ReferralStatsRepository,
	log *logger.Logger,
) AnalyticsService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &analyticsService{
		analyticsRepo: analyticsRepo,
		statsRepo:     statsRepo,
		logger:        log.WithField("service", "analytics"),
		now:           time.Now,
	}
}

func (s *analyticsService) TrackEvent(ctx context.Context, input TrackEventInput) (*models.ReferralAnalyticsEvent, error) {
	if !input.EventType.IsValid() {
		return nil, utils.InvalidInput("unknown event type %q", input.EventType)
	}
	code := validators.NormalizeCode(input.Code)
	if err := ValidateCodeFormat(code); err != nil {
		return nil, err
	}

	owner, err := s.statsRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, utils.ErrStatsNotFound) {
			s.logger.WithReferralCode(code).WithField("event_type", input.EventType).Warn("Analytics event for unknown referral code")
			return nil, utils.ErrUnknownCode
		}
		return nil, err
	}

	event := &models.ReferralAnalyticsEvent{
		ReferralCode: code,
		ReferrerID:   owner.UserID,
		EventType:    input.EventType,
		Visitor:      input.Visitor,
		CreatedAt:    s.now(),
	}
	if userID := strings.TrimSpace(input.UserID); userID != "" {
		event.UserID = &userID
	}

	if err := s.analyticsRepo.Create(ctx, event); err != nil {
		return nil, err
	}

	metrics.RecordReferralEvent(string(input.EventType))
	return event, nil
}

// GetReferrerAnalytics counts events per type. Conversion is purchases over
// clicks as a percentage, 0 without clicks.
func (s *analyticsService) GetReferrerAnalytics(ctx context.Context, referrerID string) (*models.ReferrerAnalytics, error) {
	counts, err := s.analyticsRepo.CountByType(ctx, referrerID)
	if err != nil {
		if !utils.IsStoreError(err) {
			return nil, err
		}
		s.logger.WithUserID(referrerID).WithError(err).Warn("Referral analytics unavailable, serving zeros")
		return &models.ReferrerAnalytics{}, nil
	}

	analytics := &models.ReferrerAnalytics{
		Clicks:    counts[models.ReferralEventClick],
		Views:     counts[models.ReferralEventView],
		Signups:   counts[models.ReferralEventSignup],
		Purchases: counts[models.ReferralEventPurchase],
	}
	analytics.ConversionRate = utils.Ratio(analytics.Purchases, analytics.Clicks)

	return analytics, nil
}
