package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"storefront/internal/config"
	"storefront/internal/models"
	"storefront/internal/repositories/interfaces"
	"storefront/internal/utils"
	"storefront/internal/validators"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReferralService interface {
	// Codes and links
	GetOrCreateStats(ctx context.Context, userID string) (*models.ReferralStats, error)
	CustomizeCode(ctx context.Context, userID, newCode string) (*models.ReferralStats, error)
	GenerateReferralLink(code string) string

	// Ledger
	TrackReferral(ctx context.Context, input TrackReferralInput) (*models.Referral, error)
	CompleteReferral(ctx context.Context, referralID primitive.ObjectID, orderID string, orderTotal float64) (*models.CompletionResult, error)
	MarkReferralPaid(ctx context.Context, referralID primitive.ObjectID, payoutReference string) (*models.Referral, error)
	RecomputeStats(ctx context.Context, userID string) (*models.ReferralStats, error)
	ReferralForCheckoutSession(ctx context.Context, sessionID string) (*models.Referral, error)

	// Dashboard reads. Store failures degrade to empty results.
	GetReferralStats(ctx context.Context, userID string) (*models.ReferralOverview, error)
	GetReferralHistory(ctx context.Context, userID string, params *utils.PaginationParams) ([]*models.Referral, int64, error)

	// Admin
	ListReferrals(ctx context.Context, status models.ReferralStatus, params *utils.PaginationParams) ([]*models.Referral, int64, error)
	TopReferrers(ctx context.Context, limit int) ([]*models.ReferralStats, error)
	Tiers() []models.CommissionTier
}

type TrackReferralInput struct {
	Code              string
	ReferredUserID    string
	Source            models.ReferralSource
	CheckoutSessionID string
}

type referralService struct {
	statsRepo    interfaces.ReferralStatsRepository
	referralRepo interfaces.ReferralRepository
	tiers        *TierTable
	statsCache   *statsCache
	queue        RecomputeQueue
	config       *config.ReferralConfig
	logger       *logger.Logger
	now          func() time.Time
}

func NewReferralService(
	cfg *config.ReferralConfig,
	statsRepo interfaces.ReferralStatsRepository,
	referralRepo interfaces.ReferralRepository,
	tiers *TierTable,
	cacheSvc CacheService,
	queue RecomputeQueue,
	log *logger.Logger,
) ReferralService {
	if tiers == nil {
		tiers = DefaultTierTable()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = log.WithField("service", "referral")

	return &referralService{
		statsRepo:    statsRepo,
		referralRepo: referralRepo,
		tiers:        tiers,
		statsCache:   newStatsCache(cacheSvc, cfg.StatsCacheTTL, log),
		queue:        queue,
		config:       cfg,
		logger:       log,
		now:          time.Now,
	}
}

// ValidateCodeFormat accepts 4-12 characters of letters, digits and hyphens.
func ValidateCodeFormat(code string) error {
	if !validators.IsValidReferralCode(code) {
		return utils.InvalidInput("referral code must be %d-%d letters, digits or hyphens",
			utils.ReferralCodeMinLength, utils.ReferralCodeMaxLength)
	}
	return nil
}

// BuildReferralLink returns <origin>/#/?ref=<CODE>.
func BuildReferralLink(origin, code string) string {
	return strings.TrimRight(origin, "/") + "/#/?" + utils.ReferralQueryParam + "=" + url.QueryEscape(code)
}

func (s *referralService) GenerateReferralLink(code string) string {
	return BuildReferralLink(s.config.LinkOrigin, code)
}

func (s *referralService) GetOrCreateStats(ctx context.Context, userID string) (*models.ReferralStats, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, utils.InvalidInput("user id is required")
	}

	stats, err := s.statsRepo.GetByUserID(ctx, userID)
	if err == nil {
		return stats, nil
	}
	if !errors.Is(err, utils.ErrStatsNotFound) {
		return nil, err
	}

	entry, _ := s.tiers.Resolve(0)
	for attempt := 1; attempt <= utils.ReferralCodeMaxRetries; attempt++ {
		stats = &models.ReferralStats{
			UserID:                userID,
			ReferralCode:          utils.GenerateReferralCode(),
			CurrentTier:           entry.Tier,
			CurrentCommissionRate: entry.Rate,
		}

		err = s.statsRepo.Create(ctx, stats)
		switch {
		case err == nil:
			s.logger.WithUserID(userID).WithReferralCode(stats.ReferralCode).Info("Created referral stats")
			return stats, nil
		case errors.Is(err, utils.ErrStatsExists):
			// Lost a race with another first request for this user.
			return s.statsRepo.GetByUserID(ctx, userID)
		case errors.Is(err, utils.ErrCodeTaken):
			s.logger.WithUserID(userID).WithField("attempt", attempt).Debug("Generated referral code collided, retrying")
			continue
		default:
			return nil, err
		}
	}

	return nil, utils.StoreError("create referral stats", err)
}

func (s *referralService) CustomizeCode(ctx context.Context, userID, newCode string) (*models.ReferralStats, error) {
	stats, err := s.statsRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if stats.CodeCustomized {
		return nil, utils.ErrAlreadyCustomized
	}

	code := validators.NormalizeCode(newCode)
	if err := ValidateCodeFormat(code); err != nil {
		return nil, err
	}

	// Early exit only. The unique index decides races.
	owner, err := s.statsRepo.GetByCode(ctx, code)
	switch {
	case err == nil && owner.UserID != userID:
		return nil, utils.ErrCodeTaken
	case err != nil && !errors.Is(err, utils.ErrStatsNotFound):
		return nil, err
	}

	updated, err := s.statsRepo.CustomizeCode(ctx, userID, code, s.now())
	if err != nil {
		return nil, err
	}

	s.statsCache.invalidate(ctx, userID)
	s.logger.WithUserID(userID).WithFields(map[string]interface{}{
		"old_code": stats.ReferralCode,
		"new_code": updated.ReferralCode,
	}).Info("Referral code customized")

	return updated, nil
}

func (s *referralService) TrackReferral(ctx context.Context, input TrackReferralInput) (*models.Referral, error) {
	code := validators.NormalizeCode(input.Code)
	if err := ValidateCodeFormat(code); err != nil {
		return nil, err
	}

	source := input.Source
	if source == "" {
		source = models.ReferralSourceLink
	}
	if !source.IsValid() {
		return nil, utils.InvalidInput("unknown referral source %q", source)
	}

	owner, err := s.statsRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, utils.ErrStatsNotFound) {
			return nil, utils.ErrUnknownCode
		}
		return nil, err
	}

	referred := strings.TrimSpace(input.ReferredUserID)
	if referred != "" && referred == owner.UserID {
		return nil, utils.InvalidInput("a shopper cannot use their own referral code")
	}

	referral := &models.Referral{
		ReferrerID:        owner.UserID,
		ReferralCode:      code,
		Status:            models.ReferralStatusPending,
		Source:            source,
		CheckoutSessionID: input.CheckoutSessionID,
	}
	if referred != "" {
		referral.ReferredUserID = &referred
	}

	if err := s.referralRepo.CreateWithIncrement(ctx, referral); err != nil {
		return nil, err
	}

	s.statsCache.invalidate(ctx, owner.UserID)
	metrics.RecordReferralTracked(string(source))
	s.logger.LogReferralEvent(referral.ID.Hex(), "tracked", map[string]interface{}{
		"referrer_id":   owner.UserID,
		"referral_code": code,
		"source":        source,
	})

	return referral, nil
}

func (s *referralService) CompleteReferral(ctx context.Context, referralID primitive.ObjectID, orderID string, orderTotal float64) (*models.CompletionResult, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, utils.InvalidInput("order id is required")
	}
	if orderTotal <= 0 {
		return nil, utils.InvalidInput("order total must be positive, got %v", orderTotal)
	}

	referral, err := s.referralRepo.GetByID(ctx, referralID)
	if err != nil {
		return nil, err
	}
	if referral.Status != models.ReferralStatusPending {
		return nil, utils.ErrAlreadyCompleted
	}

	referrer, err := s.statsRepo.GetByUserID(ctx, referral.ReferrerID)
	if err != nil {
		return nil, err
	}

	rate := referrer.CurrentCommissionRate
	commission := utils.Commission(orderTotal, rate)

	completed, err := s.referralRepo.Complete(ctx, referralID, models.ReferralCompletion{
		OrderID:          orderID,
		OrderTotal:       utils.RoundMoney(orderTotal),
		CommissionRate:   rate,
		CommissionEarned: commission,
		CompletedAt:      s.now(),
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordReferralCompleted(commission)
	s.logger.LogCommissionEvent(completed.ReferrerID, "earned", commission, rate)

	return &models.CompletionResult{
		ReferralID:       completed.ID,
		ReferrerID:       completed.ReferrerID,
		CommissionEarned: commission,
		CommissionRate:   rate,
		StatsRecomputed:  s.recomputeOrEnqueue(ctx, completed.ReferrerID),
	}, nil
}

func (s *referralService) MarkReferralPaid(ctx context.Context, referralID primitive.ObjectID, payoutReference string) (*models.Referral, error) {
	payoutReference = strings.TrimSpace(payoutReference)
	if payoutReference == "" {
		return nil, utils.InvalidInput("payout reference is required")
	}

	paid, err := s.referralRepo.MarkPaid(ctx, referralID, payoutReference, s.now())
	if err != nil {
		return nil, err
	}

	metrics.RecordReferralPaid()
	amount := 0.0
	if paid.CommissionEarned != nil {
		amount = *paid.CommissionEarned
	}
	rate := 0
	if paid.CommissionRate != nil {
		rate = *paid.CommissionRate
	}
	s.logger.LogCommissionEvent(paid.ReferrerID, "paid", amount, rate)

	s.recomputeOrEnqueue(ctx, paid.ReferrerID)
	return paid, nil
}

func (s *referralService) RecomputeStats(ctx context.Context, userID string) (*models.ReferralStats, error) {
	stats, err := s.referralRepo.RecomputeStats(ctx, userID, s.tiers.Derive)
	metrics.RecordRecompute(err == nil)
	if err != nil {
		return nil, err
	}

	s.statsCache.invalidate(ctx, userID)
	return stats, nil
}

// recomputeOrEnqueue runs a recompute after a ledger write. A failure leaves
// the ledger authoritative and queues the referrer for the retrier.
func (s *referralService) recomputeOrEnqueue(ctx context.Context, userID string) bool {
	_, err := s.RecomputeStats(ctx, userID)
	if err == nil {
		return true
	}

	log := s.logger.WithUserID(userID).WithError(err)
	if s.queue == nil {
		log.Error("Stats recompute failed and no retry queue is configured")
		return false
	}

	next := s.now().Add(s.config.RetryBaseBackoff)
	if qerr := s.queue.Enqueue(context.WithoutCancel(ctx), userID, next); qerr != nil {
		log.WithField("queue_error", qerr.Error()).Error("Stats recompute failed and could not be queued")
		return false
	}

	log.Warn("Stats recompute failed, queued for retry")
	return false
}

func (s *referralService) ReferralForCheckoutSession(ctx context.Context, sessionID string) (*models.Referral, error) {
	if sessionID == "" {
		return nil, utils.InvalidInput("checkout session id is required")
	}
	return s.referralRepo.GetByCheckoutSession(ctx, sessionID)
}

func (s *referralService) GetReferralStats(ctx context.Context, userID string) (*models.ReferralOverview, error) {
	stats, gen := s.statsCache.get(ctx, userID)
	if stats == nil {
		var err error
		stats, err = s.GetOrCreateStats(ctx, userID)
		if err != nil {
			if !utils.IsStoreError(err) {
				return nil, err
			}
			s.logger.WithUserID(userID).WithError(err).Warn("Referral stats unavailable, serving empty dashboard")
			return s.emptyOverview(userID), nil
		}
		s.statsCache.set(ctx, stats, gen)
	}

	progress, err := s.tiers.Resolve(int(stats.SuccessfulReferrals))
	if err != nil {
		return nil, err
	}

	return &models.ReferralOverview{
		Stats:    stats,
		Progress: progress,
		Link:     s.GenerateReferralLink(stats.ReferralCode),
	}, nil
}

func (s *referralService) emptyOverview(userID string) *models.ReferralOverview {
	progress, _ := s.tiers.Resolve(0)
	return &models.ReferralOverview{
		Stats: &models.ReferralStats{
			UserID:                userID,
			CurrentTier:           progress.Tier,
			CurrentCommissionRate: progress.Rate,
		},
		Progress: progress,
	}
}

func (s *referralService) GetReferralHistory(ctx context.Context, userID string, params *utils.PaginationParams) ([]*models.Referral, int64, error) {
	params = utils.NormalizePagination(params)

	referrals, total, err := s.referralRepo.ListByReferrer(ctx, userID, params)
	if err != nil {
		if !utils.IsStoreError(err) {
			return nil, 0, err
		}
		s.logger.WithUserID(userID).WithError(err).Warn("Referral history unavailable, serving empty list")
		return []*models.Referral{}, 0, nil
	}

	return referrals, total, nil
}

func (s *referralService) ListReferrals(ctx context.Context, status models.ReferralStatus, params *utils.PaginationParams) ([]*models.Referral, int64, error) {
	if !status.IsValid() {
		return nil, 0, utils.InvalidInput("unknown referral status %q", status)
	}
	return s.referralRepo.ListByStatus(ctx, status, utils.NormalizePagination(params))
}

func (s *referralService) TopReferrers(ctx context.Context, limit int) ([]*models.ReferralStats, error) {
	if limit <= 0 || limit > utils.MaxPageSize {
		limit = utils.DefaultPageSize
	}
	return s.statsRepo.ListTop(ctx, limit)
}

func (s *referralService) Tiers() []models.CommissionTier {
	return s.tiers.Tiers()
}
