package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories/interfaces"
	"storefront/internal/utils"
	"storefront/internal/validators"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"
)

type CouponService interface {
	// ValidateCouponCode checks the coupon table first and falls back to
	// referral codes. Unusable codes come back with Valid=false and a
	// message; only malformed input is an error.
	ValidateCouponCode(ctx context.Context, code string, subtotal float64) (*models.CouponValidation, error)
	RedeemCoupon(ctx context.Context, code string, subtotal float64) (*models.CouponValidation, error)

	// Admin
	CreateCoupon(ctx context.Context, req *validators.CreateCouponRequest, adminID string) (*models.Coupon, error)
	ListCoupons(ctx context.Context, params *utils.PaginationParams) ([]*models.Coupon, int64, error)
}

type couponService struct {
	couponRepo     interfaces.CouponRepository
	statsRepo      interfaces.ReferralStatsRepository
	legacyDiscount float64
	logger         *logger.Logger
	now            func() time.Time
}

func NewCouponService(
	couponRepo interfaces.CouponRepository,
	statsRepo interfaces.ReferralStatsRepository,
	legacyDiscount float64,
	log *logger.Logger,
) CouponService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &couponService{
		couponRepo:     couponRepo,
		statsRepo:      statsRepo,
		legacyDiscount: legacyDiscount,
		logger:         log.WithField("service", "coupon"),
		now:            time.Now,
	}
}

func (s *couponService) ValidateCouponCode(ctx context.Context, code string, subtotal float64) (*models.CouponValidation, error) {
	code = validators.NormalizeCode(code)
	if code == "" {
		return nil, utils.InvalidInput("code is required")
	}
	if subtotal < 0 {
		return nil, utils.InvalidInput("subtotal must not be negative")
	}

	result := s.validate(ctx, code, subtotal)
	source := string(result.Source)
	if source == "" {
		source = "none"
	}
	metrics.RecordCouponValidation(source, result.Valid)
	return result, nil
}

func (s *couponService) validate(ctx context.Context, code string, subtotal float64) *models.CouponValidation {
	coupon, err := s.couponRepo.GetByCode(ctx, code)
	switch {
	case err == nil:
		return s.applyCoupon(coupon, subtotal)
	case !errors.Is(err, utils.ErrCouponNotFound):
		return s.unverifiable(code, err)
	}

	if !validators.IsValidReferralCode(code) {
		return invalidCode(code, "Invalid coupon code")
	}

	owner, err := s.statsRepo.GetByCode(ctx, code)
	switch {
	case errors.Is(err, utils.ErrStatsNotFound):
		return invalidCode(code, "Invalid coupon code")
	case err != nil:
		return s.unverifiable(code, err)
	}

	discount := s.legacyDiscount
	if subtotal > 0 {
		discount = math.Min(discount, subtotal)
	}

	return &models.CouponValidation{
		Valid:          true,
		Code:           code,
		Source:         models.DiscountSourceReferral,
		DiscountType:   models.CouponTypeFixed,
		DiscountValue:  s.legacyDiscount,
		DiscountAmount: utils.RoundMoney(discount),
		ReferrerID:     owner.UserID,
		Message:        fmt.Sprintf("Referral code applied: %.2f off", s.legacyDiscount),
	}
}

func (s *couponService) applyCoupon(coupon *models.Coupon, subtotal float64) *models.CouponValidation {
	now := s.now()
	result := &models.CouponValidation{
		Code:          coupon.Code,
		Source:        models.DiscountSourceCoupon,
		DiscountType:  coupon.Type,
		DiscountValue: coupon.Value,
	}

	switch {
	case !coupon.Active:
		result.Message = "This coupon is no longer active"
	case coupon.ValidFrom != nil && now.Before(*coupon.ValidFrom):
		result.Message = "This coupon is not active yet"
	case coupon.ValidUntil != nil && !now.Before(*coupon.ValidUntil):
		result.Message = "This coupon has expired"
	case coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit:
		result.Message = "This coupon has reached its usage limit"
	case coupon.MinOrderAmount > 0 && subtotal < coupon.MinOrderAmount:
		result.Message = fmt.Sprintf("Minimum order of %.2f required", coupon.MinOrderAmount)
	default:
		result.Valid = true
		result.DiscountAmount = couponDiscount(coupon, subtotal)
		result.Message = "Coupon applied"
	}

	return result
}

func couponDiscount(coupon *models.Coupon, subtotal float64) float64 {
	var discount float64
	switch coupon.Type {
	case models.CouponTypePercentage:
		discount = utils.PercentOf(subtotal, coupon.Value)
		if coupon.MaxDiscount > 0 {
			discount = math.Min(discount, coupon.MaxDiscount)
		}
	case models.CouponTypeFixed:
		discount = coupon.Value
		if subtotal > 0 {
			discount = math.Min(discount, subtotal)
		}
	}
	return utils.RoundMoney(discount)
}

func invalidCode(code, message string) *models.CouponValidation {
	return &models.CouponValidation{Code: code, Message: message}
}

func (s *couponService) unverifiable(code string, err error) *models.CouponValidation {
	s.logger.WithError(err).WithField("code", code).Warn("Coupon lookup failed, checkout continues without discount")
	return invalidCode(code, "This code could not be verified right now")
}

func (s *couponService) RedeemCoupon(ctx context.Context, code string, subtotal float64) (*models.CouponValidation, error) {
	result, err := s.ValidateCouponCode(ctx, code, subtotal)
	if err != nil || !result.Valid || result.Source != models.DiscountSourceCoupon {
		return result, err
	}

	coupon, err := s.couponRepo.GetByCode(ctx, result.Code)
	if err != nil {
		return nil, err
	}
	counted, err := s.couponRepo.IncrementUsage(ctx, coupon.ID, coupon.UsageLimit)
	if err != nil {
		return nil, err
	}
	if !counted {
		// Another checkout took the last use after validation.
		return &models.CouponValidation{
			Code:          coupon.Code,
			Source:        models.DiscountSourceCoupon,
			DiscountType:  coupon.Type,
			DiscountValue: coupon.Value,
			Message:       "This coupon has reached its usage limit",
		}, nil
	}

	s.logger.WithField("code", coupon.Code).WithField("used_count", coupon.UsedCount+1).Info("Coupon redeemed")
	return result, nil
}

func (s *couponService) CreateCoupon(ctx context.Context, req *validators.CreateCouponRequest, adminID string) (*models.Coupon, error) {
	coupon, err := NewCouponBuilder(req.Code).
		Type(models.CouponType(req.Type), req.Value).
		Description(req.Description).
		MaxDiscount(req.MaxDiscount).
		MinOrder(req.MinOrderAmount).
		UsageLimit(req.UsageLimit).
		ValidBetween(req.ValidFrom, req.ValidUntil).
		CreatedBy(adminID).
		Build()
	if err != nil {
		return nil, err
	}

	if err := s.couponRepo.Create(ctx, coupon); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"code":       coupon.Code,
		"type":       coupon.Type,
		"created_by": adminID,
	}).Info("Coupon created")

	return coupon, nil
}

func (s *couponService) ListCoupons(ctx context.Context, params *utils.PaginationParams) ([]*models.Coupon, int64, error) {
	return s.couponRepo.List(ctx, utils.NormalizePagination(params))
}
