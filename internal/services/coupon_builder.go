package services

import (
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/validators"
)

// CouponBuilder assembles an admin coupon and validates it once in Build.
type CouponBuilder struct {
	coupon models.Coupon
}

func NewCouponBuilder(code string) *CouponBuilder {
	return &CouponBuilder{coupon: models.Coupon{
		Code:   validators.NormalizeCode(code),
		Active: true,
	}}
}

func (b *CouponBuilder) Percentage(percent float64) *CouponBuilder {
	b.coupon.Type = models.CouponTypePercentage
	b.coupon.Value = percent
	return b
}

func (b *CouponBuilder) Fixed(amount float64) *CouponBuilder {
	b.coupon.Type = models.CouponTypeFixed
	b.coupon.Value = amount
	return b
}

func (b *CouponBuilder) Type(t models.CouponType, value float64) *CouponBuilder {
	b.coupon.Type = t
	b.coupon.Value = value
	return b
}

func (b *CouponBuilder) Description(text string) *CouponBuilder {
	b.coupon.Description = validators.SanitizeInput(text)
	return b
}

func (b *CouponBuilder) MaxDiscount(amount float64) *CouponBuilder {
	b.coupon.MaxDiscount = amount
	return b
}

func (b *CouponBuilder) MinOrder(amount float64) *CouponBuilder {
	b.coupon.MinOrderAmount = amount
	return b
}

func (b *CouponBuilder) UsageLimit(limit int) *CouponBuilder {
	b.coupon.UsageLimit = limit
	return b
}

func (b *CouponBuilder) ValidBetween(from, until *time.Time) *CouponBuilder {
	b.coupon.ValidFrom = from
	b.coupon.ValidUntil = until
	return b
}

func (b *CouponBuilder) Inactive() *CouponBuilder {
	b.coupon.Active = false
	return b
}

func (b *CouponBuilder) CreatedBy(adminID string) *CouponBuilder {
	b.coupon.CreatedBy = adminID
	return b
}

// Build returns every problem at once as validators.ValidationErrors.
func (b *CouponBuilder) Build() (*models.Coupon, error) {
	var errs validators.ValidationErrors
	add := func(field, tag, value, message string) {
		errs = append(errs, validators.ValidationError{Field: field, Tag: tag, Value: value, Message: message})
	}

	c := b.coupon
	if !validators.IsValidReferralCode(c.Code) {
		add("code", "referral_code", c.Code, validators.ErrInvalidReferralCode.Error())
	}
	if !c.Type.IsValid() {
		add("type", "coupon_type", string(c.Type), "Coupon type must be percentage or fixed")
	}
	if c.Value <= 0 {
		add("value", "gt", fmt.Sprint(c.Value), "value must be greater than 0")
	}
	if c.Type == models.CouponTypePercentage && c.Value > 100 {
		add("value", "lte", fmt.Sprint(c.Value), "percentage must be at most 100")
	}
	if c.MaxDiscount < 0 {
		add("max_discount", "gte", fmt.Sprint(c.MaxDiscount), "max_discount must not be negative")
	}
	if c.MinOrderAmount < 0 {
		add("min_order_amount", "gte", fmt.Sprint(c.MinOrderAmount), "min_order_amount must not be negative")
	}
	if c.UsageLimit < 0 {
		add("usage_limit", "gte", fmt.Sprint(c.UsageLimit), "usage_limit must not be negative")
	}
	if c.ValidFrom != nil && c.ValidUntil != nil && !c.ValidUntil.After(*c.ValidFrom) {
		add("valid_until", "gtfield", c.ValidUntil.Format(time.RFC3339), "valid_until must be after valid_from")
	}

	if len(errs) > 0 {
		return nil, errs
	}

	c.Code = strings.ToUpper(c.Code)
	return &c, nil
}
