package validators

import (
	"time"
)

type ValidateCouponRequest struct {
	Code     string  `json:"code" validate:"required,min=1,max=32"`
	Subtotal float64 `json:"subtotal" validate:"gte=0,money"`
}

type CreateCouponRequest struct {
	Code           string     `json:"code" validate:"required,referral_code"`
	Description    string     `json:"description" validate:"omitempty,max=256"`
	Type           string     `json:"type" validate:"required,coupon_type"`
	Value          float64    `json:"value" validate:"required,gt=0"`
	MaxDiscount    float64    `json:"max_discount" validate:"gte=0"`
	MinOrderAmount float64    `json:"min_order_amount" validate:"gte=0"`
	UsageLimit     int        `json:"usage_limit" validate:"gte=0"`
	ValidFrom      *time.Time `json:"valid_from"`
	ValidUntil     *time.Time `json:"valid_until"`
}

func ValidateCouponLookup(req *ValidateCouponRequest) ValidationErrors {
	req.Code = NormalizeCode(req.Code)
	return ValidateStruct(req)
}
