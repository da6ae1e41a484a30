package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CouponType string
type DiscountSource string

const (
	CouponTypePercentage CouponType = "percentage"
	CouponTypeFixed      CouponType = "fixed"

	DiscountSourceCoupon   DiscountSource = "coupon"
	DiscountSourceReferral DiscountSource = "referral"
)

func (t CouponType) IsValid() bool {
	return t == CouponTypePercentage || t == CouponTypeFixed
}

type Coupon struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Code           string             `json:"code" bson:"code" validate:"required"`
	Description    string             `json:"description,omitempty" bson:"description,omitempty"`
	Type           CouponType         `json:"type" bson:"type" validate:"required"`
	Value          float64            `json:"value" bson:"value" validate:"required"`
	MaxDiscount    float64            `json:"max_discount,omitempty" bson:"max_discount,omitempty"`
	MinOrderAmount float64            `json:"min_order_amount,omitempty" bson:"min_order_amount,omitempty"`
	UsageLimit     int                `json:"usage_limit,omitempty" bson:"usage_limit,omitempty"`
	UsedCount      int                `json:"used_count" bson:"used_count"`
	Active         bool               `json:"active" bson:"active" default:"true"`
	ValidFrom      *time.Time         `json:"valid_from,omitempty" bson:"valid_from,omitempty"`
	ValidUntil     *time.Time         `json:"valid_until,omitempty" bson:"valid_until,omitempty"`
	CreatedBy      string             `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at"`
}

type CouponValidation struct {
	Valid          bool           `json:"valid"`
	Code           string         `json:"code"`
	Source         DiscountSource `json:"source,omitempty"`
	DiscountType   CouponType     `json:"discount_type,omitempty"`
	DiscountValue  float64        `json:"discount_value,omitempty"`
	DiscountAmount float64        `json:"discount_amount"`
	ReferrerID     string         `json:"referrer_id,omitempty"`
	Message        string         `json:"message,omitempty"`
}
