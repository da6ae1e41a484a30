package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReferralStatus string
type ReferralSource string

const (
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusCompleted ReferralStatus = "completed"
	ReferralStatusPaid      ReferralStatus = "paid"

	ReferralSourceLink     ReferralSource = "link"
	ReferralSourceManual   ReferralSource = "manual"
	ReferralSourceCheckout ReferralSource = "checkout"
)

func (s ReferralStatus) IsValid() bool {
	switch s {
	case ReferralStatusPending, ReferralStatusCompleted, ReferralStatusPaid:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is the single forward step from s.
func (s ReferralStatus) CanTransitionTo(next ReferralStatus) bool {
	switch s {
	case ReferralStatusPending:
		return next == ReferralStatusCompleted
	case ReferralStatusCompleted:
		return next == ReferralStatusPaid
	}
	return false
}

// IsSuccessful reports whether the referral counts toward tier progress.
func (s ReferralStatus) IsSuccessful() bool {
	return s == ReferralStatusCompleted || s == ReferralStatusPaid
}

func (s ReferralSource) IsValid() bool {
	switch s {
	case ReferralSourceLink, ReferralSourceManual, ReferralSourceCheckout:
		return true
	}
	return false
}

type Referral struct {
	ID                primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ReferrerID        string             `json:"referrer_id" bson:"referrer_id" validate:"required"`
	ReferralCode      string             `json:"referral_code" bson:"referral_code" validate:"required"`
	ReferredUserID    *string            `json:"referred_user_id,omitempty" bson:"referred_user_id,omitempty"`
	OrderID           *string            `json:"order_id,omitempty" bson:"order_id,omitempty"`
	OrderTotal        *float64           `json:"order_total,omitempty" bson:"order_total,omitempty"`
	CommissionEarned  *float64           `json:"commission_earned,omitempty" bson:"commission_earned,omitempty"`
	CommissionRate    *int               `json:"commission_rate,omitempty" bson:"commission_rate,omitempty"`
	Status            ReferralStatus     `json:"status" bson:"status" default:"pending"`
	Source            ReferralSource     `json:"source" bson:"source"`
	CheckoutSessionID string             `json:"checkout_session_id,omitempty" bson:"checkout_session_id,omitempty"`
	PayoutReference   *string            `json:"payout_reference,omitempty" bson:"payout_reference,omitempty"`
	CreatedAt         time.Time          `json:"created_at" bson:"created_at"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	PaidAt            *time.Time         `json:"paid_at,omitempty" bson:"paid_at,omitempty"`
	UpdatedAt         time.Time          `json:"updated_at" bson:"updated_at"`
}

// HasSettlement reports whether every field required past pending is set.
func (r *Referral) HasSettlement() bool {
	return r.OrderID != nil && r.OrderTotal != nil && r.CommissionEarned != nil && r.CommissionRate != nil
}

// ReferralCompletion is the settlement written by the pending to completed
// transition.
type ReferralCompletion struct {
	OrderID          string
	OrderTotal       float64
	CommissionRate   int
	CommissionEarned float64
	CompletedAt      time.Time
}

type CompletionResult struct {
	ReferralID       primitive.ObjectID `json:"referral_id"`
	ReferrerID       string             `json:"referrer_id"`
	CommissionEarned float64            `json:"commission_earned"`
	CommissionRate   int                `json:"commission_rate"`
	StatsRecomputed  bool               `json:"stats_recomputed"`
}
