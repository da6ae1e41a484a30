package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReferralStats struct {
	ID                    primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID                string             `json:"user_id" bson:"user_id" validate:"required"`
	ReferralCode          string             `json:"referral_code" bson:"referral_code" validate:"required"`
	CodeCustomized        bool               `json:"code_customized" bson:"code_customized"`
	CodeCustomizedAt      *time.Time         `json:"code_customized_at,omitempty" bson:"code_customized_at,omitempty"`
	TotalReferrals        int64              `json:"total_referrals" bson:"total_referrals"`
	SuccessfulReferrals   int64              `json:"successful_referrals" bson:"successful_referrals"`
	CurrentTier           int                `json:"current_tier" bson:"current_tier"`
	CurrentCommissionRate int                `json:"current_commission_rate" bson:"current_commission_rate"`
	TotalEarnings         float64            `json:"total_earnings" bson:"total_earnings"`
	PendingEarnings       float64            `json:"pending_earnings" bson:"pending_earnings"`
	PaidEarnings          float64            `json:"paid_earnings" bson:"paid_earnings"`
	LastRecomputedAt      *time.Time         `json:"last_recomputed_at,omitempty" bson:"last_recomputed_at,omitempty"`
	CreatedAt             time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at" bson:"updated_at"`
}

// Apply copies derived fields onto the stats record.
func (s *ReferralStats) Apply(d DerivedStats) {
	s.TotalReferrals = d.TotalReferrals
	s.SuccessfulReferrals = d.SuccessfulReferrals
	s.CurrentTier = d.CurrentTier
	s.CurrentCommissionRate = d.CurrentCommissionRate
	s.TotalEarnings = d.TotalEarnings
	s.PendingEarnings = d.PendingEarnings
	s.PaidEarnings = d.PaidEarnings
}

func (s *ReferralStats) Derived() DerivedStats {
	return DerivedStats{
		TotalReferrals:        s.TotalReferrals,
		SuccessfulReferrals:   s.SuccessfulReferrals,
		CurrentTier:           s.CurrentTier,
		CurrentCommissionRate: s.CurrentCommissionRate,
		TotalEarnings:         s.TotalEarnings,
		PendingEarnings:       s.PendingEarnings,
		PaidEarnings:          s.PaidEarnings,
	}
}

// UpToDate reports whether a previous recompute already wrote d.
func (s *ReferralStats) UpToDate(d DerivedStats) bool {
	return s.LastRecomputedAt != nil && s.Derived() == d
}

// LedgerTotals is a per-status aggregate of one referrer's ledger.
type LedgerTotals struct {
	PendingCount      int64
	CompletedCount    int64
	PaidCount         int64
	CompletedEarnings float64
	PaidEarnings      float64
}

func (t LedgerTotals) Total() int64 {
	return t.PendingCount + t.CompletedCount + t.PaidCount
}

func (t LedgerTotals) Successful() int64 {
	return t.CompletedCount + t.PaidCount
}

// DerivedStats holds every stats field that only recomputation may write.
type DerivedStats struct {
	TotalReferrals        int64   `json:"total_referrals"`
	SuccessfulReferrals   int64   `json:"successful_referrals"`
	CurrentTier           int     `json:"current_tier"`
	CurrentCommissionRate int     `json:"current_commission_rate"`
	TotalEarnings         float64 `json:"total_earnings"`
	PendingEarnings       float64 `json:"pending_earnings"`
	PaidEarnings          float64 `json:"paid_earnings"`
}

type ReferralOverview struct {
	Stats    *ReferralStats `json:"stats"`
	Progress *TierProgress  `json:"progress"`
	Link     string         `json:"link"`
}
