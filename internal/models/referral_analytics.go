package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReferralEventType string

const (
	ReferralEventClick    ReferralEventType = "click"
	ReferralEventView     ReferralEventType = "view"
	ReferralEventSignup   ReferralEventType = "signup"
	ReferralEventPurchase ReferralEventType = "purchase"
)

func (t ReferralEventType) IsValid() bool {
	switch t {
	case ReferralEventClick, ReferralEventView, ReferralEventSignup, ReferralEventPurchase:
		return true
	}
	return false
}

type ReferralAnalyticsEvent struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ReferralCode string             `json:"referral_code" bson:"referral_code" validate:"required"`
	ReferrerID   string             `json:"referrer_id" bson:"referrer_id" validate:"required"`
	EventType    ReferralEventType  `json:"event_type" bson:"event_type" validate:"required"`
	UserID       *string            `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Visitor      *VisitorInfo       `json:"visitor,omitempty" bson:"visitor,omitempty"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
}

type VisitorInfo struct {
	SessionID string `json:"session_id,omitempty" bson:"session_id,omitempty"`
	IPAddress string `json:"ip_address,omitempty" bson:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty" bson:"user_agent,omitempty"`
	Referer   string `json:"referer,omitempty" bson:"referer,omitempty"`
	Landing   string `json:"landing,omitempty" bson:"landing,omitempty"`
}

type ReferrerAnalytics struct {
	Clicks         int64   `json:"clicks"`
	Views          int64   `json:"views"`
	Signups        int64   `json:"signups"`
	Purchases      int64   `json:"purchases"`
	ConversionRate float64 `json:"conversion_rate"`
}
