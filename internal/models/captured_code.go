package models

import "time"

// CapturedCode is a referral code remembered for a visitor session.
type CapturedCode struct {
	Code       string    `json:"code"`
	CapturedAt time.Time `json:"captured_at"`
}

// ExpiredAt reports whether the capture has outlived ttl at now.
func (c CapturedCode) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return !now.Before(c.CapturedAt.Add(ttl))
}
