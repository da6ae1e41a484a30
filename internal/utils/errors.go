package utils

import (
	"errors"
	"fmt"
)

// Referral domain errors. Callers match with errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnknownCode       = errors.New("unknown referral code")
	ErrReferralNotFound  = errors.New("referral not found")
	ErrStatsNotFound     = errors.New("referral stats not found")
	ErrCouponNotFound    = errors.New("coupon not found")
	ErrCouponExists      = errors.New("coupon code already exists")
	ErrStatsExists       = errors.New("referral stats already exist")
	ErrReferralExists    = errors.New("referral already tracked for checkout session")
	ErrAlreadyCompleted  = errors.New("referral already completed")
	ErrAlreadyCustomized = errors.New("referral code already customized")
	ErrCodeTaken         = errors.New("referral code already taken")
	ErrInvalidTransition = errors.New("invalid referral status transition")
	ErrStore             = errors.New("store error")
)

// StoreError marks a persistence failure. The result matches both ErrStore
// and the underlying driver error.
func StoreError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

// InvalidInput wraps ErrInvalidInput with a human readable reason.
func InvalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// IsStoreError reports whether err is a persistence failure.
func IsStoreError(err error) bool {
	return errors.Is(err, ErrStore)
}
