package utils

import "time"

// Application Constants
const (
	AppName    = "storefront"
	AppVersion = "1.0.0"

	DefaultCurrency = "USD"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Referral codes
	ReferralCodeLength     = 8
	ReferralCodeMinLength  = 4
	ReferralCodeMaxLength  = 12
	ReferralCodeMaxRetries = 5
	ReferralQueryParam     = "ref"

	// Stored ?ref= codes stay valid for this long.
	ReferralCaptureTTL = 30 * 24 * time.Hour

	// Flat discount applied when a referral code is entered as a coupon.
	LegacyReferralDiscount = 10.0

	// Money
	MinorUnitDecimals = 2
)

// Response Status
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error codes carried in the response envelope.
const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeUnknownCode       = "UNKNOWN_CODE"
	CodeNotFound          = "NOT_FOUND"
	CodeAlreadyCompleted  = "ALREADY_COMPLETED"
	CodeAlreadyCustomized = "ALREADY_CUSTOMIZED"
	CodeCodeTaken         = "CODE_TAKEN"
	CodeAlreadyExists     = "ALREADY_EXISTS"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeStoreError        = "STORE_ERROR"
	CodeValidationError   = "VALIDATION_ERROR"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeRateLimited       = "RATE_LIMITED"
)

// Messages
const (
	MsgInternalServer   = "internal server error"
	MsgUnauthorized     = "unauthorized"
	MsgForbidden        = "forbidden"
	MsgValidationFailed = "validation failed"
	MsgRateLimited      = "too many requests"
)
