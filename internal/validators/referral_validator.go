package validators

import (
	"strings"
)

type CaptureCodeRequest struct {
	SessionID string `json:"session_id" validate:"required,min=8,max=128"`
	Code      string `json:"code" validate:"required,referral_code"`
}

type TrackEventRequest struct {
	Code      string `json:"code" validate:"required,referral_code"`
	EventType string `json:"event_type" validate:"required,event_type"`
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
	UserID    string `json:"user_id" validate:"omitempty,max=128"`
	Landing   string `json:"landing" validate:"omitempty,max=2048"`
}

type TrackReferralRequest struct {
	Code           string `json:"code" validate:"required,referral_code"`
	ReferredUserID string `json:"referred_user_id" validate:"omitempty,max=128"`
	Source         string `json:"source" validate:"omitempty,referral_source"`
}

type CustomizeCodeRequest struct {
	Code string `json:"code" validate:"required"`
}

type CompleteReferralRequest struct {
	OrderID    string  `json:"order_id" validate:"required,max=128"`
	OrderTotal float64 `json:"order_total" validate:"required,gt=0,money"`
}

type MarkPaidRequest struct {
	PayoutReference string `json:"payout_reference" validate:"required,max=128"`
}

func ValidateCaptureCode(req *CaptureCodeRequest) ValidationErrors {
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.Code = NormalizeCode(req.Code)
	return ValidateStruct(req)
}

func ValidateTrackEvent(req *TrackEventRequest) ValidationErrors {
	req.Code = NormalizeCode(req.Code)
	req.EventType = strings.ToLower(strings.TrimSpace(req.EventType))
	req.Landing = SanitizeInput(req.Landing)
	return ValidateStruct(req)
}

func ValidateTrackReferral(req *TrackReferralRequest) ValidationErrors {
	req.Code = NormalizeCode(req.Code)
	req.ReferredUserID = strings.TrimSpace(req.ReferredUserID)
	return ValidateStruct(req)
}

// ValidateCustomizeCode only checks presence. Format is checked by the
// service after the single-use rule, so a spent rename reports as such.
func ValidateCustomizeCode(req *CustomizeCodeRequest) ValidationErrors {
	req.Code = strings.TrimSpace(req.Code)
	return ValidateStruct(req)
}

func ValidateCompleteReferral(req *CompleteReferralRequest) ValidationErrors {
	req.OrderID = strings.TrimSpace(req.OrderID)
	return ValidateStruct(req)
}

func ValidateMarkPaid(req *MarkPaidRequest) ValidationErrors {
	req.PayoutReference = strings.TrimSpace(req.PayoutReference)
	return ValidateStruct(req)
}
