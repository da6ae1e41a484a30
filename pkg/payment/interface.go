package payment

import (
	"context"
)

type WebhookVerifier interface {
	ValidateWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error)
}

// Checkout event types the service reacts to.
const (
	EventCheckoutCompleted           = "checkout.session.completed"
	EventCheckoutAsyncPaymentSucceed = "checkout.session.async_payment_succeeded"
)

type WebhookEvent struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	Checkout  *CheckoutSession `json:"checkout,omitempty"`
	CreatedAt int64            `json:"created_at"`
}

type CheckoutSession struct {
	ID                string            `json:"id"`
	ClientReferenceID string            `json:"client_reference_id,omitempty"`
	CustomerID        string            `json:"customer_id,omitempty"`
	CustomerEmail     string            `json:"customer_email,omitempty"`
	AmountTotal       int64             `json:"amount_total"`
	Currency          string            `json:"currency"`
	PaymentStatus     string            `json:"payment_status"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// IsPaid reports whether the funds are captured. Delayed payment methods
// complete the session before the money arrives.
func (s *CheckoutSession) IsPaid() bool {
	return s.PaymentStatus == "paid" || s.PaymentStatus == "no_payment_required"
}
