package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

type StripeProvider struct {
	webhookSecret string
}

func NewStripeProvider(webhookSecret string) *StripeProvider {
	return &StripeProvider{
		webhookSecret: webhookSecret,
	}
}

func (s *StripeProvider) ValidateWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to verify webhook signature: %w", err)
	}

	result := &WebhookEvent{
		EventID:   event.ID,
		EventType: string(event.Type),
		CreatedAt: event.Created,
	}

	if strings.HasPrefix(string(event.Type), "checkout.session.") && event.Data != nil {
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("failed to unmarshal checkout session: %w", err)
		}
		result.Checkout = convertCheckoutSession(&session)
	}

	return result, nil
}

// Helper functions
func convertCheckoutSession(session *stripe.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:                session.ID,
		ClientReferenceID: session.ClientReferenceID,
		AmountTotal:       session.AmountTotal,
		Currency:          strings.ToUpper(string(session.Currency)),
		PaymentStatus:     string(session.PaymentStatus),
		Metadata:          session.Metadata,
	}
	if session.Customer != nil {
		out.CustomerID = session.Customer.ID
	}
	if session.CustomerDetails != nil {
		out.CustomerEmail = session.CustomerDetails.Email
	}
	return out
}
