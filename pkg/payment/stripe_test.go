package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testSecret = "whsec_test_secret"

func signedPayload(t *testing.T, payload string) (string, []byte) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return signed.Header, signed.Payload
}

func TestValidateWebhookParsesCheckoutSession(t *testing.T) {
	payload := `{
		"id": "evt_123",
		"object": "event",
		"type": "checkout.session.completed",
		"created": 1700000000,
		"data": {"object": {
			"id": "cs_test_1",
			"object": "checkout.session",
			"client_reference_id": "user-42",
			"amount_total": 12999,
			"currency": "usd",
			"payment_status": "paid",
			"customer": "cus_9",
			"customer_details": {"email": "buyer@example.com"},
			"metadata": {"referral_code": "drop-2024", "order_id": "ord_7"}
		}}
	}`
	header, body := signedPayload(t, payload)

	event, err := NewStripeProvider(testSecret).ValidateWebhook(context.Background(), body, header)
	require.NoError(t, err)

	assert.Equal(t, "evt_123", event.EventID)
	assert.Equal(t, EventCheckoutCompleted, event.EventType)
	require.NotNil(t, event.Checkout)
	assert.Equal(t, "cs_test_1", event.Checkout.ID)
	assert.Equal(t, "user-42", event.Checkout.ClientReferenceID)
	assert.Equal(t, int64(12999), event.Checkout.AmountTotal)
	assert.Equal(t, "USD", event.Checkout.Currency)
	assert.Equal(t, "cus_9", event.Checkout.CustomerID)
	assert.Equal(t, "buyer@example.com", event.Checkout.CustomerEmail)
	assert.Equal(t, "drop-2024", event.Checkout.Metadata["referral_code"])
	assert.True(t, event.Checkout.IsPaid())
}

func TestValidateWebhookRejectsBadSignature(t *testing.T) {
	header, body := signedPayload(t, `{"id":"evt_1","object":"event","type":"charge.succeeded","data":{"object":{}}}`)

	_, err := NewStripeProvider("whsec_other").ValidateWebhook(context.Background(), body, header)
	assert.Error(t, err)
}

func TestValidateWebhookIgnoresOtherEvents(t *testing.T) {
	header, body := signedPayload(t, `{"id":"evt_2","object":"event","type":"charge.succeeded","data":{"object":{"id":"ch_1","object":"charge"}}}`)

	event, err := NewStripeProvider(testSecret).ValidateWebhook(context.Background(), body, header)
	require.NoError(t, err)
	assert.Equal(t, "charge.succeeded", event.EventType)
	assert.Nil(t, event.Checkout)
}
