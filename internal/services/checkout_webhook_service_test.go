package services

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/models"
	"storefront/internal/utils"
	"storefront/pkg/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	event *payment.WebhookEvent
	err   error
}

func (v *stubVerifier) ValidateWebhook(ctx context.Context, payload []byte, signature string) (*payment.WebhookEvent, error) {
	return v.event, v.err
}

func checkoutEvent(id, eventType, status string, metadata map[string]string) *payment.WebhookEvent {
	return &payment.WebhookEvent{
		EventID:   id,
		EventType: eventType,
		Checkout: &payment.CheckoutSession{
			ID:                "cs_test_1",
			ClientReferenceID: "shopper",
			AmountTotal:       12000,
			Currency:          "usd",
			PaymentStatus:     status,
			Metadata:          metadata,
		},
	}
}

func newTestWebhookService(f *fixture, verifier payment.WebhookVerifier, autoComplete bool) CheckoutWebhookService {
	return NewCheckoutWebhookService(
		verifier,
		f.referrals,
		newTestCouponService(f),
		NewEventDeduper(f.cache, f.config.WebhookDedupTTL),
		autoComplete,
		"USD",
		nil,
	)
}

func TestWebhookTracksAndCompletesReferral(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedReferrer(t, "referrer", "FRIEND01", 10)

	verifier := &stubVerifier{event: checkoutEvent("evt_1", payment.EventCheckoutCompleted, "paid", map[string]string{
		"referral_code": "friend01",
		"order_id":      "order-77",
	})}
	svc := newTestWebhookService(f, verifier, true)

	outcome, err := svc.HandleStripeWebhook(ctx, []byte("{}"), "sig")
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, outcome.Result)
	assert.True(t, outcome.Completed)

	referral, err := f.referrals.ReferralForCheckoutSession(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, models.ReferralStatusCompleted, referral.Status)
	assert.Equal(t, models.ReferralSourceCheckout, referral.Source)
	assert.Equal(t, "shopper", *referral.ReferredUserID)
	assert.Equal(t, "order-77", *referral.OrderID)
	assert.Equal(t, 12.0, *referral.CommissionEarned)

	// Stripe redelivers the same event.
	outcome, err = svc.HandleStripeWebhook(ctx, []byte("{}"), "sig")
	require.NoError(t, err)
	assert.Equal(t, WebhookDuplicate, outcome.Result)
	assert.Equal(t, int64(1), f.stats(t, "referrer").TotalReferrals)
}

func TestWebhookCompletesOnAsyncPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedReferrer(t, "referrer", "FRIEND01", 10)

	verifier := &stubVerifier{event: checkoutEvent("evt_1", payment.EventCheckoutCompleted, "unpaid", map[string]string{
		"referral_code": "FRIEND01",
	})}
	svc := newTestWebhookService(f, verifier, true)

	outcome, err := svc.HandleStripeWebhook(ctx, nil, "sig")
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, outcome.Result)
	assert.False(t, outcome.Completed)

	verifier.event = checkoutEvent("evt_2", payment.EventCheckoutAsyncPaymentSucceed, "paid", map[string]string{
		"referral_code": "FRIEND01",
	})
	outcome, err = svc.HandleStripeWebhook(ctx, nil, "sig")
	require.NoError(t, err)
	assert.True(t, outcome.Completed)

	referral, err := f.referrals.ReferralForCheckoutSession(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", *referral.OrderID)
}

func TestWebhookWithoutAutoCompleteLeavesReferralPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedReferrer(t, "referrer", "FRIEND01", 10)

	verifier := &stubVerifier{event: checkoutEvent("evt_1", payment.EventCheckoutCompleted, "paid", map[string]string{
		"referral_code": "FRIEND01",
	})}
	outcome, err := newTestWebhookService(f, verifier, false).HandleStripeWebhook(ctx, nil, "sig")
	require.NoError(t, err)
	assert.False(t, outcome.Completed)

	referral, err := f.referrals.ReferralForCheckoutSession(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, models.ReferralStatusPending, referral.Status)
}

func TestWebhookIgnoresUnusableEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	verifier := &stubVerifier{event: checkoutEvent("evt_1", payment.EventCheckoutCompleted, "paid", map[string]string{
		"referral_code": "GHOST123",
	})}
	svc := newTestWebhookService(f, verifier, true)

	outcome, err := svc.HandleStripeWebhook(ctx, nil, "sig")
	require.NoError(t, err)
	assert.Equal(t, WebhookIgnored, outcome.Result)

	verifier.event = &payment.WebhookEvent{EventID: "evt_2", EventType: "invoice.paid"}
	outcome, err = svc.HandleStripeWebhook(ctx, nil, "sig")
	require.NoError(t, err)
	assert.Equal(t, WebhookIgnored, outcome.Result)

	verifier.err = errors.New("signature mismatch")
	_, err = svc.HandleStripeWebhook(ctx, nil, "bad")
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
}

func TestWebhookRedeemsCoupon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCoupon(t, &models.Coupon{Code: "DROP20", Type: models.CouponTypePercentage, Value: 20, Active: true})

	verifier := &stubVerifier{event: checkoutEvent("evt_1", payment.EventCheckoutCompleted, "paid", map[string]string{
		"coupon_code": "DROP20",
	})}
	outcome, err := newTestWebhookService(f, verifier, true).HandleStripeWebhook(ctx, nil, "sig")
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, outcome.Result)

	coupon, err := f.store.Coupons().GetByCode(ctx, "DROP20")
	require.NoError(t, err)
	assert.Equal(t, 1, coupon.UsedCount)
}

func TestWebhookFailureReleasesClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedReferrer(t, "referrer", "FRIEND01", 10)

	verifier := &stubVerifier{event: checkoutEvent("evt_1", payment.EventCheckoutCompleted, "paid", map[string]string{
		"referral_code": "FRIEND01",
	})}
	svc := newTestWebhookService(f, verifier, false)

	f.store.FailNext("referrals.CreateWithIncrement", errors.New("write conflict"))
	_, err := svc.HandleStripeWebhook(ctx, nil, "sig")
	assert.ErrorIs(t, err, utils.ErrStore)

	// The retry is processed rather than treated as a duplicate.
	outcome, err := svc.HandleStripeWebhook(ctx, nil, "sig")
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, outcome.Result)
}

func TestWebhookConvertsZeroDecimalCurrency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedReferrer(t, "referrer", "FRIEND01", 10)

	event := checkoutEvent("evt_jpy", payment.EventCheckoutCompleted, "paid", map[string]string{"referral_code": "FRIEND01"})
	event.Checkout.Currency = "JPY"
	svc := NewCheckoutWebhookService(&stubVerifier{event: event}, f.referrals, newTestCouponService(f),
		NewEventDeduper(f.cache, f.config.WebhookDedupTTL), true, "jpy", nil)

	outcome, err := svc.HandleStripeWebhook(ctx, nil, "sig")
	require.NoError(t, err)
	assert.True(t, outcome.Completed)

	referral, err := f.referrals.ReferralForCheckoutSession(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, 12000.0, *referral.OrderTotal)
	assert.Equal(t, 1200.0, *referral.CommissionEarned)
}

func TestWebhookLeavesForeignCurrencyPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedReferrer(t, "referrer", "FRIEND01", 10)

	event := checkoutEvent("evt_eur", payment.EventCheckoutCompleted, "paid", map[string]string{"referral_code": "FRIEND01"})
	event.Checkout.Currency = "eur"
	outcome, err := newTestWebhookService(f, &stubVerifier{event: event}, true).HandleStripeWebhook(ctx, nil, "sig")
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, outcome.Result)
	assert.False(t, outcome.Completed)

	referral, err := f.referrals.ReferralForCheckoutSession(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, models.ReferralStatusPending, referral.Status)
}
