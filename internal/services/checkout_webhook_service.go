package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/utils"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"
	"storefront/pkg/payment"
)

const (
	WebhookProcessed = "processed"
	WebhookDuplicate = "duplicate"
	WebhookIgnored   = "ignored"
)

type WebhookOutcome struct {
	EventID    string `json:"event_id"`
	EventType  string `json:"event_type"`
	Result     string `json:"result"`
	ReferralID string `json:"referral_id,omitempty"`
	Completed  bool   `json:"completed"`
}

// CheckoutWebhookService turns verified Stripe checkout events into
// referral tracking and, optionally, completion.
type CheckoutWebhookService interface {
	HandleStripeWebhook(ctx context.Context, payload []byte, signature string) (*WebhookOutcome, error)
}

// EventDeduper claims provider event ids so redeliveries are skipped.
type EventDeduper struct {
	cache CacheService
	ttl   time.Duration
}

func NewEventDeduper(c CacheService, ttl time.Duration) *EventDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &EventDeduper{cache: c, ttl: ttl}
}

// Claim returns false when the event was already claimed.
func (d *EventDeduper) Claim(ctx context.Context, eventID string) (bool, error) {
	return d.cache.SetNX(ctx, d.cache.Key("webhook", eventID), time.Now().Unix(), d.ttl)
}

// Forget releases a claim so the provider's retry is processed again.
func (d *EventDeduper) Forget(ctx context.Context, eventID string) error {
	return d.cache.Delete(ctx, d.cache.Key("webhook", eventID))
}

type checkoutWebhookService struct {
	verifier     payment.WebhookVerifier
	referrals    ReferralService
	coupons      CouponService
	deduper      *EventDeduper
	autoComplete bool
	currency     string
	logger       *logger.Logger
}

func NewCheckoutWebhookService(
	verifier payment.WebhookVerifier,
	referrals ReferralService,
	coupons CouponService,
	deduper *EventDeduper,
	autoComplete bool,
	currency string,
	log *logger.Logger,
) CheckoutWebhookService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &checkoutWebhookService{
		verifier:     verifier,
		referrals:    referrals,
		coupons:      coupons,
		deduper:      deduper,
		autoComplete: autoComplete,
		currency:     strings.ToUpper(strings.TrimSpace(currency)),
		logger:       log.WithField("service", "checkout_webhook"),
	}
}

func (s *checkoutWebhookService) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) (*WebhookOutcome, error) {
	event, err := s.verifier.ValidateWebhook(ctx, payload, signature)
	if err != nil {
		s.logger.LogSecurityEvent("webhook_signature_rejected", "medium", map[string]interface{}{"error": err.Error()})
		return nil, utils.InvalidInput("webhook rejected: %v", err)
	}

	outcome := &WebhookOutcome{EventID: event.EventID, EventType: event.EventType}
	log := s.logger.WithFields(map[string]interface{}{"event_id": event.EventID, "event_type": event.EventType})

	if event.EventType != payment.EventCheckoutCompleted && event.EventType != payment.EventCheckoutAsyncPaymentSucceed {
		outcome.Result = WebhookIgnored
		metrics.RecordWebhookEvent(event.EventType, outcome.Result)
		return outcome, nil
	}

	if s.deduper != nil {
		claimed, err := s.deduper.Claim(ctx, event.EventID)
		if err != nil {
			return nil, utils.StoreError("claim webhook event", err)
		}
		if !claimed {
			log.Info("Duplicate webhook delivery skipped")
			outcome.Result = WebhookDuplicate
			metrics.RecordWebhookEvent(event.EventType, outcome.Result)
			return outcome, nil
		}
	}

	if err := s.process(ctx, event, outcome); err != nil {
		if s.deduper != nil {
			if ferr := s.deduper.Forget(context.WithoutCancel(ctx), event.EventID); ferr != nil {
				log.WithError(ferr).Error("Failed to release webhook claim")
			}
		}
		metrics.RecordWebhookEvent(event.EventType, "failed")
		log.WithError(err).Error("Webhook processing failed")
		return nil, err
	}

	metrics.RecordWebhookEvent(event.EventType, outcome.Result)
	return outcome, nil
}

func (s *checkoutWebhookService) process(ctx context.Context, event *payment.WebhookEvent, outcome *WebhookOutcome) error {
	session := event.Checkout
	outcome.Result = WebhookIgnored
	if session == nil {
		return nil
	}

	var (
		referral *models.Referral
		err      error
	)
	switch event.EventType {
	case payment.EventCheckoutCompleted:
		referral, err = s.trackFromSession(ctx, session)
	case payment.EventCheckoutAsyncPaymentSucceed:
		referral, err = s.referrals.ReferralForCheckoutSession(ctx, session.ID)
		if errors.Is(err, utils.ErrReferralNotFound) {
			referral, err = nil, nil
		}
	}
	if err != nil {
		return err
	}

	if referral != nil {
		outcome.Result = WebhookProcessed
		outcome.ReferralID = referral.ID.Hex()

		if s.autoComplete && session.IsPaid() && referral.Status == models.ReferralStatusPending && s.payableCurrency(session) {
			completed, err := s.complete(ctx, referral, session)
			if err != nil {
				return err
			}
			outcome.Completed = completed
		}
	}

	// Coupon usage is counted last so a failed event retried by Stripe does
	// not count it twice.
	if event.EventType == payment.EventCheckoutCompleted {
		if code := strings.TrimSpace(session.Metadata["coupon_code"]); code != "" {
			result, err := s.coupons.RedeemCoupon(ctx, code, utils.MinorUnitsToAmount(session.AmountTotal, session.Currency))
			switch {
			case err != nil:
				s.logger.WithError(err).WithField("code", code).Error("Failed to record coupon redemption")
			case result.Valid:
				outcome.Result = WebhookProcessed
			}
		}
	}

	return nil
}

func (s *checkoutWebhookService) trackFromSession(ctx context.Context, session *payment.CheckoutSession) (*models.Referral, error) {
	code := strings.TrimSpace(session.Metadata["referral_code"])
	if code == "" {
		return nil, nil
	}

	referral, err := s.referrals.TrackReferral(ctx, TrackReferralInput{
		Code:              code,
		ReferredUserID:    referredUser(session),
		Source:            models.ReferralSourceCheckout,
		CheckoutSessionID: session.ID,
	})
	switch {
	case err == nil:
		return referral, nil
	case errors.Is(err, utils.ErrReferralExists):
		return s.referrals.ReferralForCheckoutSession(ctx, session.ID)
	case errors.Is(err, utils.ErrUnknownCode), errors.Is(err, utils.ErrInvalidInput):
		s.logger.WithError(err).WithReferralCode(code).WithField("session_id", session.ID).Warn("Checkout carried an unusable referral code")
		return nil, nil
	default:
		return nil, err
	}
}

func (s *checkoutWebhookService) complete(ctx context.Context, referral *models.Referral, session *payment.CheckoutSession) (bool, error) {
	orderID := strings.TrimSpace(session.Metadata["order_id"])
	if orderID == "" {
		orderID = session.ID
	}

	_, err := s.referrals.CompleteReferral(ctx, referral.ID, orderID, utils.MinorUnitsToAmount(session.AmountTotal, session.Currency))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, utils.ErrAlreadyCompleted):
		return false, nil
	case errors.Is(err, utils.ErrInvalidInput):
		s.logger.WithError(err).WithField("session_id", session.ID).Warn("Checkout cannot complete referral, leaving it pending")
		return false, nil
	}
	return false, err
}

// payableCurrency reports whether the session total can be credited as
// commission without conversion.
func (s *checkoutWebhookService) payableCurrency(session *payment.CheckoutSession) bool {
	if s.currency == "" || session.Currency == "" || strings.EqualFold(session.Currency, s.currency) {
		return true
	}
	s.logger.WithFields(map[string]interface{}{
		"session_id": session.ID,
		"currency":   session.Currency,
		"expected":   s.currency,
	}).Warn("Checkout currency differs from commission currency, leaving referral pending")
	return false
}

func referredUser(session *payment.CheckoutSession) string {
	if id := strings.TrimSpace(session.Metadata["user_id"]); id != "" {
		return id
	}
	if session.ClientReferenceID != "" {
		return session.ClientReferenceID
	}
	return session.CustomerID
}
