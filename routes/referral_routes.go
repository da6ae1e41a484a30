package routes

import (
	"storefront/internal/handlers/shared"

	"github.com/gin-gonic/gin"
)

// SetupReferralRoutes registers the storefront referral and coupon routes.
// publicLimit guards the unauthenticated tracking endpoints.
func SetupReferralRoutes(
	r *gin.RouterGroup,
	referralHandler *shared.ReferralHandler,
	couponHandler *shared.CouponHandler,
	auth gin.HandlerFunc,
	publicLimit gin.HandlerFunc,
) {
	// Public tracking routes (no auth required)
	public := r.Group("/referrals")
	{
		public.POST("/capture", publicLimit, referralHandler.CaptureCode)
		public.GET("/captured/:session", referralHandler.GetCapturedCode)
		public.DELETE("/captured/:session", referralHandler.ClearCapturedCode)
		public.POST("/events", publicLimit, referralHandler.TrackEvent)
	}

	coupons := r.Group("/coupons")
	{
		coupons.POST("/validate", publicLimit, couponHandler.ValidateCoupon)
	}

	// Referrer dashboard (require authentication)
	me := r.Group("/referrals/me")
	me.Use(auth)
	{
		me.GET("", referralHandler.GetMyReferrals)
		me.GET("/history", referralHandler.GetMyHistory)
		me.GET("/analytics", referralHandler.GetMyAnalytics)
		me.PUT("/code", referralHandler.CustomizeCode)
	}

	// Checkout attribution
	r.POST("/referrals/track", auth, referralHandler.TrackReferral)
}

// SetupWebhookRoutes registers provider callbacks. They authenticate by
// signature, not by token.
func SetupWebhookRoutes(r *gin.RouterGroup, webhookHandler *shared.WebhookHandler) {
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/stripe", webhookHandler.StripeWebhook)
	}
}
