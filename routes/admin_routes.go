package routes

import (
	"storefront/internal/handlers/admin"

	"github.com/gin-gonic/gin"
)

// SetupAdminRoutes registers the admin console routes behind auth and the
// admin role check.
func SetupAdminRoutes(
	r *gin.RouterGroup,
	referralHandler *admin.ReferralHandler,
	couponHandler *admin.CouponHandler,
	auth gin.HandlerFunc,
	adminOnly gin.HandlerFunc,
) {
	group := r.Group("/admin")
	group.Use(auth, adminOnly)
	{
		// Ledger
		group.GET("/referrals", referralHandler.ListReferrals)
		group.POST("/referrals/:id/complete", referralHandler.CompleteReferral)
		group.POST("/referrals/:id/pay", referralHandler.MarkPaid)

		// Referrers
		group.GET("/referrers/top", referralHandler.TopReferrers)
		group.POST("/referrers/:user_id/recompute", referralHandler.RecomputeStats)

		// Coupons
		group.POST("/coupons", couponHandler.CreateCoupon)
		group.GET("/coupons", couponHandler.ListCoupons)

		group.GET("/tiers", referralHandler.Tiers)
	}
}
