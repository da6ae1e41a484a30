package admin

import (
	"strconv"

	"storefront/internal/models"
	"storefront/internal/services"
	"storefront/internal/utils"
	"storefront/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultTopReferrers = 10
	maxTopReferrers     = 100
)

type ReferralHandler struct {
	referralService services.ReferralService
}

func NewReferralHandler(referralService services.ReferralService) *ReferralHandler {
	return &ReferralHandler{referralService: referralService}
}

// ListReferrals filters the ledger by ?status=, newest first.
func (h *ReferralHandler) ListReferrals(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	status := models.ReferralStatus(c.Query("status"))

	referrals, total, err := h.referralService.ListReferrals(c.Request.Context(), status, params)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Referrals retrieved", referrals, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

// CompleteReferral is the fulfillment trigger: it books commission for a
// pending referral.
func (h *ReferralHandler) CompleteReferral(c *gin.Context) {
	referralID, ok := referralIDParam(c)
	if !ok {
		return
	}

	var req validators.CompleteReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}
	if errs := validators.ValidateCompleteReferral(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	result, err := h.referralService.CompleteReferral(c.Request.Context(), referralID, req.OrderID, req.OrderTotal)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Referral completed", result)
}

func (h *ReferralHandler) MarkPaid(c *gin.Context) {
	referralID, ok := referralIDParam(c)
	if !ok {
		return
	}

	var req validators.MarkPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}
	if errs := validators.ValidateMarkPaid(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	referral, err := h.referralService.MarkReferralPaid(c.Request.Context(), referralID, req.PayoutReference)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Referral marked as paid", referral)
}

func (h *ReferralHandler) RecomputeStats(c *gin.Context) {
	stats, err := h.referralService.RecomputeStats(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Referral stats recomputed", stats)
}

func (h *ReferralHandler) TopReferrers(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultTopReferrers)))
	if err != nil || limit < 1 {
		limit = defaultTopReferrers
	}
	if limit > maxTopReferrers {
		limit = maxTopReferrers
	}

	referrers, err := h.referralService.TopReferrers(c.Request.Context(), limit)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Top referrers retrieved", referrers)
}

func (h *ReferralHandler) Tiers(c *gin.Context) {
	utils.SuccessResponse(c, "Commission tiers retrieved", h.referralService.Tiers())
}

func referralIDParam(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid referral ID")
		return primitive.NilObjectID, false
	}
	return id, true
}
