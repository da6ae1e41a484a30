package shared

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"
	"storefront/internal/utils"
	"storefront/internal/validators"

	"github.com/gin-gonic/gin"
)

type ReferralHandler struct {
	referralService  services.ReferralService
	analyticsService services.AnalyticsService
	captureService   services.CaptureService
}

func NewReferralHandler(
	referralService services.ReferralService,
	analyticsService services.AnalyticsService,
	captureService services.CaptureService,
) *ReferralHandler {
	return &ReferralHandler{
		referralService:  referralService,
		analyticsService: analyticsService,
		captureService:   captureService,
	}
}

// CaptureCode remembers the ?ref= code a visitor landed with
func (h *ReferralHandler) CaptureCode(c *gin.Context) {
	var req validators.CaptureCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}
	if errs := validators.ValidateCaptureCode(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	captured, err := h.captureService.Capture(c.Request.Context(), req.SessionID, req.Code)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Referral code captured", captured)
}

// GetCapturedCode returns the live captured code for a session, if any
func (h *ReferralHandler) GetCapturedCode(c *gin.Context) {
	captured, err := h.captureService.Get(c.Request.Context(), c.Param("session"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	if captured == nil {
		utils.NotFoundResponse(c, "Captured code")
		return
	}

	utils.SuccessResponse(c, "Captured code retrieved", captured)
}

func (h *ReferralHandler) ClearCapturedCode(c *gin.Context) {
	if err := h.captureService.Clear(c.Request.Context(), c.Param("session")); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TrackEvent records a click, view, signup or purchase against a code
func (h *ReferralHandler) TrackEvent(c *gin.Context) {
	var req validators.TrackEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}
	if errs := validators.ValidateTrackEvent(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = c.GetHeader("X-Session-ID")
	}

	event, err := h.analyticsService.TrackEvent(c.Request.Context(), services.TrackEventInput{
		Code:      req.Code,
		EventType: models.ReferralEventType(req.EventType),
		UserID:    req.UserID,
		Visitor: &models.VisitorInfo{
			SessionID: sessionID,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Referer:   c.Request.Referer(),
			Landing:   req.Landing,
		},
	})
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Event tracked", gin.H{"id": event.ID, "event_type": event.EventType})
}

// GetMyReferrals returns the dashboard: stats, tier progress and share link
func (h *ReferralHandler) GetMyReferrals(c *gin.Context) {
	overview, err := h.referralService.GetReferralStats(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Referral stats retrieved", overview)
}

func (h *ReferralHandler) GetMyHistory(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	referrals, total, err := h.referralService.GetReferralHistory(c.Request.Context(), middleware.GetUserID(c), params)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Referral history retrieved", referrals, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

func (h *ReferralHandler) GetMyAnalytics(c *gin.Context) {
	analytics, err := h.analyticsService.GetReferrerAnalytics(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Referral analytics retrieved", analytics)
}

// CustomizeCode renames the caller's code. Allowed once.
func (h *ReferralHandler) CustomizeCode(c *gin.Context) {
	var req validators.CustomizeCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}
	if errs := validators.ValidateCustomizeCode(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	userID := middleware.GetUserID(c)
	// First-time referrers may rename before ever opening the dashboard.
	if _, err := h.referralService.GetOrCreateStats(c.Request.Context(), userID); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	stats, err := h.referralService.CustomizeCode(c.Request.Context(), userID, req.Code)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Referral code updated", gin.H{
		"referral_code": stats.ReferralCode,
		"link":          h.referralService.GenerateReferralLink(stats.ReferralCode),
	})
}

// TrackReferral attributes the signed-in shopper to a referral code
func (h *ReferralHandler) TrackReferral(c *gin.Context) {
	var req validators.TrackReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}
	if errs := validators.ValidateTrackReferral(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	referred := middleware.GetUserID(c)
	if referred == "" {
		referred = req.ReferredUserID
	}

	referral, err := h.referralService.TrackReferral(c.Request.Context(), services.TrackReferralInput{
		Code:           req.Code,
		ReferredUserID: referred,
		Source:         models.ReferralSource(req.Source),
	})
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Referral tracked", referral)
}
