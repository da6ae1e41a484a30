package shared

import (
	"storefront/internal/services"
	"storefront/internal/utils"
	"storefront/internal/validators"

	"github.com/gin-gonic/gin"
)

type CouponHandler struct {
	couponService services.CouponService
}

func NewCouponHandler(couponService services.CouponService) *CouponHandler {
	return &CouponHandler{couponService: couponService}
}

// ValidateCoupon checks a checkout code. Unusable codes are a 200 with
// valid=false so checkout can continue without a discount.
func (h *CouponHandler) ValidateCoupon(c *gin.Context) {
	var req validators.ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}
	if errs := validators.ValidateCouponLookup(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	result, err := h.couponService.ValidateCouponCode(c.Request.Context(), req.Code, req.Subtotal)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, result.Message, result)
}
