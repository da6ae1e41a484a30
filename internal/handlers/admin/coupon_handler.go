package admin

import (
	"errors"

	"storefront/internal/middleware"
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

func (h *CouponHandler) CreateCoupon(c *gin.Context) {
	var req validators.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}
	if errs := validators.ValidateStruct(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	coupon, err := h.couponService.CreateCoupon(c.Request.Context(), &req, middleware.GetUserID(c))
	if err != nil {
		var errs validators.ValidationErrors
		if errors.As(err, &errs) {
			utils.ValidationErrorResponse(c, errs.Details())
			return
		}
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Coupon created", coupon)
}

func (h *CouponHandler) ListCoupons(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	coupons, total, err := h.couponService.ListCoupons(c.Request.Context(), params)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Coupons retrieved", coupons, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}
