package shared

import (
	"io"
	"net/http"

	"storefront/internal/services"
	"storefront/internal/utils"

	"github.com/gin-gonic/gin"
)

// Stripe caps webhook payloads well under this.
const maxWebhookBody = 512 << 10

type WebhookHandler struct {
	webhookService services.CheckoutWebhookService
}

func NewWebhookHandler(webhookService services.CheckoutWebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

func (h *WebhookHandler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.BadRequestResponse(c, "Unable to read request body")
		return
	}

	outcome, err := h.webhookService.HandleStripeWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}
