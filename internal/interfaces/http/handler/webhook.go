package handler

import (
	appcompany "github.com/b2bmarket/backend/internal/application/company"
	"github.com/gin-gonic/gin"
)

// Webhook headers set by the operator backoffice
const (
	WebhookIDHeader        = "X-Webhook-Id"
	WebhookSignatureHeader = "X-Webhook-Signature"
)

// WebhookHandler receives backoffice notifications
type WebhookHandler struct {
	BaseHandler
	activationService *appcompany.ActivationService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(activationService *appcompany.ActivationService) *WebhookHandler {
	return &WebhookHandler{activationService: activationService}
}

// CompanyActivated godoc
// @ID           companyActivatedWebhook
// @Summary      Company activated
// @Description  Signed with HMAC-SHA256 over the raw body. Redelivered ids are acknowledged without effect.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        X-Webhook-Id header string false "Delivery id"
// @Param        X-Webhook-Signature header string true "Hex HMAC-SHA256 of the body"
// @Success      200 {object} APIResponse[appcompany.WebhookResult]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /webhooks/company-activated [post]
func (h *WebhookHandler) CompanyActivated(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.BadRequest(c, "Unable to read request body")
		return
	}

	result, err := h.activationService.HandleWebhook(c.Request.Context(), appcompany.WebhookDelivery{
		ID:        c.GetHeader(WebhookIDHeader),
		Signature: c.GetHeader(WebhookSignatureHeader),
		Body:      body,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
