package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/otabekdev/restockbot/internal/domain/models"
	"github.com/otabekdev/restockbot/internal/service/bot"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler handles inbound Telegram HTTP events.
type WebhookHandler struct {
	svc    bot.Service
	secret string
	logger *zap.Logger
}

// NewWebhookHandler constructs the HTTP handler adapter.
func NewWebhookHandler(svc bot.Service, secret string, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{svc: svc, secret: secret, logger: logger}
}

// Receive ingests webhook POST callbacks from Telegram. Updates are always
// acknowledged with 200 once authenticated; failures are logged and handled
// internally so Telegram does not redeliver them endlessly.
func (h *WebhookHandler) Receive(c *gin.Context) {
	if c.GetHeader(secretTokenHeader) != h.secret {
		h.logger.Warn("webhook secret token mismatch", zap.String("client_ip", c.ClientIP()))
		c.Status(http.StatusForbidden)
		return
	}

	var update models.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.Warn("invalid webhook payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := h.svc.HandleUpdate(c.Request.Context(), update); err != nil {
		h.logger.Error("failed processing update", zap.Error(err), zap.Int64("update_id", update.UpdateID))
	}

	c.Status(http.StatusOK)
}
