package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/medstock/internal/domain/models"
	service "github.com/mamadbah2/medstock/internal/service/whatsapp"
)

const whatsAppObject = "whatsapp_business_account"

// WebhookHandler exposes the chat channel: Meta's webhook plus a manual send endpoint.
type WebhookHandler struct {
	chat   service.MessagingService
	logger *zap.Logger
}

func NewWebhookHandler(chat service.MessagingService, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{chat: chat, logger: logger.Named("webhook")}
}

// Verify echoes hub.challenge when the subscription token matches.
func (h *WebhookHandler) Verify(c *gin.Context) {
	challenge, err := h.chat.VerifyWebhookToken(c.Query("hub.mode"), c.Query("hub.verify_token"), c.Query("hub.challenge"))
	if err != nil {
		h.logger.Warn("subscription challenge rejected", zap.String("mode", c.Query("hub.mode")), zap.Error(err))
		c.String(http.StatusForbidden, "verification failed")
		return
	}
	c.String(http.StatusOK, challenge)
}

// Receive hands staff messages to the chat service. Once the body decodes the
// callback is always acknowledged: a redelivered sale would be applied twice.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Warn("undecodable callback", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if payload.Object != whatsAppObject {
		h.logger.Warn("ignoring callback for foreign object", zap.String("object", payload.Object))
		c.Status(http.StatusOK)
		return
	}

	messages, statuses := countCallbackItems(payload)
	if messages == 0 {
		h.logger.Debug("delivery receipts only", zap.Int("statuses", statuses))
		c.Status(http.StatusOK)
		return
	}

	if err := h.chat.HandleWebhook(c.Request.Context(), payload); err != nil {
		h.logger.Error("staff messages not fully processed", zap.Int("messages", messages), zap.Error(err))
	}
	c.Status(http.StatusOK)
}

func countCallbackItems(payload models.WebhookPayload) (messages, statuses int) {
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			messages += len(change.Value.Messages)
			statuses += len(change.Value.Statuses)
		}
	}
	return messages, statuses
}

// SendMessage delivers an operator-written notice, e.g. a restock reminder.
func (h *WebhookHandler) SendMessage(c *gin.Context) {
	var req models.OutboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid notice request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	req.To = strings.TrimPrefix(strings.TrimSpace(req.To), "+")
	req.Message = strings.TrimSpace(req.Message)
	if req.To == "" || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recipient and message must not be blank"})
		return
	}

	if err := h.chat.SendOutbound(c.Request.Context(), req); err != nil {
		h.logger.Error("notice not delivered", zap.String("to", req.To), zap.Int("length", len(req.Message)), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to send message"})
		return
	}
	c.Status(http.StatusAccepted)
}
