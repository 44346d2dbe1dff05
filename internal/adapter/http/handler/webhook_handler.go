package handler

import (
	"time"

	"club-operations-core/internal/adapter/http/dto"
	"club-operations-core/internal/core/ports"
	"club-operations-core/pkg/apperror"
	"club-operations-core/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// WebhookHandler receives payment-provider webhook deliveries.
type WebhookHandler struct {
	processor ports.WebhookProcessor
	log       zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(processor ports.WebhookProcessor, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{processor: processor, log: log}
}

// Receive handles POST /api/v1/webhooks/payments.
//
// Malformed envelopes are acknowledged with 2xx: the provider retries
// on any other status, and a payload we cannot parse today will not
// parse tomorrow either. Processing errors return 5xx so the provider
// redelivers.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}

	event, err := dto.ParseWebhookEnvelope(body, time.Now())
	if err != nil {
		h.log.Warn().Err(err).Msg("malformed webhook envelope, acknowledging")
		response.OK(c, dto.WebhookAckResponse{Received: true})
		return
	}

	if err := h.processor.Process(c.Request.Context(), event); err != nil {
		h.log.Error().Err(err).
			Str("provider_event_id", event.ProviderEventID).
			Str("event_type", string(event.Type)).
			Msg("webhook processing failed")
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WebhookAckResponse{Received: true})
}
