package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"salonpay-be/internal/logger"
	"salonpay-be/internal/payment"
	"salonpay-be/internal/security"
)

// maxWebhookBody caps notification bodies; provider payloads are a few KB.
const maxWebhookBody = 1 << 20

// Webhook returns the handler for one provider's notification route. The
// body is read raw because signatures cover the exact bytes sent.
func (h *PaymentHandler) Webhook(provider payment.Provider) gin.HandlerFunc {
	header := signatureHeaders[provider]

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if !h.enabled(c, provider) {
			return
		}

		signature := c.GetHeader(header)
		if signature == "" {
			respondError(c, http.StatusBadRequest, "Missing "+header+" header")
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
		payload, err := c.GetRawData()
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondError(c, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			respondError(c, http.StatusBadRequest, "Unable to read request body")
			return
		}

		evt, err := h.svc.ConstructWebhookEvent(provider, payload, signature)
		switch {
		case err == nil:
		case errors.Is(err, payment.ErrMalformedPayload):
			respondError(c, http.StatusBadRequest, "Invalid JSON payload")
			return
		case errors.Is(err, payment.ErrInvalidSignature):
			security.LogSecurityEvent(ctx, "webhook_signature_invalid", map[string]interface{}{
				"provider": provider.String(),
				"ip":       c.ClientIP(),
				"reason":   err.Error(),
				"payload":  decodeForLog(payload),
			})
			respondError(c, http.StatusBadRequest, "Invalid signature")
			return
		default:
			respondFailure(c, err, "Webhook processing failed")
			return
		}

		ctx = logger.WithPayment(ctx, provider.String(), evt.PaymentID)
		outcome := h.dispatcher.Dispatch(ctx, evt)
		logger.FromCtx(ctx).Info("webhook received",
			zap.String("event_type", evt.Type),
			zap.String("outcome", string(outcome)),
		)

		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

// decodeForLog returns the parsed payload so masking can walk it, or a
// length marker when the body is not JSON.
func decodeForLog(payload []byte) interface{} {
	var v interface{}
	if err := json.Unmarshal(payload, &v); err != nil {
		return map[string]interface{}{"bytes": len(payload)}
	}
	return v
}
