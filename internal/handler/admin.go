package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"salonpay-be/internal/logger"
	"salonpay-be/internal/middleware"
	"salonpay-be/internal/payment"
)

type mutationRequest struct {
	PaymentID string           `json:"paymentId"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
}

type mutation func(ctx context.Context, p payment.Provider, paymentID string, amount *decimal.Decimal) (*payment.Result, error)

func (h *PaymentHandler) Capture(provider payment.Provider) gin.HandlerFunc {
	return h.mutate(provider, "capture", h.svc.CapturePayment)
}

func (h *PaymentHandler) Refund(provider payment.Provider) gin.HandlerFunc {
	return h.mutate(provider, "refund", h.svc.RefundPayment)
}

func (h *PaymentHandler) Cancel(provider payment.Provider) gin.HandlerFunc {
	return h.mutate(provider, "cancel", h.svc.CancelPayment)
}

func (h *PaymentHandler) mutate(provider payment.Provider, op string, fn mutation) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.enabled(c, provider) {
			return
		}

		var req mutationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.PaymentID == "" {
			respondError(c, http.StatusBadRequest, "paymentId is required")
			return
		}

		ctx := logger.WithPayment(c.Request.Context(), provider.String(), req.PaymentID)
		c.Request = c.Request.WithContext(ctx)

		result, err := fn(ctx, provider, req.PaymentID, req.Amount)
		if err != nil {
			respondFailure(c, err, "Failed to "+op+" payment")
			return
		}

		fields := []zap.Field{zap.String("operation", op)}
		if claims, ok := middleware.ClaimsFrom(c); ok {
			fields = append(fields, zap.String("actor", claims.Subject))
		}
		logger.FromCtx(ctx).Info("admin payment mutation", fields...)

		respondOK(c, result)
	}
}
