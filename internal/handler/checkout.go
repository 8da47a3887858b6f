package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"salonpay-be/internal/idempotency"
	"salonpay-be/internal/logger"
	"salonpay-be/internal/payment"
)

type checkoutData struct {
	Provider     payment.Provider `json:"provider"`
	PaymentID    string           `json:"paymentId"`
	CheckoutURL  string           `json:"checkoutUrl,omitempty"`
	ClientSecret string           `json:"clientSecret,omitempty"`
	Status       payment.Status   `json:"status"`
}

// CreateCheckout returns the handler for one provider's create route. A
// replay for the same provider and orderId gets the stored response back.
func (h *PaymentHandler) CreateCheckout(provider payment.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.allow(c.ClientIP()) {
			respondError(c, http.StatusTooManyRequests, "Too many requests")
			return
		}
		if !h.enabled(c, provider) {
			return
		}

		var req payment.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "Invalid request body", err.Error())
			return
		}
		req.Provider = provider

		result := h.svc.ValidatePaymentRequest(&req)
		if !result.Valid {
			respondError(c, http.StatusBadRequest, "Validation failed", result.Errors...)
			return
		}

		ctx := c.Request.Context()
		log := logger.FromCtx(ctx).With(
			zap.String("provider", provider.String()),
			zap.String("order_id", req.OrderID),
		)

		key := idempotency.Key(provider.String(), req.OrderID)
		if h.cache != nil {
			cached, ok, err := h.cache.Get(ctx, key)
			if err != nil {
				log.Warn("idempotency lookup failed", zap.Error(err))
			}
			if ok {
				log.Info("replaying checkout response")
				c.Data(http.StatusOK, "application/json; charset=utf-8", cached)
				return
			}
		}

		resp, err := h.svc.CreatePayment(ctx, &req)
		if err != nil {
			respondFailure(c, err, "Failed to create payment")
			return
		}

		h.savePayment(c, &req, resp)

		body, err := json.Marshal(successResponse{
			Success: true,
			Data: checkoutData{
				Provider:     provider,
				PaymentID:    resp.PaymentID,
				CheckoutURL:  resp.CheckoutURL,
				ClientSecret: resp.ClientSecret,
				Status:       resp.Status,
			},
		})
		if err != nil {
			respondFailure(c, err, "Failed to create payment")
			return
		}

		if h.cache != nil {
			if err := h.cache.Set(ctx, key, body); err != nil {
				log.Warn("idempotency store failed", zap.Error(err))
			}
		}

		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
	}
}

// savePayment records the new payment. The provider call already
// succeeded, so a storage failure is logged and not returned to the client.
func (h *PaymentHandler) savePayment(c *gin.Context, req *payment.Request, resp *payment.Response) {
	if h.repo == nil {
		return
	}
	rec := &payment.Record{
		Provider:    resp.Provider,
		PaymentID:   resp.PaymentID,
		OrderID:     req.OrderID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Status:      resp.Status,
		CheckoutURL: resp.CheckoutURL,
	}
	if rec.Provider == "" {
		rec.Provider = req.Provider
	}
	if err := h.repo.SavePayment(c.Request.Context(), rec); err != nil {
		logger.FromCtx(c.Request.Context()).Error("failed to save payment",
			zap.String("provider", rec.Provider.String()),
			zap.String("payment_id", rec.PaymentID),
			zap.Error(err),
		)
	}
}
