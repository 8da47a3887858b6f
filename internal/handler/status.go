package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"salonpay-be/internal/payment"
)

type statusRequest struct {
	PaymentID string `json:"paymentId" form:"paymentId"`
	Provider  string `json:"provider" form:"provider"`
}

// GetStatus serves POST /payments/status with a JSON body and
// GET /payments/status with query parameters.
func (h *PaymentHandler) GetStatus(c *gin.Context) {
	var req statusRequest

	var err error
	if c.Request.Method == http.MethodGet {
		err = c.ShouldBindQuery(&req)
	} else {
		err = c.ShouldBindJSON(&req)
	}
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.PaymentID == "" {
		respondError(c, http.StatusBadRequest, "paymentId is required")
		return
	}
	if req.Provider == "" {
		respondError(c, http.StatusBadRequest, "provider is required")
		return
	}

	provider, err := payment.ParseProvider(req.Provider)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid provider")
		return
	}
	if !h.enabled(c, provider) {
		return
	}

	details, err := h.svc.GetPayment(c.Request.Context(), provider, req.PaymentID)
	if err != nil {
		respondFailure(c, err, "Failed to retrieve payment status")
		return
	}

	respondOK(c, details)
}
