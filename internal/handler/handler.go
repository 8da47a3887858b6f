package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"salonpay-be/internal/idempotency"
	"salonpay-be/internal/logger"
	"salonpay-be/internal/payment"
	"salonpay-be/internal/payment/stripe"
	"salonpay-be/internal/payment/tabby"
	"salonpay-be/internal/payment/tamara"
	"salonpay-be/internal/payment/webhook"
	"salonpay-be/internal/security"
)

const (
	checkoutRateLimit  = 30
	checkoutRateWindow = time.Minute
)

var signatureHeaders = map[payment.Provider]string{
	payment.ProviderStripe: stripe.SignatureHeader,
	payment.ProviderTamara: tamara.SignatureHeader,
	payment.ProviderTabby:  tabby.SignatureHeader,
}

// Dispatcher is the part of webhook.Dispatcher the routes use.
type Dispatcher interface {
	Dispatch(ctx context.Context, evt *payment.WebhookEvent) webhook.Outcome
}

// PaymentHandler translates HTTP requests into facade calls. Repo and
// Cache are optional.
type PaymentHandler struct {
	svc        *payment.Service
	repo       payment.Repository
	cache      idempotency.Cache
	dispatcher Dispatcher
	allow      func(identifier string) bool
}

type Option func(*PaymentHandler)

func WithRepository(repo payment.Repository) Option {
	return func(h *PaymentHandler) { h.repo = repo }
}

func WithCache(cache idempotency.Cache) Option {
	return func(h *PaymentHandler) { h.cache = cache }
}

// WithRateLimiter replaces the per-client checkout limiter.
func WithRateLimiter(allow func(identifier string) bool) Option {
	return func(h *PaymentHandler) { h.allow = allow }
}

func NewPaymentHandler(svc *payment.Service, dispatcher Dispatcher, opts ...Option) *PaymentHandler {
	h := &PaymentHandler{
		svc:        svc,
		dispatcher: dispatcher,
		allow:      security.NewRateLimiter(checkoutRateLimit, checkoutRateWindow),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

type successResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, successResponse{Success: true, Data: data})
}

func respondError(c *gin.Context, status int, msg string, details ...string) {
	c.JSON(status, errorResponse{Error: msg, Details: details})
}

// respondFailure maps a facade error to a status code. Provider failures
// are logged in full and answered with fallback.
func respondFailure(c *gin.Context, err error, fallback string) {
	var (
		cfgErr *payment.ConfigError
		valErr *payment.ValidationError
	)

	switch {
	case errors.As(err, &cfgErr):
		respondError(c, http.StatusServiceUnavailable, cfgErr.Error())
	case errors.As(err, &valErr):
		respondError(c, http.StatusBadRequest, "Validation failed", valErr.Errors...)
	case errors.Is(err, payment.ErrAmountRequired),
		errors.Is(err, payment.ErrUnsupportedOperation),
		errors.Is(err, payment.ErrUnsupportedProvider):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, payment.ErrPaymentNotFound):
		respondError(c, http.StatusNotFound, "Payment not found")
	default:
		logger.FromCtx(c.Request.Context()).Error(fallback,
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		respondError(c, http.StatusInternalServerError, fallback)
	}
}

// enabled answers 503 and returns false when p cannot serve requests.
func (h *PaymentHandler) enabled(c *gin.Context, p payment.Provider) bool {
	if h.svc.IsProviderEnabled(p) {
		return true
	}
	respondError(c, http.StatusServiceUnavailable, (&payment.ConfigError{Provider: p}).Error())
	return false
}

func (h *PaymentHandler) Health(c *gin.Context) {
	providers := h.svc.AvailableProviders()
	if providers == nil {
		providers = []payment.Provider{}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "providers": providers})
}
