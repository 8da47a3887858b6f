package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"

	"salonpay-be/internal/config"
	"salonpay-be/internal/logger"
	"salonpay-be/internal/payment"
	"salonpay-be/internal/security"
)

const SignatureHeader = "Stripe-Signature"

type Adapter struct {
	cfg    config.StripeConfig
	client *client.API
	now    func() time.Time
}

// New builds the adapter against the live API.
func New(cfg config.StripeConfig) *Adapter {
	return NewWithBackend(cfg, "", nil)
}

// NewWithBackend points the SDK at baseURL (empty for the live API) with an
// optional HTTP client. SDK retries are disabled.
func NewWithBackend(cfg config.StripeConfig, baseURL string, httpClient *http.Client) *Adapter {
	bc := &stripego.BackendConfig{
		HTTPClient:        httpClient,
		LeveledLogger:     logger.L().Sugar(),
		MaxNetworkRetries: stripego.Int64(0),
	}
	if baseURL != "" {
		bc.URL = stripego.String(baseURL)
	}

	backend := stripego.GetBackendWithConfig(stripego.APIBackend, bc)

	sc := &client.API{}
	sc.Init(cfg.SecretKey, &stripego.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})

	return &Adapter{cfg: cfg, client: sc, now: time.Now}
}

func (a *Adapter) Provider() payment.Provider { return payment.ProviderStripe }

func (a *Adapter) IsConfigured() bool { return a.cfg.IsConfigured() }

// Validate has nothing beyond the generic checks.
func (a *Adapter) Validate(*payment.Request) []string { return nil }

func (a *Adapter) CreatePayment(ctx context.Context, req *payment.Request) (*payment.Response, error) {
	if !a.IsConfigured() {
		return nil, &payment.ConfigError{Provider: payment.ProviderStripe}
	}

	log := logger.FromCtx(ctx).With(
		zap.String("provider", "stripe"),
		zap.String("order_id", req.OrderID),
		zap.String("amount", req.Amount.String()),
		zap.String("currency", req.Currency),
	)

	params := &stripego.PaymentIntentParams{
		Amount:   stripego.Int64(payment.ToMinorUnits(req.Amount, req.Currency)),
		Currency: stripego.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripego.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripego.Bool(true),
		},
	}
	if req.Description != "" {
		params.Description = stripego.String(security.SanitizeString(req.Description))
	}
	if req.Customer.Email != "" {
		params.ReceiptEmail = stripego.String(req.Customer.Email)
	}
	params.IdempotencyKey = stripego.String("create-" + req.OrderID)
	params.AddMetadata("orderId", req.OrderID)
	if req.Customer.ID != "" {
		params.AddMetadata("customerId", req.Customer.ID)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, fmt.Sprint(v))
	}
	params.Context = ctx

	pi, err := a.client.PaymentIntents.New(params)
	if err != nil {
		log.Error("stripe create payment intent failed", zap.Error(err))
		return nil, mapStripeError("create", err)
	}

	log.Info("stripe payment intent created", zap.String("payment_intent", pi.ID))

	return &payment.Response{
		Provider:     payment.ProviderStripe,
		PaymentID:    pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       a.MapStatus(string(pi.Status)),
	}, nil
}

func (a *Adapter) GetPayment(ctx context.Context, paymentID string) (*payment.Details, error) {
	pi, err := a.retrieve(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return a.details(pi), nil
}

func (a *Adapter) GetPaymentStatus(ctx context.Context, paymentID string) payment.Status {
	d, err := a.GetPayment(ctx, paymentID)
	if err != nil {
		logger.FromCtx(ctx).Warn("stripe status lookup failed",
			zap.String("payment_id", paymentID), zap.Error(err))
		return payment.StatusFailed
	}
	return d.Status
}

// CapturePayment only reads the intent: intents are created with automatic
// capture.
func (a *Adapter) CapturePayment(ctx context.Context, paymentID string) (*payment.Result, error) {
	pi, err := a.retrieve(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return &payment.Result{
		Provider:     payment.ProviderStripe,
		PaymentID:    pi.ID,
		Status:       a.MapStatus(string(pi.Status)),
		NativeStatus: string(pi.Status),
		Amount:       payment.FromMinorUnits(pi.AmountReceived, string(pi.Currency)),
	}, nil
}

// RefundPayment refunds the whole intent when amount is nil.
func (a *Adapter) RefundPayment(ctx context.Context, paymentID string, amount *decimal.Decimal) (*payment.Result, error) {
	pi, err := a.retrieve(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	params := &stripego.RefundParams{
		PaymentIntent: stripego.String(paymentID),
	}
	if amount != nil {
		params.Amount = stripego.Int64(payment.ToMinorUnits(*amount, string(pi.Currency)))
	}
	params.Context = ctx

	r, err := a.client.Refunds.New(params)
	if err != nil {
		logger.FromCtx(ctx).Error("stripe refund failed",
			zap.String("payment_id", paymentID), zap.Error(err))
		return nil, mapStripeError("refund", err)
	}

	status := payment.StatusRefunded
	switch {
	case r.Status == stripego.RefundStatusFailed || r.Status == stripego.RefundStatusCanceled:
		status = payment.StatusFailed
	case amount != nil && r.Amount < refundableAmount(pi):
		// partial refund leaves the payment completed
		status = payment.StatusCompleted
	}

	return &payment.Result{
		Provider:     payment.ProviderStripe,
		PaymentID:    paymentID,
		OperationID:  r.ID,
		Status:       status,
		NativeStatus: string(r.Status),
		Amount:       payment.FromMinorUnits(r.Amount, string(r.Currency)),
	}, nil
}

func (a *Adapter) CancelPayment(ctx context.Context, paymentID string) (*payment.Result, error) {
	if !a.IsConfigured() {
		return nil, &payment.ConfigError{Provider: payment.ProviderStripe}
	}

	params := &stripego.PaymentIntentCancelParams{}
	params.Context = ctx

	pi, err := a.client.PaymentIntents.Cancel(paymentID, params)
	if err != nil {
		logger.FromCtx(ctx).Error("stripe cancel failed",
			zap.String("payment_id", paymentID), zap.Error(err))
		return nil, mapStripeError("cancel", err)
	}

	return &payment.Result{
		Provider:     payment.ProviderStripe,
		PaymentID:    pi.ID,
		Status:       a.MapStatus(string(pi.Status)),
		NativeStatus: string(pi.Status),
		Amount:       payment.FromMinorUnits(pi.Amount, string(pi.Currency)),
	}, nil
}

var statusMap = map[string]payment.Status{
	"requires_payment_method": payment.StatusPending,
	"requires_confirmation":   payment.StatusPending,
	"requires_action":         payment.StatusPending,
	"processing":              payment.StatusProcessing,
	"requires_capture":        payment.StatusProcessing,
	"succeeded":               payment.StatusCompleted,
	"canceled":                payment.StatusCancelled,
}

func (a *Adapter) MapStatus(native string) payment.Status {
	if s, ok := statusMap[strings.ToLower(strings.TrimSpace(native))]; ok {
		return s
	}
	return payment.StatusPending
}

// eventStatus overrides the object status for events whose meaning is
// stronger than the intent's state at delivery time.
var eventStatus = map[string]payment.Status{
	"payment_intent.succeeded":      payment.StatusCompleted,
	"payment_intent.payment_failed": payment.StatusFailed,
	"payment_intent.canceled":       payment.StatusCancelled,
	"payment_intent.processing":     payment.StatusProcessing,
	"charge.refunded":               payment.StatusRefunded,
}

// VerifyWebhook checks the timestamped Stripe-Signature header, then
// decodes the event and the payment intent or charge it carries.
func (a *Adapter) VerifyWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	if err := security.VerifyStripeSignature(payload, signature, a.cfg.WebhookSecret, a.now()); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrInvalidSignature, err)
	}

	var ev stripego.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrMalformedPayload, err)
	}
	if ev.Type == "" || ev.Data == nil {
		return nil, fmt.Errorf("%w: missing type or data", payment.ErrMalformedPayload)
	}

	evt := &payment.WebhookEvent{
		Provider: payment.ProviderStripe,
		EventID:  ev.ID,
		Type:     string(ev.Type),
		Payload:  json.RawMessage(payload),
	}

	objectType, _ := ev.Data.Object["object"].(string)
	switch objectType {
	case "payment_intent":
		var pi stripego.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: %v", payment.ErrMalformedPayload, err)
		}
		evt.PaymentID = pi.ID
		evt.OrderID = pi.Metadata["orderId"]
		evt.NativeStatus = string(pi.Status)
		evt.Status = a.MapStatus(string(pi.Status))
		evt.Amount = payment.FromMinorUnits(pi.Amount, string(pi.Currency))
		evt.Currency = strings.ToUpper(string(pi.Currency))
	case "charge":
		var ch stripego.Charge
		if err := json.Unmarshal(ev.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("%w: %v", payment.ErrMalformedPayload, err)
		}
		if ch.PaymentIntent != nil {
			evt.PaymentID = ch.PaymentIntent.ID
		}
		evt.OrderID = ch.Metadata["orderId"]
		evt.NativeStatus = string(ch.Status)
		evt.Status = payment.StatusPending
		evt.Amount = payment.FromMinorUnits(ch.AmountRefunded, string(ch.Currency))
		evt.Currency = strings.ToUpper(string(ch.Currency))
		if evt.Type == "charge.refunded" && !ch.Refunded {
			// partial refund leaves the payment completed
			evt.Status = payment.StatusCompleted
			return evt, nil
		}
	default:
		evt.Status = payment.StatusPending
	}

	if s, ok := eventStatus[evt.Type]; ok {
		evt.Status = s
	}
	return evt, nil
}

func refundableAmount(pi *stripego.PaymentIntent) int64 {
	if pi.AmountReceived > 0 {
		return pi.AmountReceived
	}
	return pi.Amount
}

func (a *Adapter) retrieve(ctx context.Context, paymentID string) (*stripego.PaymentIntent, error) {
	if !a.IsConfigured() {
		return nil, &payment.ConfigError{Provider: payment.ProviderStripe}
	}

	params := &stripego.PaymentIntentParams{}
	params.Context = ctx

	pi, err := a.client.PaymentIntents.Get(paymentID, params)
	if err != nil {
		return nil, mapStripeError("retrieve", err)
	}
	return pi, nil
}

func (a *Adapter) details(pi *stripego.PaymentIntent) *payment.Details {
	return &payment.Details{
		Provider:     payment.ProviderStripe,
		PaymentID:    pi.ID,
		OrderID:      pi.Metadata["orderId"],
		Status:       a.MapStatus(string(pi.Status)),
		NativeStatus: string(pi.Status),
		Amount:       payment.FromMinorUnits(pi.Amount, string(pi.Currency)),
		Currency:     strings.ToUpper(string(pi.Currency)),
	}
}

// mapStripeError keeps SDK error types out of callers.
func mapStripeError(op string, err error) error {
	var stripeErr *stripego.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripego.ErrorCodeResourceMissing {
			return payment.ErrPaymentNotFound
		}
		return &payment.ProviderError{
			Provider:   payment.ProviderStripe,
			Operation:  op,
			StatusCode: stripeErr.HTTPStatusCode,
			Message:    stripeErr.Msg,
		}
	}
	return fmt.Errorf("stripe %s: %w", op, err)
}

var _ interface {
	payment.Adapter
	payment.AutoCapturer
	payment.Refunder
	payment.Canceler
} = (*Adapter)(nil)
