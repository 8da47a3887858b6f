package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"salonpay-be/internal/logger"
	"salonpay-be/internal/metrics"
)

// Service is the provider-agnostic facade. It keeps no state besides the
// adapters it was built with and is safe for concurrent use.
type Service struct {
	adapters map[Provider]Adapter
}

func NewService(adapters ...Adapter) *Service {
	m := make(map[Provider]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Provider()] = a
	}
	return &Service{adapters: m}
}

// AvailableProviders lists configured providers in AllProviders order.
func (s *Service) AvailableProviders() []Provider {
	var out []Provider
	for _, p := range AllProviders {
		if s.IsProviderEnabled(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s *Service) IsProviderEnabled(p Provider) bool {
	a, ok := s.adapters[p]
	return ok && a.IsConfigured()
}

func (s *Service) adapter(p Provider) (Adapter, error) {
	a, ok := s.adapters[p]
	if !ok {
		if _, err := ParseProvider(string(p)); err != nil {
			return nil, err
		}
		return nil, &ConfigError{Provider: p}
	}
	if !a.IsConfigured() {
		return nil, &ConfigError{Provider: p}
	}
	return a, nil
}

// ValidatePaymentRequest runs the generic and provider checks and returns
// every violation. It has no side effects.
func (s *Service) ValidatePaymentRequest(req *Request) ValidationResult {
	if req == nil {
		return ValidationResult{Valid: false, Errors: []string{"request is required"}}
	}

	errs := validateGeneric(req)

	if a, ok := s.adapters[req.Provider]; ok {
		errs = append(errs, a.Validate(req)...)
	} else {
		errs = append(errs, fmt.Sprintf("unsupported provider %q", req.Provider))
	}

	if errs == nil {
		errs = []string{}
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func (s *Service) CreatePayment(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, &ValidationError{Errors: []string{"request is required"}}
	}

	a, err := s.adapter(req.Provider)
	if err != nil {
		return nil, err
	}

	if res := s.ValidatePaymentRequest(req); !res.Valid {
		return nil, &ValidationError{Errors: res.Errors}
	}

	log := logger.FromCtx(ctx).With(
		zap.String("provider", req.Provider.String()),
		zap.String("order_id", req.OrderID),
	)

	timer := metrics.StartTimer()
	resp, err := a.CreatePayment(ctx, req)
	metrics.ObserveProviderCall(req.Provider.String(), "create", timer, err)
	if err != nil {
		log.Error("create payment failed", zap.Error(err))
		return nil, err
	}

	if resp.Metadata == nil {
		resp.Metadata = req.Metadata
	}

	log.Info("payment created",
		zap.String("payment_id", resp.PaymentID),
		zap.String("status", string(resp.Status)),
	)
	return resp, nil
}

// GetPaymentStatus degrades every failure to StatusFailed so polling
// callers always get a value.
func (s *Service) GetPaymentStatus(ctx context.Context, p Provider, paymentID string) Status {
	a, err := s.adapter(p)
	if err != nil {
		logger.FromCtx(ctx).Warn("status check on unavailable provider",
			zap.String("provider", p.String()), zap.Error(err))
		return StatusFailed
	}
	return a.GetPaymentStatus(ctx, paymentID)
}

// GetPayment is the error-propagating lookup used where not-found must be
// told apart from other failures.
func (s *Service) GetPayment(ctx context.Context, p Provider, paymentID string) (*Details, error) {
	a, err := s.adapter(p)
	if err != nil {
		return nil, err
	}

	timer := metrics.StartTimer()
	details, err := a.GetPayment(ctx, paymentID)
	metrics.ObserveProviderCall(p.String(), "retrieve", timer, err)
	return details, err
}

func (s *Service) CapturePayment(ctx context.Context, p Provider, paymentID string, amount *decimal.Decimal) (*Result, error) {
	a, err := s.adapter(p)
	if err != nil {
		return nil, err
	}
	if err := checkOptionalAmount(amount); err != nil {
		return nil, err
	}

	timer := metrics.StartTimer()
	var res *Result
	switch c := a.(type) {
	case AmountedCapturer:
		if amount == nil {
			return nil, &AmountRequiredError{Provider: p, Operation: "capture"}
		}
		res, err = c.CapturePayment(ctx, paymentID, *amount)
	case AutoCapturer:
		res, err = c.CapturePayment(ctx, paymentID)
	default:
		return nil, fmt.Errorf("%w: %s cannot capture", ErrUnsupportedOperation, p)
	}
	metrics.ObserveProviderCall(p.String(), "capture", timer, err)
	return res, s.logMutation(ctx, p, "capture", paymentID, err)
}

func (s *Service) RefundPayment(ctx context.Context, p Provider, paymentID string, amount *decimal.Decimal) (*Result, error) {
	a, err := s.adapter(p)
	if err != nil {
		return nil, err
	}
	if err := checkOptionalAmount(amount); err != nil {
		return nil, err
	}

	timer := metrics.StartTimer()
	var res *Result
	switch r := a.(type) {
	case AmountedRefunder:
		if amount == nil {
			return nil, &AmountRequiredError{Provider: p, Operation: "refund"}
		}
		res, err = r.RefundPayment(ctx, paymentID, *amount)
	case Refunder:
		res, err = r.RefundPayment(ctx, paymentID, amount)
	default:
		return nil, fmt.Errorf("%w: %s cannot refund", ErrUnsupportedOperation, p)
	}
	metrics.ObserveProviderCall(p.String(), "refund", timer, err)
	return res, s.logMutation(ctx, p, "refund", paymentID, err)
}

// CancelPayment needs amount only for providers implementing
// AmountedCanceler; for the others it is ignored.
func (s *Service) CancelPayment(ctx context.Context, p Provider, paymentID string, amount *decimal.Decimal) (*Result, error) {
	a, err := s.adapter(p)
	if err != nil {
		return nil, err
	}
	if err := checkOptionalAmount(amount); err != nil {
		return nil, err
	}

	timer := metrics.StartTimer()
	var res *Result
	switch c := a.(type) {
	case AmountedCanceler:
		if amount == nil {
			return nil, &AmountRequiredError{Provider: p, Operation: "cancel"}
		}
		res, err = c.CancelPayment(ctx, paymentID, *amount)
	case Canceler:
		res, err = c.CancelPayment(ctx, paymentID)
	default:
		return nil, fmt.Errorf("%w: %s cannot cancel", ErrUnsupportedOperation, p)
	}
	metrics.ObserveProviderCall(p.String(), "cancel", timer, err)
	return res, s.logMutation(ctx, p, "cancel", paymentID, err)
}

// VerifyWebhookSignature reports whether the signature is valid. It never
// returns an error; a verified body that fails to parse still counts as a
// valid signature.
func (s *Service) VerifyWebhookSignature(p Provider, payload []byte, signature string) bool {
	a, err := s.adapter(p)
	if err != nil {
		return false
	}
	_, err = a.VerifyWebhook(payload, signature)
	return err == nil || errors.Is(err, ErrMalformedPayload)
}

// ConstructWebhookEvent verifies and parses in one step, propagating the
// reason on failure.
func (s *Service) ConstructWebhookEvent(p Provider, payload []byte, signature string) (*WebhookEvent, error) {
	a, err := s.adapter(p)
	if err != nil {
		return nil, err
	}
	return a.VerifyWebhook(payload, signature)
}

func (s *Service) logMutation(ctx context.Context, p Provider, op, paymentID string, err error) error {
	log := logger.FromCtx(logger.WithPayment(ctx, p.String(), paymentID)).With(
		zap.String("operation", op),
	)
	if err != nil {
		log.Error("payment operation failed", zap.Error(err))
		return err
	}
	log.Info("payment operation succeeded")
	return nil
}

func checkOptionalAmount(amount *decimal.Decimal) error {
	if amount != nil && !amount.IsPositive() {
		return &ValidationError{Errors: []string{"amount must be greater than 0"}}
	}
	return nil
}
