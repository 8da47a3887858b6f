package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Adapter is the part of a provider integration every provider supports.
// Operations that differ in shape between providers live in the
// capability interfaces below instead of being forced into one signature.
type Adapter interface {
	Provider() Provider

	// IsConfigured reports whether credentials are present. No I/O.
	IsConfigured() bool

	// Validate returns the provider-specific violations for req.
	Validate(req *Request) []string

	CreatePayment(ctx context.Context, req *Request) (*Response, error)
	GetPayment(ctx context.Context, paymentID string) (*Details, error)

	// GetPaymentStatus never fails: lookup errors degrade to StatusFailed.
	GetPaymentStatus(ctx context.Context, paymentID string) Status

	// MapStatus is total and case-insensitive.
	MapStatus(native string) Status

	// VerifyWebhook returns ErrInvalidSignature on any verification
	// failure and ErrMalformedPayload when a verified body cannot be parsed.
	VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

// AutoCapturer is implemented by providers that capture on confirmation;
// "capture" is a read of the current state.
type AutoCapturer interface {
	CapturePayment(ctx context.Context, paymentID string) (*Result, error)
}

// AmountedCapturer is implemented by providers that need an explicit
// capture of a given amount.
type AmountedCapturer interface {
	CapturePayment(ctx context.Context, paymentID string, amount decimal.Decimal) (*Result, error)
}

// Refunder refunds the full amount when amount is nil.
type Refunder interface {
	RefundPayment(ctx context.Context, paymentID string, amount *decimal.Decimal) (*Result, error)
}

// AmountedRefunder always needs the amount to refund.
type AmountedRefunder interface {
	RefundPayment(ctx context.Context, paymentID string, amount decimal.Decimal) (*Result, error)
}

type Canceler interface {
	CancelPayment(ctx context.Context, paymentID string) (*Result, error)
}

// AmountedCanceler is for providers whose cancel endpoint requires the
// amount being cancelled.
type AmountedCanceler interface {
	CancelPayment(ctx context.Context, paymentID string, amount decimal.Decimal) (*Result, error)
}
