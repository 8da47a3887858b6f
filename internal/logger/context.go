package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	paymentKey
)

type paymentRef struct {
	provider  string
	paymentID string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// WithPayment tags ctx so every FromCtx line below it names the payment.
func WithPayment(ctx context.Context, provider, paymentID string) context.Context {
	return context.WithValue(ctx, paymentKey, paymentRef{provider: provider, paymentID: paymentID})
}

// FromCtx returns the global logger with request and payment fields from ctx.
func FromCtx(ctx context.Context) *zap.Logger {
	var fields []zap.Field
	if reqID := RequestIDFrom(ctx); reqID != "" {
		fields = append(fields, zap.String("request_id", reqID))
	}
	if ref, ok := ctx.Value(paymentKey).(paymentRef); ok {
		fields = append(fields,
			zap.String("provider", ref.provider),
			zap.String("payment_id", ref.paymentID),
		)
	}
	if len(fields) == 0 {
		return L()
	}
	return L().With(fields...)
}
