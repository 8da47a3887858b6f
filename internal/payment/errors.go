package payment

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotConfigured        = errors.New("provider not configured")
	ErrUnsupportedProvider  = errors.New("unsupported provider")
	ErrUnsupportedOperation = errors.New("operation not supported by provider")
	ErrValidation           = errors.New("invalid payment request")
	ErrAmountRequired       = errors.New("amount required")
	ErrProviderFailure      = errors.New("provider request failed")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrMalformedPayload     = errors.New("malformed webhook payload")
)

// ConfigError reports a provider that is missing credentials or disabled.
type ConfigError struct {
	Provider Provider
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s is not configured or enabled", e.Provider)
}

func (e *ConfigError) Unwrap() error { return ErrNotConfigured }

// ValidationError carries every violated constraint, not just the first.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(e.Errors, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type AmountRequiredError struct {
	Provider  Provider
	Operation string
}

func (e *AmountRequiredError) Error() string {
	return fmt.Sprintf("amount required for provider %s to %s a payment", e.Provider, e.Operation)
}

func (e *AmountRequiredError) Unwrap() error { return ErrAmountRequired }

// ProviderError wraps a rejected provider call with the provider's own
// message when one was returned.
type ProviderError struct {
	Provider   Provider
	Operation  string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s failed (status %d): %s", e.Provider, e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Provider, e.Operation, e.Message)
}

func (e *ProviderError) Unwrap() error { return ErrProviderFailure }
