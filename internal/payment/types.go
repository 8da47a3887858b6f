package payment

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Provider string

const (
	ProviderStripe Provider = "stripe"
	ProviderTamara Provider = "tamara"
	ProviderTabby  Provider = "tabby"
)

// AllProviders is the fixed presentation order of providers.
var AllProviders = []Provider{ProviderStripe, ProviderTamara, ProviderTabby}

// ParseProvider accepts a provider id case-insensitively.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllProviders {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, s)
}

func (p Provider) String() string { return string(p) }

// Status is the normalized payment state shared by every provider.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded},
	StatusCompleted:  {StatusRefunded},
	StatusFailed:     {StatusProcessing, StatusCompleted},
}

// CanTransitionTo guards stored state against out-of-order webhook
// deliveries: terminal states never move backwards.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Customer struct {
	ID        string `json:"id,omitempty"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Name      string `json:"name,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// NameParts returns first and last name, splitting Name when the explicit
// parts are absent.
func (c Customer) NameParts() (string, string) {
	if c.FirstName != "" || c.LastName != "" {
		return c.FirstName, c.LastName
	}
	first, last, _ := strings.Cut(strings.TrimSpace(c.Name), " ")
	return first, strings.TrimSpace(last)
}

func (c Customer) FullName() string {
	if c.Name != "" {
		return c.Name
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

type Item struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	SKU       string          `json:"sku,omitempty"`
	Category  string          `json:"category,omitempty"`
	Type      string          `json:"type,omitempty"`
}

type Address struct {
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2,omitempty"`
	City        string `json:"city"`
	Region      string `json:"region,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
	CountryCode string `json:"countryCode"`
	Phone       string `json:"phone,omitempty"`
}

// Request is the provider-agnostic checkout request.
type Request struct {
	Provider        Provider               `json:"provider"`
	Amount          decimal.Decimal        `json:"amount"`
	Currency        string                 `json:"currency"`
	Customer        Customer               `json:"customer"`
	Items           []Item                 `json:"items,omitempty"`
	ShippingAddress *Address               `json:"shippingAddress,omitempty"`
	OrderID         string                 `json:"orderId"`
	Description     string                 `json:"description,omitempty"`
	SuccessURL      string                 `json:"successUrl,omitempty"`
	FailureURL      string                 `json:"failureUrl,omitempty"`
	CancelURL       string                 `json:"cancelUrl,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// Response is the normalized result of creating a payment.
type Response struct {
	Provider     Provider               `json:"provider"`
	PaymentID    string                 `json:"paymentId"`
	CheckoutURL  string                 `json:"checkoutUrl,omitempty"`
	ClientSecret string                 `json:"clientSecret,omitempty"`
	Status       Status                 `json:"status"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Details is the current provider-side view of a payment.
type Details struct {
	Provider     Provider        `json:"provider"`
	PaymentID    string          `json:"paymentId"`
	OrderID      string          `json:"orderId,omitempty"`
	Status       Status          `json:"status"`
	NativeStatus string          `json:"nativeStatus"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency,omitempty"`
}

// Result describes the outcome of a capture, refund or cancellation.
type Result struct {
	Provider     Provider        `json:"provider"`
	PaymentID    string          `json:"paymentId"`
	OperationID  string          `json:"operationId,omitempty"`
	Status       Status          `json:"status"`
	NativeStatus string          `json:"nativeStatus,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
}

// WebhookEvent is a verified, parsed provider notification.
type WebhookEvent struct {
	Provider     Provider        `json:"provider"`
	EventID      string          `json:"eventId,omitempty"`
	Type         string          `json:"type"`
	PaymentID    string          `json:"paymentId"`
	OrderID      string          `json:"orderId,omitempty"`
	NativeStatus string          `json:"nativeStatus,omitempty"`
	Status       Status          `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency,omitempty"`
	Payload      json.RawMessage `json:"-"`
}

// DedupeKey identifies a delivery for idempotent processing. Redeliveries
// of one event share a key while a second refund or capture of the same
// payment does not. Without a provider event id the key falls back to the
// status and amount carried by the notification.
func (e *WebhookEvent) DedupeKey() string {
	if e.EventID != "" {
		return e.PaymentID + ":" + e.Type + ":" + e.EventID
	}
	return e.PaymentID + ":" + e.Type + ":" + e.NativeStatus + ":" + e.Amount.String()
}

type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}
