package tamara

import (
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

var errNoAmount = errors.New("missing amount")

// money is serialized with a JSON number amount in major units.
type money struct {
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency"`
}

func newMoney(amount decimal.Decimal, currency string) money {
	return money{Amount: json.Number(amount.StringFixed(2)), Currency: currency}
}

func (m money) decimal() (decimal.Decimal, error) {
	if m.Amount == "" {
		return decimal.Zero, errNoAmount
	}
	return decimal.NewFromString(m.Amount.String())
}

type item struct {
	ReferenceID string `json:"reference_id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	SKU         string `json:"sku"`
	Quantity    int    `json:"quantity"`
	UnitPrice   money  `json:"unit_price"`
	TotalAmount money  `json:"total_amount"`
}

type consumer struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
}

type address struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2,omitempty"`
	Region      string `json:"region,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	City        string `json:"city"`
	CountryCode string `json:"country_code"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

type merchantURL struct {
	Success string `json:"success,omitempty"`
	Failure string `json:"failure,omitempty"`
	Cancel  string `json:"cancel,omitempty"`
}

type checkoutRequest struct {
	OrderReferenceID string      `json:"order_reference_id"`
	OrderNumber      string      `json:"order_number"`
	TotalAmount      money       `json:"total_amount"`
	Description      string      `json:"description"`
	CountryCode      string      `json:"country_code"`
	PaymentType      string      `json:"payment_type"`
	Instalments      int         `json:"instalments"`
	Locale           string      `json:"locale"`
	Items            []item      `json:"items"`
	Consumer         consumer    `json:"consumer"`
	ShippingAddress  *address    `json:"shipping_address,omitempty"`
	TaxAmount        money       `json:"tax_amount"`
	ShippingAmount   money       `json:"shipping_amount"`
	MerchantURL      merchantURL `json:"merchant_url"`
}

type checkoutResponse struct {
	OrderID     string `json:"order_id"`
	CheckoutID  string `json:"checkout_id"`
	CheckoutURL string `json:"checkout_url"`
	Status      string `json:"status"`
}

type orderResponse struct {
	OrderID          string `json:"order_id"`
	OrderReferenceID string `json:"order_reference_id"`
	Status           string `json:"status"`
	TotalAmount      money  `json:"total_amount"`
}

type shippingInfo struct {
	ShippingCompany string `json:"shipping_company"`
}

type captureRequest struct {
	OrderID      string       `json:"order_id"`
	TotalAmount  money        `json:"total_amount"`
	ShippingInfo shippingInfo `json:"shipping_info"`
}

type refundRequest struct {
	TotalAmount money  `json:"total_amount"`
	Comment     string `json:"comment"`
}

type cancelRequest struct {
	TotalAmount money `json:"total_amount"`
}

type operationResponse struct {
	OrderID   string `json:"order_id"`
	CaptureID string `json:"capture_id"`
	RefundID  string `json:"refund_id"`
	CancelID  string `json:"cancel_id"`
	Status    string `json:"status"`
}

func (r operationResponse) operationID() string {
	switch {
	case r.CaptureID != "":
		return r.CaptureID
	case r.RefundID != "":
		return r.RefundID
	default:
		return r.CancelID
	}
}

type notification struct {
	OrderID          string `json:"order_id"`
	OrderReferenceID string `json:"order_reference_id"`
	OrderNumber      string `json:"order_number"`
	EventType        string `json:"event_type"`
	Data             struct {
		CaptureID   string `json:"capture_id"`
		RefundID    string `json:"refund_id"`
		TotalAmount *money `json:"total_amount"`
	} `json:"data"`
}

func (n *notification) operationID() string {
	switch {
	case n.Data.RefundID != "":
		return "refund:" + n.Data.RefundID
	case n.Data.CaptureID != "":
		return "capture:" + n.Data.CaptureID
	default:
		return ""
	}
}
