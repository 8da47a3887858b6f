package tabby

import "github.com/shopspring/decimal"

type buyer struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type shippingAddress struct {
	City    string `json:"city"`
	Address string `json:"address"`
	Zip     string `json:"zip,omitempty"`
}

// Amounts are decimal strings with two places.
type item struct {
	Title       string `json:"title"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	ReferenceID string `json:"reference_id"`
	Category    string `json:"category"`
}

type order struct {
	ReferenceID string `json:"reference_id"`
	Items       []item `json:"items,omitempty"`
}

type checkoutPayment struct {
	Amount          string            `json:"amount"`
	Currency        string            `json:"currency"`
	Description     string            `json:"description,omitempty"`
	Buyer           buyer             `json:"buyer"`
	ShippingAddress *shippingAddress  `json:"shipping_address,omitempty"`
	Order           order             `json:"order"`
	Meta            map[string]string `json:"meta,omitempty"`
}

type merchantURLs struct {
	Success string `json:"success,omitempty"`
	Cancel  string `json:"cancel,omitempty"`
	Failure string `json:"failure,omitempty"`
}

type checkoutRequest struct {
	Payment      checkoutPayment `json:"payment"`
	Lang         string          `json:"lang"`
	MerchantCode string          `json:"merchant_code"`
	MerchantURLs merchantURLs    `json:"merchant_urls"`
}

type amountRequest struct {
	Amount string `json:"amount"`
}

type operation struct {
	ID     string          `json:"id"`
	Amount decimal.Decimal `json:"amount"`
}

// paymentObject is returned by every payment endpoint and is also the
// webhook body.
type paymentObject struct {
	ID       string          `json:"id"`
	Status   string          `json:"status"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Order    struct {
		ReferenceID string `json:"reference_id"`
	} `json:"order"`
	Captures []operation `json:"captures"`
	Refunds  []operation `json:"refunds"`
}

func (p *paymentObject) lastCaptureID() string {
	if n := len(p.Captures); n > 0 {
		return p.Captures[n-1].ID
	}
	return ""
}

func (p *paymentObject) lastRefundID() string {
	if n := len(p.Refunds); n > 0 {
		return p.Refunds[n-1].ID
	}
	return ""
}

// lastOperationID tells apart notifications for the same payment status,
// e.g. two partial refunds of a closed payment.
func (p *paymentObject) lastOperationID() string {
	if id := p.lastRefundID(); id != "" {
		return "refund:" + id
	}
	if id := p.lastCaptureID(); id != "" {
		return "capture:" + id
	}
	return ""
}

type checkoutResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Payment struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"payment"`
	Configuration struct {
		AvailableProducts struct {
			Installments []struct {
				WebURL string `json:"web_url"`
			} `json:"installments"`
		} `json:"available_products"`
		Products struct {
			Installments struct {
				RejectionReason string `json:"rejection_reason"`
			} `json:"installments"`
		} `json:"products"`
	} `json:"configuration"`
}

func (r *checkoutResponse) checkoutURL() string {
	for _, p := range r.Configuration.AvailableProducts.Installments {
		if p.WebURL != "" {
			return p.WebURL
		}
	}
	return ""
}
