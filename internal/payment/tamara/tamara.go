package tamara

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"salonpay-be/internal/config"
	"salonpay-be/internal/httpclient"
	"salonpay-be/internal/logger"
	"salonpay-be/internal/payment"
	"salonpay-be/internal/security"
)

const (
	SignatureHeader = "Tamara-Signature"

	paymentType = "PAY_BY_INSTALMENTS"
	instalments = 3
)

type Adapter struct {
	cfg    config.TamaraConfig
	urls   config.CheckoutURLs
	client *resty.Client
}

func New(cfg config.TamaraConfig, urls config.CheckoutURLs) *Adapter {
	return &Adapter{
		cfg:    cfg,
		urls:   urls,
		client: httpclient.New(cfg.APIURL, cfg.APIToken),
	}
}

func (a *Adapter) Provider() payment.Provider { return payment.ProviderTamara }

func (a *Adapter) IsConfigured() bool { return a.cfg.IsConfigured() }

func (a *Adapter) Validate(req *payment.Request) []string {
	var errs []string
	errs = append(errs, payment.RequireItems(req, payment.ProviderTamara)...)
	errs = append(errs, payment.RequireShippingAddress(req, payment.ProviderTamara)...)
	errs = append(errs, payment.RequirePhone(req, payment.ProviderTamara, payment.CountryFor(req))...)
	return errs
}

func (a *Adapter) CreatePayment(ctx context.Context, req *payment.Request) (*payment.Response, error) {
	if !a.IsConfigured() {
		return nil, &payment.ConfigError{Provider: payment.ProviderTamara}
	}

	log := logger.FromCtx(ctx).With(
		zap.String("provider", "tamara"),
		zap.String("order_id", req.OrderID),
		zap.String("amount", req.Amount.String()),
		zap.String("currency", req.Currency),
	)

	body := a.buildCheckout(req)

	var out checkoutResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/checkout")
	if err != nil {
		log.Error("tamara checkout request failed", zap.Error(err))
		return nil, fmt.Errorf("tamara checkout: %w", err)
	}
	if resp.IsError() {
		log.Error("tamara returned non-success status",
			zap.Int("status", resp.StatusCode()),
			zap.ByteString("response", resp.Body()),
		)
		return nil, a.providerError("create", resp)
	}

	log.Info("tamara checkout created", zap.String("tamara_order_id", out.OrderID))

	return &payment.Response{
		Provider:    payment.ProviderTamara,
		PaymentID:   out.OrderID,
		CheckoutURL: out.CheckoutURL,
		Status:      a.MapStatus(out.Status),
		Metadata: map[string]interface{}{
			"checkoutId": out.CheckoutID,
		},
	}, nil
}

func (a *Adapter) GetPayment(ctx context.Context, paymentID string) (*payment.Details, error) {
	if !a.IsConfigured() {
		return nil, &payment.ConfigError{Provider: payment.ProviderTamara}
	}

	var out orderResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/orders/" + url.PathEscape(paymentID))
	if err != nil {
		return nil, fmt.Errorf("tamara get order: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, payment.ErrPaymentNotFound
	}
	if resp.IsError() {
		return nil, a.providerError("retrieve", resp)
	}

	amount, _ := out.TotalAmount.decimal()
	return &payment.Details{
		Provider:     payment.ProviderTamara,
		PaymentID:    out.OrderID,
		OrderID:      out.OrderReferenceID,
		Status:       a.MapStatus(out.Status),
		NativeStatus: out.Status,
		Amount:       amount,
		Currency:     out.TotalAmount.Currency,
	}, nil
}

func (a *Adapter) GetPaymentStatus(ctx context.Context, paymentID string) payment.Status {
	d, err := a.GetPayment(ctx, paymentID)
	if err != nil {
		logger.FromCtx(ctx).Warn("tamara status lookup failed",
			zap.String("payment_id", paymentID), zap.Error(err))
		return payment.StatusFailed
	}
	return d.Status
}

// CapturePayment needs the currency, so the order is read first.
func (a *Adapter) CapturePayment(ctx context.Context, paymentID string, amount decimal.Decimal) (*payment.Result, error) {
	return a.mutate(ctx, "capture", paymentID, amount, func(order *payment.Details) interface{} {
		return captureRequest{
			OrderID:     paymentID,
			TotalAmount: newMoney(amount, order.Currency),
			ShippingInfo: shippingInfo{
				ShippingCompany: "N/A",
			},
		}
	})
}

func (a *Adapter) RefundPayment(ctx context.Context, paymentID string, amount decimal.Decimal) (*payment.Result, error) {
	return a.mutate(ctx, "refund", paymentID, amount, func(order *payment.Details) interface{} {
		return refundRequest{
			TotalAmount: newMoney(amount, order.Currency),
			Comment:     "Refund for order " + order.OrderID,
		}
	})
}

// CancelPayment takes an amount because the cancel endpoint requires it.
func (a *Adapter) CancelPayment(ctx context.Context, paymentID string, amount decimal.Decimal) (*payment.Result, error) {
	return a.mutate(ctx, "cancel", paymentID, amount, func(order *payment.Details) interface{} {
		return cancelRequest{
			TotalAmount: newMoney(amount, order.Currency),
		}
	})
}

func (a *Adapter) mutate(
	ctx context.Context,
	op string,
	paymentID string,
	amount decimal.Decimal,
	build func(order *payment.Details) interface{},
) (*payment.Result, error) {
	order, err := a.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	log := logger.FromCtx(ctx).With(
		zap.String("provider", "tamara"),
		zap.String("operation", op),
		zap.String("payment_id", paymentID),
		zap.String("amount", amount.String()),
	)

	var out operationResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(build(order)).
		SetResult(&out).
		Post(fmt.Sprintf("/orders/%s/%s", url.PathEscape(paymentID), op))
	if err != nil {
		log.Error("tamara request failed", zap.Error(err))
		return nil, fmt.Errorf("tamara %s: %w", op, err)
	}
	if resp.IsError() {
		log.Error("tamara returned non-success status",
			zap.Int("status", resp.StatusCode()),
			zap.ByteString("response", resp.Body()),
		)
		return nil, a.providerError(op, resp)
	}

	return &payment.Result{
		Provider:     payment.ProviderTamara,
		PaymentID:    paymentID,
		OperationID:  out.operationID(),
		Status:       a.MapStatus(out.Status),
		NativeStatus: out.Status,
		Amount:       amount,
	}, nil
}

var statusMap = map[string]payment.Status{
	"new":                payment.StatusPending,
	"approved":           payment.StatusProcessing,
	"authorised":         payment.StatusProcessing,
	"updated":            payment.StatusProcessing,
	"captured":           payment.StatusCompleted,
	"fully_captured":     payment.StatusCompleted,
	"partially_captured": payment.StatusCompleted,
	"declined":           payment.StatusFailed,
	"expired":            payment.StatusFailed,
	"canceled":           payment.StatusCancelled,
	"cancelled":          payment.StatusCancelled,
	"refunded":           payment.StatusRefunded,
	"fully_refunded":     payment.StatusRefunded,
	"partially_refunded": payment.StatusRefunded,
}

func (a *Adapter) MapStatus(native string) payment.Status {
	if s, ok := statusMap[strings.ToLower(strings.TrimSpace(native))]; ok {
		return s
	}
	return payment.StatusPending
}

// VerifyWebhook checks the hex HMAC of the raw body against the
// notification key.
func (a *Adapter) VerifyWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	if err := security.VerifyHexSignature(payload, signature, a.cfg.NotificationKey); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrInvalidSignature, err)
	}

	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrMalformedPayload, err)
	}
	if n.OrderID == "" || n.EventType == "" {
		return nil, fmt.Errorf("%w: missing order_id or event_type", payment.ErrMalformedPayload)
	}

	native := strings.TrimPrefix(strings.ToLower(n.EventType), "order_")
	evt := &payment.WebhookEvent{
		Provider:     payment.ProviderTamara,
		EventID:      n.operationID(),
		Type:         n.EventType,
		PaymentID:    n.OrderID,
		OrderID:      n.OrderReferenceID,
		NativeStatus: native,
		Status:       a.MapStatus(native),
		Payload:      json.RawMessage(payload),
	}
	if n.Data.TotalAmount != nil {
		evt.Amount, _ = n.Data.TotalAmount.decimal()
		evt.Currency = n.Data.TotalAmount.Currency
	}
	return evt, nil
}

func (a *Adapter) providerError(op string, resp *resty.Response) error {
	return &payment.ProviderError{
		Provider:   payment.ProviderTamara,
		Operation:  op,
		StatusCode: resp.StatusCode(),
		Message:    httpclient.ErrorMessage(resp),
	}
}

func (a *Adapter) buildCheckout(req *payment.Request) checkoutRequest {
	first, last := req.Customer.NameParts()
	currency := strings.ToUpper(req.Currency)

	items := make([]item, 0, len(req.Items))
	for i, it := range req.Items {
		ref := it.SKU
		if ref == "" {
			ref = fmt.Sprintf("%s-%d", req.OrderID, i+1)
		}
		itemType := it.Type
		if itemType == "" {
			itemType = "Service"
		}
		items = append(items, item{
			ReferenceID: ref,
			Type:        itemType,
			Name:        security.SanitizeString(it.Name),
			SKU:         ref,
			Quantity:    it.Quantity,
			UnitPrice:   newMoney(it.UnitPrice, currency),
			TotalAmount: newMoney(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))), currency),
		})
	}

	body := checkoutRequest{
		OrderReferenceID: req.OrderID,
		OrderNumber:      req.OrderID,
		TotalAmount:      newMoney(req.Amount, currency),
		Description:      security.SanitizeString(req.Description),
		CountryCode:      payment.CountryFor(req),
		PaymentType:      paymentType,
		Instalments:      instalments,
		Locale:           "en_US",
		Items:            items,
		Consumer: consumer{
			FirstName:   first,
			LastName:    last,
			PhoneNumber: req.Customer.Phone,
			Email:       req.Customer.Email,
		},
		TaxAmount:      newMoney(decimal.Zero, currency),
		ShippingAmount: newMoney(decimal.Zero, currency),
		MerchantURL: merchantURL{
			Success: firstNonEmpty(req.SuccessURL, a.urls.Success),
			Failure: firstNonEmpty(req.FailureURL, a.urls.Failure),
			Cancel:  firstNonEmpty(req.CancelURL, a.urls.Cancel),
		},
	}
	if body.Description == "" {
		body.Description = "Order " + req.OrderID
	}

	if addr := req.ShippingAddress; addr != nil {
		af, al := addr.FirstName, addr.LastName
		if af == "" && al == "" {
			af, al = first, last
		}
		body.ShippingAddress = &address{
			FirstName:   af,
			LastName:    al,
			Line1:       addr.Line1,
			Line2:       addr.Line2,
			Region:      addr.Region,
			PostalCode:  addr.PostalCode,
			City:        addr.City,
			CountryCode: strings.ToUpper(addr.CountryCode),
			PhoneNumber: firstNonEmpty(addr.Phone, req.Customer.Phone),
		}
	}

	return body
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ interface {
	payment.Adapter
	payment.AmountedCapturer
	payment.AmountedRefunder
	payment.AmountedCanceler
} = (*Adapter)(nil)
