package tabby

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

const SignatureHeader = "X-Tabby-Signature"

type Adapter struct {
	cfg    config.TabbyConfig
	urls   config.CheckoutURLs
	client *resty.Client
}

func New(cfg config.TabbyConfig, urls config.CheckoutURLs) *Adapter {
	return &Adapter{
		cfg:    cfg,
		urls:   urls,
		client: httpclient.New(cfg.APIURL, cfg.SecretKey),
	}
}

func (a *Adapter) Provider() payment.Provider { return payment.ProviderTabby }

func (a *Adapter) IsConfigured() bool { return a.cfg.IsConfigured() }

func (a *Adapter) Validate(req *payment.Request) []string {
	var errs []string
	errs = append(errs, payment.RequireItems(req, payment.ProviderTabby)...)
	errs = append(errs, payment.RequirePhone(req, payment.ProviderTabby, payment.CountryFor(req))...)
	return errs
}

func (a *Adapter) CreatePayment(ctx context.Context, req *payment.Request) (*payment.Response, error) {
	if !a.IsConfigured() {
		return nil, &payment.ConfigError{Provider: payment.ProviderTabby}
	}

	log := logger.FromCtx(ctx).With(
		zap.String("provider", "tabby"),
		zap.String("order_id", req.OrderID),
		zap.String("amount", req.Amount.String()),
		zap.String("currency", req.Currency),
	)

	var out checkoutResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(a.buildCheckout(req)).
		SetResult(&out).
		Post("/api/v2/checkout")
	if err != nil {
		log.Error("tabby checkout request failed", zap.Error(err))
		return nil, fmt.Errorf("tabby checkout: %w", err)
	}
	if resp.IsError() {
		log.Error("tabby returned non-success status",
			zap.Int("status", resp.StatusCode()),
			zap.ByteString("response", resp.Body()),
		)
		return nil, a.providerError("create", resp)
	}

	// a rejected session comes back 200 with no payment to redirect to
	if strings.EqualFold(out.Status, "rejected") {
		reason := out.Configuration.Products.Installments.RejectionReason
		log.Warn("tabby rejected checkout session", zap.String("reason", reason))
		return nil, &payment.ProviderError{
			Provider:  payment.ProviderTabby,
			Operation: "create",
			Message:   "checkout rejected: " + reason,
		}
	}

	log.Info("tabby checkout created",
		zap.String("session_id", out.ID),
		zap.String("payment_id", out.Payment.ID),
	)

	return &payment.Response{
		Provider:    payment.ProviderTabby,
		PaymentID:   out.Payment.ID,
		CheckoutURL: out.checkoutURL(),
		Status:      a.MapStatus(out.Payment.Status),
		Metadata: map[string]interface{}{
			"sessionId": out.ID,
		},
	}, nil
}

func (a *Adapter) GetPayment(ctx context.Context, paymentID string) (*payment.Details, error) {
	if !a.IsConfigured() {
		return nil, &payment.ConfigError{Provider: payment.ProviderTabby}
	}

	var out paymentObject
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/v2/payments/" + url.PathEscape(paymentID))
	if err != nil {
		return nil, fmt.Errorf("tabby get payment: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, payment.ErrPaymentNotFound
	}
	if resp.IsError() {
		return nil, a.providerError("retrieve", resp)
	}

	return &payment.Details{
		Provider:     payment.ProviderTabby,
		PaymentID:    out.ID,
		OrderID:      out.Order.ReferenceID,
		Status:       a.MapStatus(out.Status),
		NativeStatus: out.Status,
		Amount:       out.Amount,
		Currency:     out.Currency,
	}, nil
}

func (a *Adapter) GetPaymentStatus(ctx context.Context, paymentID string) payment.Status {
	d, err := a.GetPayment(ctx, paymentID)
	if err != nil {
		logger.FromCtx(ctx).Warn("tabby status lookup failed",
			zap.String("payment_id", paymentID), zap.Error(err))
		return payment.StatusFailed
	}
	return d.Status
}

func (a *Adapter) CapturePayment(ctx context.Context, paymentID string, amount decimal.Decimal) (*payment.Result, error) {
	out, err := a.post(ctx, "capture", paymentID, "captures", amountRequest{Amount: payment.FormatAmount(amount)})
	if err != nil {
		return nil, err
	}
	return a.result(paymentID, out, out.lastCaptureID(), amount), nil
}

func (a *Adapter) RefundPayment(ctx context.Context, paymentID string, amount decimal.Decimal) (*payment.Result, error) {
	out, err := a.post(ctx, "refund", paymentID, "refunds", amountRequest{Amount: payment.FormatAmount(amount)})
	if err != nil {
		return nil, err
	}
	res := a.result(paymentID, out, out.lastRefundID(), amount)
	// tabby keeps the payment CLOSED after a refund
	res.Status = payment.StatusRefunded
	return res, nil
}

// CancelPayment closes the payment. Closing an authorized payment with no
// captures voids it.
func (a *Adapter) CancelPayment(ctx context.Context, paymentID string) (*payment.Result, error) {
	out, err := a.post(ctx, "cancel", paymentID, "close", nil)
	if err != nil {
		return nil, err
	}
	res := a.result(paymentID, out, "", out.Amount)
	if len(out.Captures) == 0 {
		res.Status = payment.StatusCancelled
	}
	return res, nil
}

func (a *Adapter) post(ctx context.Context, op, paymentID, action string, body interface{}) (*paymentObject, error) {
	if !a.IsConfigured() {
		return nil, &payment.ConfigError{Provider: payment.ProviderTabby}
	}

	log := logger.FromCtx(ctx).With(
		zap.String("provider", "tabby"),
		zap.String("operation", op),
		zap.String("payment_id", paymentID),
	)

	var out paymentObject
	r := a.client.R().SetContext(ctx).SetResult(&out)
	if body != nil {
		r.SetBody(body)
	}

	resp, err := r.Post(fmt.Sprintf("/api/v2/payments/%s/%s", url.PathEscape(paymentID), action))
	if err != nil {
		log.Error("tabby request failed", zap.Error(err))
		return nil, fmt.Errorf("tabby %s: %w", op, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, payment.ErrPaymentNotFound
	}
	if resp.IsError() {
		log.Error("tabby returned non-success status",
			zap.Int("status", resp.StatusCode()),
			zap.ByteString("response", resp.Body()),
		)
		return nil, a.providerError(op, resp)
	}
	return &out, nil
}

func (a *Adapter) result(paymentID string, out *paymentObject, opID string, amount decimal.Decimal) *payment.Result {
	id := out.ID
	if id == "" {
		id = paymentID
	}
	return &payment.Result{
		Provider:     payment.ProviderTabby,
		PaymentID:    id,
		OperationID:  opID,
		Status:       a.MapStatus(out.Status),
		NativeStatus: out.Status,
		Amount:       amount,
	}
}

var statusMap = map[string]payment.Status{
	"created":    payment.StatusPending,
	"authorized": payment.StatusProcessing,
	"closed":     payment.StatusCompleted,
	"rejected":   payment.StatusFailed,
	"expired":    payment.StatusFailed,
	"cancelled":  payment.StatusCancelled,
	"canceled":   payment.StatusCancelled,
	"refunded":   payment.StatusRefunded,
}

func (a *Adapter) MapStatus(native string) payment.Status {
	if s, ok := statusMap[strings.ToLower(strings.TrimSpace(native))]; ok {
		return s
	}
	return payment.StatusPending
}

// VerifyWebhook checks the base64 HMAC of the raw body. The notification
// body is the payment object; its status doubles as the event type.
func (a *Adapter) VerifyWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	if err := security.VerifyBase64Signature(payload, signature, a.cfg.WebhookSecret); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrInvalidSignature, err)
	}

	var p paymentObject
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrMalformedPayload, err)
	}
	if p.ID == "" || p.Status == "" {
		return nil, fmt.Errorf("%w: missing id or status", payment.ErrMalformedPayload)
	}

	native := strings.ToLower(p.Status)
	return &payment.WebhookEvent{
		Provider:     payment.ProviderTabby,
		EventID:      p.lastOperationID(),
		Type:         native,
		PaymentID:    p.ID,
		OrderID:      p.Order.ReferenceID,
		NativeStatus: native,
		Status:       a.MapStatus(native),
		Amount:       p.Amount,
		Currency:     p.Currency,
		Payload:      json.RawMessage(payload),
	}, nil
}

func (a *Adapter) providerError(op string, resp *resty.Response) error {
	return &payment.ProviderError{
		Provider:   payment.ProviderTabby,
		Operation:  op,
		StatusCode: resp.StatusCode(),
		Message:    httpclient.ErrorMessage(resp),
	}
}

func (a *Adapter) buildCheckout(req *payment.Request) checkoutRequest {
	currency := strings.ToUpper(req.Currency)

	items := make([]item, 0, len(req.Items))
	for i, it := range req.Items {
		ref := it.SKU
		if ref == "" {
			ref = fmt.Sprintf("%s-%d", req.OrderID, i+1)
		}
		items = append(items, item{
			Title:       security.SanitizeString(it.Name),
			Quantity:    it.Quantity,
			UnitPrice:   payment.FormatAmount(it.UnitPrice),
			ReferenceID: ref,
			Category:    firstNonEmpty(it.Category, "Beauty"),
		})
	}

	body := checkoutRequest{
		Payment: checkoutPayment{
			Amount:      payment.FormatAmount(req.Amount),
			Currency:    currency,
			Description: security.SanitizeString(req.Description),
			Buyer: buyer{
				Phone: req.Customer.Phone,
				Email: req.Customer.Email,
				Name:  req.Customer.FullName(),
			},
			Order: order{
				ReferenceID: req.OrderID,
				Items:       items,
			},
			Meta: map[string]string{
				"order_id": req.OrderID,
				"customer": req.Customer.ID,
			},
		},
		Lang:         "en",
		MerchantCode: a.cfg.MerchantCode,
		MerchantURLs: merchantURLs{
			Success: firstNonEmpty(req.SuccessURL, a.urls.Success),
			Cancel:  firstNonEmpty(req.CancelURL, a.urls.Cancel),
			Failure: firstNonEmpty(req.FailureURL, a.urls.Failure),
		},
	}

	if addr := req.ShippingAddress; addr != nil {
		line := strings.TrimSpace(addr.Line1 + " " + addr.Line2)
		body.Payment.ShippingAddress = &shippingAddress{
			City:    addr.City,
			Address: line,
			Zip:     addr.PostalCode,
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
	payment.Canceler
} = (*Adapter)(nil)
