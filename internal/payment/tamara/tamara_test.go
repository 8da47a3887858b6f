package tamara

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonpay-be/internal/config"
	"salonpay-be/internal/payment"
	"salonpay-be/internal/security"
)

const notificationKey = "tamara-notify-key"

func newTestAdapter(t *testing.T, h http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return New(config.TamaraConfig{
		APIToken:        "tamara-token",
		APIURL:          srv.URL,
		NotificationKey: notificationKey,
	}, config.CheckoutURLs{
		Success: "https://salon.example/success",
		Failure: "https://salon.example/failure",
		Cancel:  "https://salon.example/cancel",
	})
}

func checkoutRequestFixture() *payment.Request {
	return &payment.Request{
		Provider: payment.ProviderTamara,
		Amount:   decimal.RequireFromString("300.00"),
		Currency: "SAR",
		OrderID:  "booking-9",
		Customer: payment.Customer{Email: "noura@example.com", Phone: "+966501234567", Name: "Noura Ali"},
		Items: []payment.Item{
			{Name: "Hair <color>", Quantity: 2, UnitPrice: decimal.RequireFromString("150.00")},
		},
		ShippingAddress: &payment.Address{Line1: "Olaya St", City: "Riyadh", CountryCode: "sa"},
	}
}

func TestAdapter_CreatePayment(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/checkout", r.URL.Path)
			assert.Equal(t, "Bearer tamara-token", r.Header.Get("Authorization"))

			raw, _ := io.ReadAll(r.Body)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(raw, &body))

			total := body["total_amount"].(map[string]interface{})
			assert.Equal(t, 300.0, total["amount"])
			assert.Equal(t, "SAR", total["currency"])
			assert.Equal(t, "SA", body["country_code"])
			assert.Equal(t, "booking-9", body["order_reference_id"])

			items := body["items"].([]interface{})
			first := items[0].(map[string]interface{})
			assert.Equal(t, "Hair &lt;color&gt;", first["name"])
			assert.Equal(t, 300.0, first["total_amount"].(map[string]interface{})["amount"])

			consumer := body["consumer"].(map[string]interface{})
			assert.Equal(t, "Noura", consumer["first_name"])
			assert.Equal(t, "Ali", consumer["last_name"])

			urls := body["merchant_url"].(map[string]interface{})
			assert.Equal(t, "https://salon.example/success", urls["success"])

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"order_id":"tmr-1","checkout_id":"chk-1","checkout_url":"https://checkout.tamara.co/chk-1","status":"new"}`))
		})

		resp, err := a.CreatePayment(context.Background(), checkoutRequestFixture())
		require.NoError(t, err)
		assert.Equal(t, "tmr-1", resp.PaymentID)
		assert.Equal(t, "https://checkout.tamara.co/chk-1", resp.CheckoutURL)
		assert.Equal(t, payment.StatusPending, resp.Status)
		assert.Equal(t, "chk-1", resp.Metadata["checkoutId"])
	})

	t.Run("ProviderRejects", func(t *testing.T) {
		a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message":"Invalid phone number"}`))
		})

		_, err := a.CreatePayment(context.Background(), checkoutRequestFixture())
		var pe *payment.ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, http.StatusBadRequest, pe.StatusCode)
		assert.Equal(t, "Invalid phone number", pe.Message)
	})

	t.Run("NotConfigured", func(t *testing.T) {
		a := New(config.TamaraConfig{}, config.CheckoutURLs{})
		_, err := a.CreatePayment(context.Background(), checkoutRequestFixture())
		assert.ErrorIs(t, err, payment.ErrNotConfigured)
	})
}

func TestAdapter_GetPayment(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/orders/tmr-1":
			w.Write([]byte(`{"order_id":"tmr-1","order_reference_id":"booking-9","status":"fully_captured","total_amount":{"amount":300,"currency":"SAR"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"Order not found"}`))
		}
	})
	ctx := context.Background()

	d, err := a.GetPayment(ctx, "tmr-1")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusCompleted, d.Status)
	assert.Equal(t, "fully_captured", d.NativeStatus)
	assert.Equal(t, "booking-9", d.OrderID)
	assert.True(t, d.Amount.Equal(decimal.NewFromInt(300)))

	_, err = a.GetPayment(ctx, "missing")
	assert.ErrorIs(t, err, payment.ErrPaymentNotFound)

	assert.Equal(t, payment.StatusCompleted, a.GetPaymentStatus(ctx, "tmr-1"))
	assert.Equal(t, payment.StatusFailed, a.GetPaymentStatus(ctx, "missing"))
}

func TestAdapter_Mutations(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			w.Write([]byte(`{"order_id":"tmr-1","order_reference_id":"booking-9","status":"approved","total_amount":{"amount":300,"currency":"SAR"}}`))
			return
		}
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		gotBody = map[string]interface{}{}
		json.Unmarshal(raw, &gotBody)

		switch r.URL.Path {
		case "/orders/tmr-1/capture":
			w.Write([]byte(`{"capture_id":"cap-1","order_id":"tmr-1","status":"fully_captured"}`))
		case "/orders/tmr-1/refund":
			w.Write([]byte(`{"refund_id":"ref-1","order_id":"tmr-1","status":"partially_refunded"}`))
		case "/orders/tmr-1/cancel":
			w.Write([]byte(`{"cancel_id":"can-1","order_id":"tmr-1","status":"canceled"}`))
		}
	})
	ctx := context.Background()
	amount := decimal.RequireFromString("120.5")

	t.Run("Capture", func(t *testing.T) {
		res, err := a.CapturePayment(ctx, "tmr-1", amount)
		require.NoError(t, err)
		assert.Equal(t, "/orders/tmr-1/capture", gotPath)
		assert.Equal(t, "cap-1", res.OperationID)
		assert.Equal(t, payment.StatusCompleted, res.Status)

		total := gotBody["total_amount"].(map[string]interface{})
		assert.Equal(t, 120.5, total["amount"])
		assert.Equal(t, "SAR", total["currency"])
	})

	t.Run("Refund", func(t *testing.T) {
		res, err := a.RefundPayment(ctx, "tmr-1", amount)
		require.NoError(t, err)
		assert.Equal(t, "/orders/tmr-1/refund", gotPath)
		assert.Equal(t, "ref-1", res.OperationID)
		assert.Equal(t, payment.StatusRefunded, res.Status)
	})

	t.Run("Cancel", func(t *testing.T) {
		res, err := a.CancelPayment(ctx, "tmr-1", amount)
		require.NoError(t, err)
		assert.Equal(t, "/orders/tmr-1/cancel", gotPath)
		assert.Equal(t, "can-1", res.OperationID)
		assert.Equal(t, payment.StatusCancelled, res.Status)
	})
}

func TestAdapter_MapStatus(t *testing.T) {
	a := New(config.TamaraConfig{}, config.CheckoutURLs{})

	cases := map[string]payment.Status{
		"new":                payment.StatusPending,
		"APPROVED":           payment.StatusProcessing,
		"authorised":         payment.StatusProcessing,
		"Fully_Captured":     payment.StatusCompleted,
		"declined":           payment.StatusFailed,
		"expired":            payment.StatusFailed,
		"canceled":           payment.StatusCancelled,
		"partially_refunded": payment.StatusRefunded,
		"something_new":      payment.StatusPending,
		"":                   payment.StatusPending,
	}
	for native, want := range cases {
		assert.Equal(t, want, a.MapStatus(native), native)
	}
}

func TestAdapter_VerifyWebhook(t *testing.T) {
	a := New(config.TamaraConfig{NotificationKey: notificationKey}, config.CheckoutURLs{})
	body := []byte(`{"order_id":"tmr-1","order_reference_id":"booking-9","event_type":"order_captured","data":{"total_amount":{"amount":300,"currency":"SAR"}}}`)

	t.Run("Valid", func(t *testing.T) {
		evt, err := a.VerifyWebhook(body, security.SignHex(body, notificationKey))
		require.NoError(t, err)
		assert.Equal(t, "order_captured", evt.Type)
		assert.Equal(t, "tmr-1", evt.PaymentID)
		assert.Equal(t, "booking-9", evt.OrderID)
		assert.Equal(t, payment.StatusCompleted, evt.Status)
		assert.Equal(t, "SAR", evt.Currency)
		assert.Equal(t, "tmr-1:order_captured:captured:300", evt.DedupeKey())
	})

	t.Run("Separate Refunds", func(t *testing.T) {
		first := []byte(`{"order_id":"tmr-1","event_type":"order_refunded","data":{"refund_id":"rf-1","total_amount":{"amount":300,"currency":"SAR"}}}`)
		second := []byte(`{"order_id":"tmr-1","event_type":"order_refunded","data":{"refund_id":"rf-2","total_amount":{"amount":300,"currency":"SAR"}}}`)

		a1, err := a.VerifyWebhook(first, security.SignHex(first, notificationKey))
		require.NoError(t, err)
		a2, err := a.VerifyWebhook(first, security.SignHex(first, notificationKey))
		require.NoError(t, err)
		b, err := a.VerifyWebhook(second, security.SignHex(second, notificationKey))
		require.NoError(t, err)

		assert.Equal(t, a1.DedupeKey(), a2.DedupeKey())
		assert.NotEqual(t, a1.DedupeKey(), b.DedupeKey())
	})

	t.Run("Tampered", func(t *testing.T) {
		sig := security.SignHex(body, notificationKey)
		tampered := append([]byte{}, body...)
		tampered[len(tampered)-3] = '9'

		_, err := a.VerifyWebhook(tampered, sig)
		assert.ErrorIs(t, err, payment.ErrInvalidSignature)
	})

	t.Run("WrongKey", func(t *testing.T) {
		_, err := a.VerifyWebhook(body, security.SignHex(body, "other"))
		assert.ErrorIs(t, err, payment.ErrInvalidSignature)
	})

	t.Run("MalformedAfterValidSignature", func(t *testing.T) {
		bad := []byte(`not-json`)
		_, err := a.VerifyWebhook(bad, security.SignHex(bad, notificationKey))
		assert.ErrorIs(t, err, payment.ErrMalformedPayload)
	})
}

func TestAdapter_Validate(t *testing.T) {
	a := New(config.TamaraConfig{}, config.CheckoutURLs{})

	assert.Empty(t, a.Validate(checkoutRequestFixture()))

	req := checkoutRequestFixture()
	req.Items = nil
	req.ShippingAddress = nil
	errs := a.Validate(req)
	assert.Contains(t, errs, "items are required for tamara")
	assert.Contains(t, errs, "shipping address is required for tamara")
}
