package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestWebhookEvent_DedupeKey(t *testing.T) {
	t.Run("Provider Event Ids", func(t *testing.T) {
		first := &WebhookEvent{Provider: ProviderStripe, EventID: "evt_1", Type: "charge.refunded", PaymentID: "pi_1"}
		second := &WebhookEvent{Provider: ProviderStripe, EventID: "evt_2", Type: "charge.refunded", PaymentID: "pi_1"}

		assert.Equal(t, "pi_1:charge.refunded:evt_1", first.DedupeKey())
		assert.NotEqual(t, first.DedupeKey(), second.DedupeKey())
	})

	t.Run("Fallback Includes Status And Amount", func(t *testing.T) {
		evt := &WebhookEvent{
			Type:         "order_refunded",
			PaymentID:    "ord-1",
			NativeStatus: "partially_refunded",
			Amount:       decimal.RequireFromString("40"),
		}
		later := *evt
		later.NativeStatus = "refunded"
		later.Amount = decimal.RequireFromString("100")

		assert.Equal(t, "ord-1:order_refunded:partially_refunded:40", evt.DedupeKey())
		assert.NotEqual(t, evt.DedupeKey(), later.DedupeKey())
	})
}
