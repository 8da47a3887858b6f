package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveProviderCall(t *testing.T) {
	before := testutil.ToFloat64(ProviderCalls.WithLabelValues("tabby", "create", OutcomeError))

	ObserveProviderCall("tabby", "create", StartTimer(), errors.New("boom"))

	after := testutil.ToFloat64(ProviderCalls.WithLabelValues("tabby", "create", OutcomeError))
	assert.Equal(t, before+1, after)
}

func TestObserveWebhook(t *testing.T) {
	before := testutil.ToFloat64(WebhookEvents.WithLabelValues("stripe", "invalid_signature"))

	ObserveWebhook("stripe", "invalid_signature")

	assert.Equal(t, before+1, testutil.ToFloat64(WebhookEvents.WithLabelValues("stripe", "invalid_signature")))
}

func TestTimer(t *testing.T) {
	timer := StartTimer()
	time.Sleep(time.Millisecond)
	assert.True(t, timer.Duration() >= time.Millisecond)
}
