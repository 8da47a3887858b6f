package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var (
	ProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "salonpay",
		Name:      "provider_calls_total",
		Help:      "Payment provider operations by provider, operation and outcome.",
	}, []string{"provider", "operation", "outcome"})

	ProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "salonpay",
		Name:      "provider_call_duration_seconds",
		Help:      "Latency of payment provider operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider", "operation"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "salonpay",
		Name:      "webhook_events_total",
		Help:      "Inbound webhooks by provider and result.",
	}, []string{"provider", "result"})
)

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveProviderCall records the outcome and latency of one provider call.
func ObserveProviderCall(provider, operation string, t *Timer, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	ProviderCalls.WithLabelValues(provider, operation, outcome).Inc()
	ProviderLatency.WithLabelValues(provider, operation).Observe(t.Duration().Seconds())
}

func ObserveWebhook(provider, result string) {
	WebhookEvents.WithLabelValues(provider, result).Inc()
}
