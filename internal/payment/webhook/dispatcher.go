package webhook

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"salonpay-be/internal/events"
	"salonpay-be/internal/logger"
	"salonpay-be/internal/metrics"
	"salonpay-be/internal/payment"
)

// Store is the persistence the dispatcher needs. payment.Repository
// satisfies it.
type Store interface {
	SavePaymentWebhook(ctx context.Context, evt *payment.WebhookEvent, signatureValid bool) (int64, bool, error)
	ApplyStatus(ctx context.Context, upd payment.StatusUpdate) (payment.Transition, error)
	MarkWebhookProcessed(ctx context.Context, webhookID int64) error
	MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error
}

type HandlerFunc func(ctx context.Context, evt *payment.WebhookEvent) error

type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeFailed    Outcome = "failed"
)

// statusEvents lists the event types that move a payment, per provider.
var statusEvents = map[payment.Provider][]string{
	payment.ProviderStripe: {
		"payment_intent.succeeded",
		"payment_intent.payment_failed",
		"payment_intent.canceled",
		"payment_intent.processing",
		"charge.refunded",
	},
	payment.ProviderTamara: {
		"order_approved",
		"order_authorised",
		"order_captured",
		"order_declined",
		"order_canceled",
		"order_refunded",
		"order_expired",
	},
	payment.ProviderTabby: {
		"authorized",
		"closed",
		"rejected",
		"expired",
		"cancelled",
		"refunded",
	},
}

// Dispatcher routes verified events to per-type handlers. Handler errors
// are logged and recorded, never returned: providers only need to know
// the delivery was received.
type Dispatcher struct {
	store     Store
	publisher events.Publisher
	handlers  map[payment.Provider]map[string]HandlerFunc
}

// NewDispatcher registers the status handlers. store may be nil when no
// database is configured.
func NewDispatcher(store Store, publisher events.Publisher) *Dispatcher {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	d := &Dispatcher{
		store:     store,
		publisher: publisher,
		handlers:  make(map[payment.Provider]map[string]HandlerFunc),
	}
	for provider, types := range statusEvents {
		for _, t := range types {
			d.Handle(provider, t, d.applyStatus)
		}
	}
	return d
}

// Handle registers or replaces the handler for one event type.
func (d *Dispatcher) Handle(provider payment.Provider, eventType string, fn HandlerFunc) {
	if d.handlers[provider] == nil {
		d.handlers[provider] = make(map[string]HandlerFunc)
	}
	d.handlers[provider][eventType] = fn
}

func (d *Dispatcher) Dispatch(ctx context.Context, evt *payment.WebhookEvent) Outcome {
	ctx = logger.WithPayment(ctx, evt.Provider.String(), evt.PaymentID)
	log := logger.FromCtx(ctx).With(zap.String("event_type", evt.Type))

	fn, ok := d.handlers[evt.Provider][evt.Type]
	if !ok {
		log.Info("unhandled webhook event type")
		metrics.ObserveWebhook(evt.Provider.String(), string(OutcomeIgnored))
		return OutcomeIgnored
	}

	var webhookID int64
	if d.store != nil {
		id, dup, err := d.store.SavePaymentWebhook(ctx, evt, true)
		switch {
		case err != nil:
			// keep going: losing the audit row is better than losing the event
			log.Error("failed to save webhook", zap.Error(err))
		case dup:
			log.Info("duplicate webhook ignored", zap.String("dedupe_key", evt.DedupeKey()))
			metrics.ObserveWebhook(evt.Provider.String(), string(OutcomeDuplicate))
			return OutcomeDuplicate
		default:
			webhookID = id
		}
	}

	if err := safeCall(ctx, fn, evt); err != nil {
		log.Error("webhook handler failed", zap.Error(err))
		if d.store != nil && webhookID != 0 {
			if mErr := d.store.MarkWebhookFailed(ctx, webhookID, err.Error()); mErr != nil {
				log.Error("failed to mark webhook failed", zap.Error(mErr))
			}
		}
		metrics.ObserveWebhook(evt.Provider.String(), string(OutcomeFailed))
		return OutcomeFailed
	}

	if d.store != nil && webhookID != 0 {
		if err := d.store.MarkWebhookProcessed(ctx, webhookID); err != nil {
			log.Error("failed to mark webhook processed", zap.Error(err))
		}
	}

	log.Info("webhook processed", zap.String("status", string(evt.Status)))
	metrics.ObserveWebhook(evt.Provider.String(), string(OutcomeProcessed))
	return OutcomeProcessed
}

func (d *Dispatcher) applyStatus(ctx context.Context, evt *payment.WebhookEvent) error {
	if evt.PaymentID == "" {
		return fmt.Errorf("event %s has no payment id", evt.Type)
	}

	tr := payment.Transition{To: evt.Status, Applied: true}
	if d.store != nil {
		var err error
		tr, err = d.store.ApplyStatus(ctx, payment.StatusUpdate{
			Provider:     evt.Provider,
			PaymentID:    evt.PaymentID,
			OrderID:      evt.OrderID,
			Status:       evt.Status,
			NativeStatus: evt.NativeStatus,
			Amount:       evt.Amount,
			Currency:     evt.Currency,
			Source:       "webhook:" + evt.Type,
		})
		if err != nil {
			return fmt.Errorf("apply status: %w", err)
		}
	}

	if !tr.Applied {
		logger.FromCtx(ctx).Info("stale status transition skipped",
			zap.String("from", string(tr.From)),
			zap.String("to", string(tr.To)),
		)
		return nil
	}

	return d.publisher.PublishStatusChanged(ctx, events.StatusChanged{
		Provider:     evt.Provider.String(),
		PaymentID:    evt.PaymentID,
		OrderID:      evt.OrderID,
		From:         string(tr.From),
		To:           string(tr.To),
		NativeStatus: evt.NativeStatus,
		EventType:    evt.Type,
		Amount:       evt.Amount.String(),
		Currency:     evt.Currency,
		OccurredAt:   time.Now().UTC(),
	})
}

func safeCall(ctx context.Context, fn HandlerFunc, evt *payment.WebhookEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return fn(ctx, evt)
}
