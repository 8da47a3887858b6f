package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"salonpay-be/internal/logger"
)

const TypeStatusChanged = "payment.status_changed"

// StatusChanged is emitted once per applied payment status transition.
type StatusChanged struct {
	Type         string    `json:"type"`
	Provider     string    `json:"provider"`
	PaymentID    string    `json:"paymentId"`
	OrderID      string    `json:"orderId,omitempty"`
	From         string    `json:"from,omitempty"`
	To           string    `json:"to"`
	NativeStatus string    `json:"nativeStatus,omitempty"`
	EventType    string    `json:"eventType,omitempty"`
	Amount       string    `json:"amount,omitempty"`
	Currency     string    `json:"currency,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// Key partitions events per payment so consumers see them in order.
func (e StatusChanged) Key() string {
	return e.Provider + ":" + e.PaymentID
}

type Publisher interface {
	PublishStatusChanged(ctx context.Context, evt StatusChanged) error
	Close() error
}

// Writer is the subset of kafka.Writer the producer uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return &KafkaPublisher{writer: w}
}

func NewKafkaPublisherWithWriter(w Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) PublishStatusChanged(ctx context.Context, evt StatusChanged) error {
	if evt.Type == "" {
		evt.Type = TypeStatusChanged
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	b, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(evt.Key()),
		Value: b,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(evt.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.FromCtx(ctx).Error("kafka write failed",
			zap.String("key", evt.Key()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops events; used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishStatusChanged(ctx context.Context, evt StatusChanged) error {
	logger.FromCtx(ctx).Debug("event publishing disabled",
		zap.String("type", TypeStatusChanged),
		zap.String("key", evt.Key()),
	)
	return nil
}

func (NopPublisher) Close() error { return nil }

// New picks the kafka publisher when brokers are configured.
func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return NopPublisher{}
	}
	return NewKafkaPublisher(brokers, topic)
}
