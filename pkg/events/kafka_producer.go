package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/quiby-ai/staffdesk/pkg/obs"
)

// DefaultSource names the producer in Meta.Source.
const DefaultSource = "staffctl"

var ErrUnknownOp = errors.New("events: unknown record operation")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer publishes RecordChanged events, one topic per operation.
type KafkaProducer struct {
	w      messageWriter
	source string
}

func NewKafkaProducer(brokers []string) *KafkaProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		Async:                  false,
	}
	return &KafkaProducer{w: w, source: DefaultSource}
}

func (p *KafkaProducer) Close() error {
	return p.w.Close()
}

// Publish validates change and writes it to its topic keyed by record id.
func (p *KafkaProducer) Publish(ctx context.Context, change RecordChanged) error {
	topic := change.Topic()
	if topic == "" {
		return fmt.Errorf("%w: %q", ErrUnknownOp, change.Op)
	}
	if err := change.Validate(); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	envelope := NewEnvelope(change.ID, topic, change, NewMeta(p.source, InitiatorUser)).
		WithTraceID(obs.TraceID(ctx))
	return p.PublishEvent(ctx, envelope)
}

func (p *KafkaProducer) PublishEvent(ctx context.Context, envelope Envelope[RecordChanged]) error {
	if res := ValidateEnvelope(envelope); !res.Valid {
		return fmt.Errorf("invalid envelope: %w", res.Err())
	}

	value, err := MarshalEnvelope(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	msg := kafka.Message{
		Topic:   envelope.Type,
		Key:     []byte(envelope.Key),
		Value:   value,
		Headers: envelope.KafkaHeaders(),
		Time:    time.Now(),
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		obs.Error(ctx, "publish failed", err, "topic", envelope.Type, "error_kind", obs.ErrKindKafka)
		return fmt.Errorf("write %s: %w", envelope.Type, err)
	}
	obs.Event(ctx, "events.published", obs.StatusOK, "topic", envelope.Type, "message_id", envelope.MessageID)
	return nil
}

// NopPublisher drops every change. It stands in when no brokers are set.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, RecordChanged) error { return nil }
