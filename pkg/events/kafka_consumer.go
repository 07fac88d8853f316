package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/quiby-ai/staffdesk/pkg/obs"
)

// Handler receives decoded, validated record changes.
type Handler interface {
	Handle(ctx context.Context, envelope Envelope[RecordChanged]) error
}

type HandlerFunc func(ctx context.Context, envelope Envelope[RecordChanged]) error

func (f HandlerFunc) Handle(ctx context.Context, envelope Envelope[RecordChanged]) error {
	return f(ctx, envelope)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type KafkaConsumer struct {
	reader messageReader
}

// NewKafkaConsumer joins groupID and subscribes to topics, or to every
// employee topic when none are given.
func NewKafkaConsumer(brokers []string, groupID string, topics ...string) *KafkaConsumer {
	if len(topics) == 0 {
		topics = Topics
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		GroupTopics: topics,
	})
	return &KafkaConsumer{reader: reader}
}

// Run reads until ctx is cancelled. Messages that fail to decode are logged
// and skipped, as are handler errors.
func (kc *KafkaConsumer) Run(ctx context.Context, h Handler) error {
	for {
		m, err := kc.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		envelope, err := Decode(m.Value)
		if err != nil {
			obs.Warn(ctx, "skipping message", "topic", m.Topic, "offset", m.Offset, "error", err.Error())
			continue
		}

		msgCtx := obs.WithRecord(ctx, envelope.Key)
		if err := h.Handle(msgCtx, envelope); err != nil {
			obs.Error(msgCtx, "handle failed", err, "topic", m.Topic, "error_kind", obs.ErrKindKafka)
		}
	}
}

// Decode parses and validates a RecordChanged envelope.
func Decode(data []byte) (Envelope[RecordChanged], error) {
	envelope, err := UnmarshalEnvelope[RecordChanged](data)
	if err != nil {
		return envelope, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if res := ValidateEnvelope(envelope); !res.Valid {
		return envelope, fmt.Errorf("invalid envelope: %w", res.Err())
	}
	if err := envelope.Payload.Validate(); err != nil {
		return envelope, fmt.Errorf("RecordChanged validation failed: %w", err)
	}
	if envelope.Payload.Topic() != envelope.Type {
		return envelope, fmt.Errorf("payload op %q does not match type %q", envelope.Payload.Op, envelope.Type)
	}
	return envelope, nil
}

func (kc *KafkaConsumer) Close() error {
	if kc.reader != nil {
		return kc.reader.Close()
	}
	return nil
}
