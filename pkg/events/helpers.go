package events

import (
	"time"

	"github.com/google/uuid"
)

// NewEnvelope creates a new envelope with a fresh message id.
func NewEnvelope[T any](key, eventType string, payload T, meta Meta) Envelope[T] {
	return Envelope[T]{
		MessageID:  uuid.NewString(),
		Key:        key,
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
		Meta:       meta,
	}
}

// NewMeta creates a new Meta struct with the required fields.
func NewMeta(source string, initiator Initiator) Meta {
	return Meta{
		Source:        source,
		Initiator:     initiator,
		Retries:       0,
		SchemaVersion: SchemaVersionV1,
	}
}

// WithMessageID replaces the message id used for idempotency.
func (e Envelope[T]) WithMessageID(messageID string) Envelope[T] {
	e.MessageID = messageID
	return e
}

// WithTraceID adds a trace ID to the envelope for distributed tracing.
func (e Envelope[T]) WithTraceID(traceID string) Envelope[T] {
	e.TraceID = traceID
	return e
}

// IncrementRetries increments the retry count in the meta field.
func (e Envelope[T]) IncrementRetries() Envelope[T] {
	e.Meta.Retries++
	return e
}
