package events

import (
	"strconv"

	"github.com/segmentio/kafka-go"
)

// KafkaHeaders mirrors the envelope routing fields as Kafka headers so that
// consumers can filter without decoding the value.
func (e Envelope[T]) KafkaHeaders() []kafka.Header {
	headers := []kafka.Header{
		{Key: "key", Value: []byte(e.Key)},
		{Key: "event_type", Value: []byte(e.Type)},
		{Key: "source", Value: []byte(e.Meta.Source)},
		{Key: "initiator", Value: []byte(string(e.Meta.Initiator))},
		{Key: "schema_version", Value: []byte(e.Meta.SchemaVersion)},
		{Key: "retries", Value: []byte(strconv.Itoa(e.Meta.Retries))},
	}

	if e.MessageID != "" {
		headers = append(headers, kafka.Header{Key: "message_id", Value: []byte(e.MessageID)})
	}

	if e.TraceID != "" {
		headers = append(headers, kafka.Header{Key: "trace_id", Value: []byte(e.TraceID)})
	}

	return headers
}

// Header returns the value of the first header named key.
func Header(headers []kafka.Header, key string) (string, bool) {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}
