package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

// fakeReader replays msgs, then blocks until ctx is done.
type fakeReader struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	err := r.err
	r.mu.Unlock()
	if err != nil {
		return kafka.Message{}, err
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) Close() error { return nil }

func TestNewKafkaProducer(t *testing.T) {
	producer := NewKafkaProducer([]string{"localhost:9092"})
	require.NotNil(t, producer)
	require.NotNil(t, producer.w)
	assert.Equal(t, DefaultSource, producer.source)
	assert.NoError(t, producer.Close())
}

func TestProducerPublish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{w: w, source: "test"}

	err := p.Publish(context.Background(), RecordChanged{ID: "9", Name: "Ken", Op: OpDeleted})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, EmployeeDeleted, msg.Topic)
	assert.Equal(t, "9", string(msg.Key))

	env, err := Decode(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, "test", env.Meta.Source)
	assert.Equal(t, InitiatorUser, env.Meta.Initiator)

	v, ok := Header(msg.Headers, "message_id")
	assert.True(t, ok)
	assert.Equal(t, env.MessageID, v)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducerPublishRejects(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{w: w, source: "test"}

	err := p.Publish(context.Background(), RecordChanged{ID: "9", Op: "renamed"})
	assert.ErrorIs(t, err, ErrUnknownOp)

	err = p.Publish(context.Background(), RecordChanged{Op: OpCreated})
	assert.ErrorContains(t, err, "invalid payload")
	assert.Empty(t, w.msgs)
}

func TestProducerWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaProducer{w: &fakeWriter{err: boom}, source: "test"}

	err := p.Publish(context.Background(), RecordChanged{ID: "1", Op: OpCreated})
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "write employee.created")
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), RecordChanged{}))
}

func TestNewKafkaConsumer(t *testing.T) {
	consumer := NewKafkaConsumer([]string{"localhost:9092"}, "staffctl-test")
	require.NotNil(t, consumer)
	require.NotNil(t, consumer.reader)
	assert.NoError(t, consumer.Close())
	assert.NoError(t, (&KafkaConsumer{}).Close())
}

func TestConsumerRun(t *testing.T) {
	good, err := MarshalEnvelope(validEnvelope())
	require.NoError(t, err)

	r := &fakeReader{msgs: []kafka.Message{
		{Topic: EmployeeUpdated, Value: []byte("garbage")},
		{Topic: EmployeeUpdated, Value: good},
		{Topic: EmployeeUpdated, Value: good},
	}}
	kc := &KafkaConsumer{reader: r}

	ctx, cancel := context.WithCancel(context.Background())
	var got []RecordChanged
	h := HandlerFunc(func(_ context.Context, e Envelope[RecordChanged]) error {
		got = append(got, e.Payload)
		if len(got) == 2 {
			cancel()
		}
		return errors.New("handler errors are logged, not fatal")
	})

	require.NoError(t, kc.Run(ctx, h))
	assert.Len(t, got, 2)
	assert.Equal(t, "42", got[0].ID)
}

func TestConsumerRunReaderError(t *testing.T) {
	boom := errors.New("group coordinator gone")
	kc := &KafkaConsumer{reader: &fakeReader{err: boom}}

	err := kc.Run(context.Background(), HandlerFunc(func(context.Context, Envelope[RecordChanged]) error {
		return nil
	}))
	assert.ErrorIs(t, err, boom)
}
