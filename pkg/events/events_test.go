package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEnvelope() Envelope[RecordChanged] {
	change := RecordChanged{ID: "42", Name: "Ada", Op: OpUpdated}
	return NewEnvelope(change.ID, change.Topic(), change, NewMeta("test", InitiatorUser))
}

func TestNewEnvelope(t *testing.T) {
	e := validEnvelope()

	assert.NotEmpty(t, e.MessageID)
	assert.Equal(t, "42", e.Key)
	assert.Equal(t, EmployeeUpdated, e.Type)
	assert.Equal(t, SchemaVersionV1, e.Meta.SchemaVersion)
	assert.Zero(t, e.Meta.Retries)
	assert.WithinDuration(t, time.Now().UTC(), e.OccurredAt, time.Second)
}

func TestEnvelopeModifiers(t *testing.T) {
	e := validEnvelope().WithMessageID("m-1").WithTraceID("t-1").IncrementRetries().IncrementRetries()

	assert.Equal(t, "m-1", e.MessageID)
	assert.Equal(t, "t-1", e.TraceID)
	assert.Equal(t, 2, e.Meta.Retries)
}

func TestEnvelopeJSON(t *testing.T) {
	e := validEnvelope()

	data, err := MarshalEnvelope(e)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "employee.updated", raw["type"])
	assert.NotContains(t, raw, "trace_id")
	assert.Equal(t, map[string]any{"id": "42", "name": "Ada", "op": "updated"}, raw["payload"])

	back, err := UnmarshalEnvelope[RecordChanged](data)
	require.NoError(t, err)
	assert.Equal(t, e.Payload, back.Payload)
	assert.True(t, e.OccurredAt.Equal(back.OccurredAt))
}

func TestKafkaHeaders(t *testing.T) {
	e := validEnvelope().WithTraceID("abc")
	headers := e.KafkaHeaders()

	v, ok := Header(headers, "event_type")
	assert.True(t, ok)
	assert.Equal(t, EmployeeUpdated, v)

	v, ok = Header(headers, "trace_id")
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	v, _ = Header(headers, "retries")
	assert.Equal(t, "0", v)

	_, ok = Header(validEnvelope().WithMessageID("").KafkaHeaders(), "message_id")
	assert.False(t, ok)
}

func TestValidateEnvelope(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Envelope[RecordChanged])
		fields []string
	}{
		{"valid", func(*Envelope[RecordChanged]) {}, nil},
		{"missing key", func(e *Envelope[RecordChanged]) { e.Key = "" }, []string{"key"}},
		{"unknown type", func(e *Envelope[RecordChanged]) { e.Type = "employee.renamed" }, []string{"type"}},
		{"missing time and meta", func(e *Envelope[RecordChanged]) {
			e.OccurredAt = time.Time{}
			e.Meta = Meta{}
		}, []string{"occurred_at", "meta.source", "meta.initiator", "meta.schema_version"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEnvelope()
			tt.mutate(&e)

			res := ValidateEnvelope(e)
			assert.Equal(t, len(tt.fields) == 0, res.Valid)

			var fields []string
			for _, ve := range res.Errors {
				fields = append(fields, ve.Field)
			}
			assert.Equal(t, tt.fields, fields)

			if res.Valid {
				assert.NoError(t, res.Err())
			} else {
				assert.Error(t, res.Err())
			}
		})
	}
}

func TestRecordChangedValidate(t *testing.T) {
	tests := []struct {
		name    string
		change  RecordChanged
		wantErr bool
	}{
		{"created", RecordChanged{ID: "1", Op: OpCreated}, false},
		{"deleted without name", RecordChanged{ID: "1", Op: OpDeleted}, false},
		{"missing id", RecordChanged{Op: OpUpdated}, true},
		{"bad op", RecordChanged{ID: "1", Op: "renamed"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.change.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTopicFor(t *testing.T) {
	assert.Equal(t, EmployeeCreated, TopicFor(OpCreated))
	assert.Equal(t, EmployeeUpdated, TopicFor(OpUpdated))
	assert.Equal(t, EmployeeDeleted, TopicFor(OpDeleted))
	assert.Empty(t, TopicFor("renamed"))
	assert.Equal(t, "deleted 7 (Bob)", RecordChanged{ID: "7", Name: "Bob", Op: OpDeleted}.String())
}

func TestDecode(t *testing.T) {
	good, err := MarshalEnvelope(validEnvelope())
	require.NoError(t, err)

	got, err := Decode(good)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Payload.Name)

	mismatched := validEnvelope()
	mismatched.Type = EmployeeDeleted
	data, err := MarshalEnvelope(mismatched)
	require.NoError(t, err)
	_, err = Decode(data)
	assert.ErrorContains(t, err, "does not match")

	badPayload := validEnvelope()
	badPayload.Payload.ID = ""
	data, err = MarshalEnvelope(badPayload)
	require.NoError(t, err)
	_, err = Decode(data)
	assert.ErrorContains(t, err, "RecordChanged validation failed")

	_, err = Decode([]byte("not json"))
	assert.ErrorContains(t, err, "unmarshal envelope")
}
