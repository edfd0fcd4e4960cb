package events

import (
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventMessageRoundTrip(t *testing.T) {
	orgID := uuid.New()
	ev, err := New(PaymentRecorded, orgID, "obl-1", "user-1", "Payment of 100.00 recorded",
		map[string]string{"amount": "100.00"})
	require.NoError(t, err)

	msg, err := ev.Message("property-events")
	require.NoError(t, err)
	assert.Equal(t, orgID.String(), string(msg.Key))
	assert.Equal(t, "property-events", msg.Topic)
	assert.Equal(t, "payment.recorded", string(msg.Headers[0].Value))

	got, err := Decode(msg)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, PaymentRecorded, got.Type)
	assert.JSONEq(t, `{"amount":"100.00"}`, string(got.Payload))
}

func TestDecodeRejectsIncompleteEvents(t *testing.T) {
	_, err := Decode(kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)

	_, err = Decode(kafka.Message{Value: []byte(`{"type":"tenancy.created"}`)})
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	orgID := uuid.New()

	for _, typ := range []Type{TenancyCreated, PaymentRecorded} {
		ev, err := New(typ, orgID, "x", "", "", nil)
		require.NoError(t, err)
		require.NoError(t, r.Publish(ev))
	}

	assert.Equal(t, []Type{TenancyCreated, PaymentRecorded}, r.Types())
	assert.Nil(t, r.Events()[0].Payload)
}
