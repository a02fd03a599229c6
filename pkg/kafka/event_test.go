package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventAndRoundTrip(t *testing.T) {
	evt, err := NewEvent("product.updated", "p1", "product", "product-service", map[string]string{
		"id":        "p1",
		"tenant_id": "t1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, evt.EventID)
	assert.Equal(t, "product.updated", evt.EventType)
	assert.Equal(t, "p1", evt.AggregateID)

	raw, err := evt.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, evt.EventID, decoded.EventID)

	var payload map[string]string
	require.NoError(t, decoded.UnmarshalData(&payload))
	assert.Equal(t, "t1", payload["tenant_id"])
}

func TestUnmarshalEvent_Invalid(t *testing.T) {
	_, err := UnmarshalEvent([]byte("not json"))
	assert.Error(t, err)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "openshop.product.created", Topic("product", "created"))
	assert.Equal(t, "openshop.interaction.recorded", Topic("interaction", "recorded"))
}
