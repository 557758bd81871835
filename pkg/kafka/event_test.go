package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopic(t *testing.T) {
	assert.Equal(t, "storefront.cart.changed", Topic("cart", "changed"))
	assert.Equal(t, "storefront.cart.cleared", Topic("cart", "cleared"))
}

type cartChangedPayload struct {
	CustomerRef string `json:"customer_ref"`
	ItemCount   int    `json:"item_count"`
}

func TestNewEvent(t *testing.T) {
	event, err := NewEvent("cart.changed", "customer-1", "cart", "storefront",
		cartChangedPayload{CustomerRef: "customer-1", ItemCount: 3})
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "cart.changed", event.EventType)
	assert.Equal(t, "customer-1", event.AggregateID)
	assert.Equal(t, "cart", event.AggregateType)
	assert.Equal(t, "storefront", event.Source)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, time.Second)
	assert.Empty(t, event.CorrelationID)
}

func TestNewEvent_UnmarshalableDataFails(t *testing.T) {
	_, err := NewEvent("cart.changed", "customer-1", "cart", "storefront", make(chan int))
	require.Error(t, err)
}

func TestEvent_WithCorrelationID(t *testing.T) {
	event, err := NewEvent("cart.changed", "customer-1", "cart", "storefront", nil)
	require.NoError(t, err)

	event.WithCorrelationID("corr-123")
	assert.Equal(t, "corr-123", event.CorrelationID)
}

func TestEvent_MarshalRoundTrip(t *testing.T) {
	original, err := NewEvent("cart.changed", "customer-1", "cart", "storefront",
		cartChangedPayload{CustomerRef: "customer-1", ItemCount: 2})
	require.NoError(t, err)
	original.WithCorrelationID("corr-1")

	raw, err := original.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, original.EventID, decoded.EventID)
	assert.Equal(t, original.EventType, decoded.EventType)
	assert.Equal(t, "corr-1", decoded.CorrelationID)

	var payload cartChangedPayload
	require.NoError(t, decoded.UnmarshalData(&payload))
	assert.Equal(t, 2, payload.ItemCount)
}

func TestUnmarshalEvent_MalformedJSON(t *testing.T) {
	_, err := UnmarshalEvent([]byte("{not json"))
	require.Error(t, err)
}

func TestDefaultProducerConfig(t *testing.T) {
	cfg := DefaultProducerConfig([]string{"localhost:9092"})
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 10*time.Millisecond, cfg.BatchTimeout)
}

func TestPingBrokers_NoBrokersConfigured(t *testing.T) {
	err := PingBrokers(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers configured")
}
