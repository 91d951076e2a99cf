package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"shoestore/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleMessageRoutesByType(t *testing.T) {
	eh := NewEventHandler()

	var got models.OrderEventEnvelope
	var raw []byte
	eh.On(models.EventTypeOrderPlaced, func(ctx context.Context, env models.OrderEventEnvelope, body []byte) error {
		got, raw = env, body
		return nil
	})

	event := models.OrderPlacedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeOrderPlaced, time.Now()),
		OrderID:   42,
		Quantity:  1,
	}
	body, err := json.Marshal(event)
	require.NoError(t, err)

	require.NoError(t, eh.HandleMessage(context.Background(), kafka.Message{Value: body}))
	assert.Equal(t, int64(42), got.OrderID)
	assert.Equal(t, event.EventID, got.EventID)
	assert.Equal(t, body, raw)
}

func TestHandleMessagePropagatesHandlerError(t *testing.T) {
	eh := NewEventHandler()
	boom := errors.New("db down")
	eh.On(models.EventTypeOrderStatusChanged, func(context.Context, models.OrderEventEnvelope, []byte) error {
		return boom
	})

	body, err := json.Marshal(models.OrderStatusChangedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeOrderStatusChanged, time.Now()),
		OrderID:   3,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, eh.HandleMessage(context.Background(), kafka.Message{Value: body}), boom)
}

func TestHandleMessageIgnoresUnknownAndGarbage(t *testing.T) {
	eh := NewEventHandler()

	assert.NoError(t, eh.HandleMessage(context.Background(), kafka.Message{Value: []byte(`{"event_type":"SOMETHING_ELSE"}`)}))
	assert.NoError(t, eh.HandleMessage(context.Background(), kafka.Message{Value: []byte(`not json`)}))
}
