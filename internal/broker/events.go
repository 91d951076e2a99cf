package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"shoestore/internal/models"
	"shoestore/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing order domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func orderKey(orderID int64) string {
	return fmt.Sprintf("order-%d", orderID)
}

// PublishOrderPlaced publishes OrderPlaced event
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderStatusChanged publishes OrderStatusChanged event
func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishDeliveryDateChanged publishes OrderDeliveryDateChanged event
func (ep *EventPublisher) PublishDeliveryDateChanged(ctx context.Context, event *models.OrderDeliveryDateChangedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// OrderEventFunc receives a decoded envelope plus the raw event body
type OrderEventFunc func(ctx context.Context, env models.OrderEventEnvelope, raw []byte) error

// EventHandler routes incoming order events by type
type EventHandler struct {
	handlers map[string]OrderEventFunc
	logger   *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{
		handlers: make(map[string]OrderEventFunc),
		logger:   util.Named("broker.handler"),
	}
}

// On registers a handler for one event type
func (eh *EventHandler) On(eventType string, fn OrderEventFunc) {
	eh.handlers[eventType] = fn
}

// HandleMessage routes messages to appropriate handlers. Unknown and
// undecodable events are logged and acknowledged.
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var env models.OrderEventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		eh.logger.Error("Dropping undecodable event", zap.Error(err), zap.ByteString("key", msg.Key))
		return nil
	}

	fn, ok := eh.handlers[env.EventType]
	if !ok {
		eh.logger.Debug("Unhandled event type", zap.String("type", env.EventType))
		return nil
	}

	eh.logger.Debug("Handling event", zap.String("type", env.EventType), zap.String("id", env.EventID))
	return fn(ctx, env, msg.Value)
}
