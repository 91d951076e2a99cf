package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventTypeOrderPlaced              = "ORDER_PLACED"
	EventTypeOrderStatusChanged       = "ORDER_STATUS_CHANGED"
	EventTypeOrderDeliveryDateChanged = "ORDER_DELIVERY_DATE_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBaseEvent stamps a fresh event id and time
func NewBaseEvent(eventType string, at time.Time) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: at,
	}
}

// OrderPlacedEvent published after an order commits
type OrderPlacedEvent struct {
	BaseEvent
	OrderID      int64     `json:"order_id"`
	UserID       int64     `json:"user_id"`
	ProductID    int64     `json:"product_id"`
	Quantity     int       `json:"quantity"`
	PickupCode   int       `json:"pickup_code"`
	StatusName   string    `json:"status_name"`
	DeliveryDate time.Time `json:"delivery_date"`
}

// OrderStatusChangedEvent published when staff moves an order to a new status
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID    int64  `json:"order_id"`
	StatusID   int64  `json:"status_id"`
	StatusName string `json:"status_name"`
	ChangedBy  string `json:"changed_by"`
}

// OrderDeliveryDateChangedEvent published when staff reschedules delivery
type OrderDeliveryDateChangedEvent struct {
	BaseEvent
	OrderID      int64     `json:"order_id"`
	DeliveryDate time.Time `json:"delivery_date"`
	ChangedBy    string    `json:"changed_by"`
}

// OrderEventEnvelope decodes the fields shared by every order event
type OrderEventEnvelope struct {
	BaseEvent
	OrderID int64 `json:"order_id"`
}
