package models

import "time"

// Event types
const (
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent is published after an order and its items have committed.
type OrderPlacedEvent struct {
	BaseEvent
	OrderID       int64           `json:"order_id"`
	UserID        int64           `json:"user_id"`
	Total         int64           `json:"total"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	Email         string          `json:"email"`
	Items         []OrderItemData `json:"items"`
}

// OrderStatusChangedEvent is published on admin status transitions.
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID    int64  `json:"order_id"`
	UserID     int64  `json:"user_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
}
