package models

import "time"

// Event types
const (
	EventTypeOrderCreated       = "ORDER_CREATED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeReviewCreated      = "REVIEW_CREATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when an order is placed
type OrderCreatedEvent struct {
	BaseEvent
	OrderID int64           `json:"order_id"`
	BuyerID int64           `json:"buyer_id"`
	Total   float64         `json:"total"`
	Items   []OrderItemData `json:"items"`
}

// OrderStatusChangedEvent published when an order moves to a new status
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID    int64       `json:"order_id"`
	From       OrderStatus `json:"from"`
	To         OrderStatus `json:"to"`
	Reviewable bool        `json:"reviewable"`
}

// ReviewCreatedEvent published when a review is posted
type ReviewCreatedEvent struct {
	BaseEvent
	ReviewID  int64 `json:"review_id"`
	ProductID int64 `json:"product_id"`
	BuyerID   int64 `json:"buyer_id"`
	Rating    int   `json:"rating"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}
