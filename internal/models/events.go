package models

import "time"

// Event types
const (
	EventTypeOrderCreated    = "ORDER_CREATED"
	EventTypeOrderPaid       = "ORDER_PAID"
	EventTypeOrderFailed     = "ORDER_FAILED"
	EventTypeRefundRequested = "REFUND_REQUESTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when an order is persisted as PENDING
type OrderCreatedEvent struct {
	BaseEvent
	OrderID    int64  `json:"order_id"`
	OrderNo    string `json:"order_no"`
	UserID     int64  `json:"user_id"`
	ProductID  int64  `json:"product_id"`
	Quantity   int    `json:"quantity"`
	TotalPrice int64  `json:"total_price"`
}

// OrderPaidEvent published when a callback transitions an order to DONE
type OrderPaidEvent struct {
	BaseEvent
	OrderID    int64  `json:"order_id"`
	OrderNo    string `json:"order_no"`
	PaymentKey string `json:"payment_key"`
	Amount     int64  `json:"amount"`
}

// OrderFailedEvent published when a callback is rejected and stock is restored
type OrderFailedEvent struct {
	BaseEvent
	OrderID   int64  `json:"order_id"`
	OrderNo   string `json:"order_no"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason"`
}

// RefundRequestedEvent published when an order enters REFUND_REQUESTED
type RefundRequestedEvent struct {
	BaseEvent
	OrderID int64  `json:"order_id"`
	OrderNo string `json:"order_no"`
	UserID  int64  `json:"user_id"`
	Reason  string `json:"reason"`
}
