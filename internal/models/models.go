package models

import (
	"database/sql"
	"time"
)

// Product represents a purchasable event product
type Product struct {
	ID        int64        `db:"id" json:"id"`
	Name      string       `db:"name" json:"name"`
	Price     int64        `db:"price" json:"price"` // minor currency unit
	Stock     int          `db:"stock" json:"stock"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
	DeletedAt sql.NullTime `db:"deleted_at" json:"-"`
}

// Order represents a customer order for a single product
type Order struct {
	ID           int64          `db:"id" json:"id"`
	OrderNo      string         `db:"order_no" json:"order_no"`
	UserID       int64          `db:"user_id" json:"user_id"`
	ProductID    int64          `db:"product_id" json:"product_id"`
	Quantity     int            `db:"quantity" json:"quantity"`
	TotalPrice   int64          `db:"total_price" json:"total_price"`
	Status       string         `db:"status" json:"status"`
	RefundReason sql.NullString `db:"refund_reason" json:"refund_reason,omitempty"`
	PaidAt       sql.NullTime   `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Payment records a gateway-approved payment, one per order.
// Card fields are captured verbatim from the callback payload.
type Payment struct {
	ID         int64     `db:"id" json:"id"`
	OrderID    int64     `db:"order_id" json:"order_id"`
	Method     string    `db:"method" json:"method"`
	PaymentKey string    `db:"payment_key" json:"payment_key"`
	Amount     int64     `db:"amount" json:"amount"`
	Status     string    `db:"status" json:"status"`
	CardIssuer string    `db:"card_issuer" json:"card_issuer,omitempty"`
	CardNumber string    `db:"card_number" json:"card_number,omitempty"`
	ApprovedAt time.Time `db:"approved_at" json:"approved_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Order statuses
const (
	OrderStatusPending         = "PENDING"
	OrderStatusDone            = "DONE"
	OrderStatusFailed          = "FAILED"
	OrderStatusRefundRequested = "REFUND_REQUESTED"
	OrderStatusRefunded        = "REFUNDED"
)

// Payment statuses
const (
	PaymentStatusApproved = "APPROVED"
)
