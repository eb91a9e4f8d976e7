package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"commerce-service/internal/apperr"
	"commerce-service/internal/models"

	"github.com/lib/pq"
)

// CreatePayment inserts the payment record for an order. The unique
// constraint on order_id is the idempotency mechanism for redelivered
// callbacks: a conflicting insert returns ErrDuplicatePayment and the
// caller treats the callback as already processed.
func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (order_id, method, payment_key, amount, status, card_issuer, card_number, approved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := s.db.QueryRowxContext(ctx, query,
		payment.OrderID, payment.Method, payment.PaymentKey, payment.Amount,
		payment.Status, payment.CardIssuer, payment.CardNumber, payment.ApprovedAt).
		Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return apperr.ErrDuplicatePayment
		}
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// GetPaymentByOrderID retrieves the payment for an order
func (s *Store) GetPaymentByOrderID(ctx context.Context, orderID int64) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment,
		"SELECT * FROM payments WHERE order_id = $1", orderID)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
