package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"commerce-service/internal/apperr"
	"commerce-service/internal/models"

	"github.com/lib/pq"
)

// Name of the partial unique index enforcing at most one PENDING/DONE
// order per (user, product) pair. See migrations/schema.sql.
const activeOrderIdx = "orders_active_user_product_idx"

const pqUniqueViolation = "23505"

// PlaceOrder conditionally decrements product stock and inserts the
// order as PENDING in one transaction. A failure at either step leaves
// no partial state: insufficient stock returns ErrInsufficientStock
// with nothing written, and an insert conflict on the active-order
// index rolls the stock decrement back and returns ErrDuplicateOrder.
// An order_no collision is surfaced as a plain error, never retried.
func (s *Store) PlaceOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rows, err := decreaseStockTx(ctx, tx, order.ProductID, order.Quantity)
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.ErrInsufficientStock
	}

	query := `
		INSERT INTO orders (order_no, user_id, product_id, quantity, total_price, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRowxContext(ctx, query,
		order.OrderNo, order.UserID, order.ProductID,
		order.Quantity, order.TotalPrice, order.Status).
		Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			if pqErr.Constraint == activeOrderIdx {
				return apperr.ErrDuplicateOrder
			}
			return fmt.Errorf("order number collision for %s: %w", order.OrderNo, err)
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return tx.Commit()
}

// HasActiveOrder reports whether the user already has a PENDING or DONE
// order for the product. The partial unique index remains the authority
// under concurrency; this pre-check only gives a cleaner error before
// stock is touched.
func (s *Store) HasActiveOrder(ctx context.Context, userID, productID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM orders
			WHERE user_id = $1 AND product_id = $2 AND status IN ($3, $4)
		)`,
		userID, productID, models.OrderStatusPending, models.OrderStatusDone)
	return exists, err
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByNo retrieves an order by its external order number
func (s *Store) GetOrderByNo(ctx context.Context, orderNo string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE order_no = $1", orderNo)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByUserID retrieves orders for a user
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// MarkOrderPaid transitions PENDING -> DONE and stamps paid_at. The
// update is gated on the exact prior state so a second concurrent
// callback cannot apply it twice. Returns affected rows.
func (s *Store) MarkOrderPaid(ctx context.Context, orderID int64, paidAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, paid_at = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4`,
		models.OrderStatusDone, paidAt, orderID, models.OrderStatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to mark order paid: %w", err)
	}
	return res.RowsAffected()
}

// MarkOrderFailed transitions PENDING -> FAILED. Returns affected rows
// so the caller knows whether it won the transition and owes the stock
// restore.
func (s *Store) MarkOrderFailed(ctx context.Context, orderID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		models.OrderStatusFailed, orderID, models.OrderStatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to mark order failed: %w", err)
	}
	return res.RowsAffected()
}

// RequestRefund transitions DONE -> REFUND_REQUESTED iff the order
// belongs to userID and was paid at or after the window cutoff. A
// single conditional update, so two concurrent refund requests see at
// most one success. Returns affected rows; the caller classifies a 0
// result by re-reading the order.
func (s *Store) RequestRefund(ctx context.Context, orderID, userID int64, reason string, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, refund_reason = $2, updated_at = NOW()
		WHERE id = $3 AND user_id = $4 AND status = $5 AND paid_at >= $6`,
		models.OrderStatusRefundRequested, reason, orderID, userID,
		models.OrderStatusDone, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to request refund: %w", err)
	}
	return res.RowsAffected()
}
