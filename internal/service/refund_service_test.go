package service

import (
	"database/sql"
	"testing"
	"time"

	"commerce-service/internal/apperr"
	"commerce-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func paidOrder(userID int64, paidAt time.Time) *models.Order {
	return &models.Order{
		ID:        1,
		UserID:    userID,
		ProductID: 10,
		Status:    models.OrderStatusDone,
		PaidAt:    sql.NullTime{Time: paidAt, Valid: true},
	}
}

func TestRefundCutoffInclusiveBoundary(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	cutoff := refundCutoff(now, 7)

	assert.Equal(t, now.Add(-7*24*time.Hour), cutoff)

	// Paid exactly seven days ago: still eligible.
	exactly := now.Add(-7 * 24 * time.Hour)
	assert.False(t, exactly.Before(cutoff))

	// One second beyond: expired.
	beyond := now.Add(-7*24*time.Hour - time.Second)
	assert.True(t, beyond.Before(cutoff))
}

func TestClassifyRefundRejection(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	cutoff := refundCutoff(now, 7)

	t.Run("not owner", func(t *testing.T) {
		order := paidOrder(42, now.Add(-24*time.Hour))
		err := classifyRefundRejection(order, 99, cutoff)
		assert.ErrorIs(t, err, apperr.ErrNotOwner)
	})

	t.Run("window expired", func(t *testing.T) {
		order := paidOrder(42, now.Add(-8*24*time.Hour))
		err := classifyRefundRejection(order, 42, cutoff)
		assert.ErrorIs(t, err, apperr.ErrWindowExpired)
	})

	t.Run("pending order not refundable", func(t *testing.T) {
		order := paidOrder(42, now.Add(-24*time.Hour))
		order.Status = models.OrderStatusPending
		err := classifyRefundRejection(order, 42, cutoff)
		assert.ErrorIs(t, err, apperr.ErrNotRefundable)
	})

	t.Run("already refund requested", func(t *testing.T) {
		order := paidOrder(42, now.Add(-24*time.Hour))
		order.Status = models.OrderStatusRefundRequested
		err := classifyRefundRejection(order, 42, cutoff)
		assert.ErrorIs(t, err, apperr.ErrNotRefundable)
	})

	t.Run("owner check wins over state", func(t *testing.T) {
		order := paidOrder(42, now.Add(-8*24*time.Hour))
		err := classifyRefundRejection(order, 99, cutoff)
		assert.ErrorIs(t, err, apperr.ErrNotOwner)
	})
}

func TestRejectionLabel(t *testing.T) {
	assert.Equal(t, "not_owner", rejectionLabel(apperr.ErrNotOwner))
	assert.Equal(t, "window_expired", rejectionLabel(apperr.ErrWindowExpired))
	assert.Equal(t, "not_refundable", rejectionLabel(apperr.ErrNotRefundable))
	assert.Equal(t, "order_not_found", rejectionLabel(apperr.ErrOrderNotFound))
	assert.Equal(t, "error", rejectionLabel(assert.AnError))
}
