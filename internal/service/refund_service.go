package service

import (
	"context"
	"time"

	"commerce-service/internal/apperr"
	"commerce-service/internal/broker"
	"commerce-service/internal/models"
	"commerce-service/internal/store"
	"commerce-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RefundService transitions paid orders to REFUND_REQUESTED within the
// eligibility window.
type RefundService struct {
	store          *store.Store
	eventPublisher *broker.EventPublisher
	windowDays     int
	logger         *zap.Logger
}

// NewRefundService creates a new refund service
func NewRefundService(store *store.Store, eventPublisher *broker.EventPublisher, windowDays int) *RefundService {
	return &RefundService{
		store:          store,
		eventPublisher: eventPublisher,
		windowDays:     windowDays,
		logger:         util.GetLogger(),
	}
}

// RequestRefund applies DONE -> REFUND_REQUESTED through a single
// conditional update, so concurrent requests for the same order see at
// most one success. A 0-row result is classified by one follow-up read
// of the order; that read is diagnostic only and never gates the
// transition itself.
func (rs *RefundService) RequestRefund(ctx context.Context, orderID, userID int64, reason string, now time.Time) error {
	ctx, span := util.StartSpan(ctx, "RefundService.RequestRefund")
	defer span.End()

	cutoff := refundCutoff(now, rs.windowDays)

	rows, err := rs.store.RequestRefund(ctx, orderID, userID, reason, cutoff)
	if err != nil {
		return err
	}

	if rows == 0 {
		reject := rs.classifyRejection(ctx, orderID, userID, cutoff)
		util.RefundsRejectedTotal.WithLabelValues(rejectionLabel(reject)).Inc()
		return reject
	}

	util.RefundsRequestedTotal.Inc()
	rs.logger.Info("Refund requested",
		zap.Int64("order_id", orderID),
		zap.Int64("user_id", userID))

	order, err := rs.store.GetOrderByID(ctx, orderID)
	if err != nil {
		rs.logger.Error("Failed to load order for refund event", zap.Error(err))
		return nil
	}

	event := &models.RefundRequestedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeRefundRequested,
			Timestamp: now,
		},
		OrderID: order.ID,
		OrderNo: order.OrderNo,
		UserID:  order.UserID,
		Reason:  reason,
	}
	if err := rs.eventPublisher.PublishRefundRequested(ctx, event); err != nil {
		rs.logger.Error("Failed to publish RefundRequested event", zap.Error(err))
	}

	return nil
}

// classifyRejection explains a 0-row refund update for the caller.
func (rs *RefundService) classifyRejection(ctx context.Context, orderID, userID int64, cutoff time.Time) error {
	order, err := rs.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	return classifyRefundRejection(order, userID, cutoff)
}

// refundCutoff returns the earliest paid_at still eligible for a
// refund. The boundary is inclusive: an order paid exactly windowDays
// ago is still refundable.
func refundCutoff(now time.Time, windowDays int) time.Time {
	return now.Add(-time.Duration(windowDays) * 24 * time.Hour)
}

// classifyRefundRejection maps the current order state to the refusal
// the conditional update could not distinguish.
func classifyRefundRejection(order *models.Order, userID int64, cutoff time.Time) error {
	if order.UserID != userID {
		return apperr.ErrNotOwner
	}
	if order.Status == models.OrderStatusDone {
		if order.PaidAt.Valid && order.PaidAt.Time.Before(cutoff) {
			return apperr.ErrWindowExpired
		}
		// DONE, owned, inside the window: another request won the
		// transition between our update and this read.
		return apperr.ErrNotRefundable
	}
	return apperr.ErrNotRefundable
}

func rejectionLabel(err error) string {
	switch err {
	case apperr.ErrNotOwner:
		return "not_owner"
	case apperr.ErrWindowExpired:
		return "window_expired"
	case apperr.ErrNotRefundable:
		return "not_refundable"
	case apperr.ErrOrderNotFound:
		return "order_not_found"
	default:
		return "error"
	}
}
