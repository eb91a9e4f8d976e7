package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"commerce-service/internal/apperr"
	"commerce-service/internal/broker"
	"commerce-service/internal/models"
	"commerce-service/internal/redisclient"
	"commerce-service/internal/store"
	"commerce-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentService processes asynchronous payment-approval callbacks from
// the gateway. Callers are unauthenticated by this system, so payload
// validation and idempotency are mandatory here, not optional.
type PaymentService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(store *store.Store, redis *redisclient.Client, eventPublisher *broker.EventPublisher) *PaymentService {
	return &PaymentService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// CallbackPayload is the gateway's payment-completion notification.
// Card fields are stored verbatim.
type CallbackPayload struct {
	OrderNo    string    `json:"order_no" binding:"required"`
	PaymentKey string    `json:"payment_key" binding:"required"`
	Amount     int64     `json:"amount" binding:"required"`
	Method     string    `json:"method"`
	CardIssuer string    `json:"card_issuer"`
	CardNumber string    `json:"card_number"`
	ApprovedAt time.Time `json:"approved_at"`
}

// ProcessApproval validates the callback against its order and applies
// the PENDING -> DONE transition exactly once. Redelivered callbacks
// are acknowledged as success without re-applying side effects; an
// amount mismatch fails the order and restores its stock.
func (ps *PaymentService) ProcessApproval(ctx context.Context, payload *CallbackPayload) error {
	ctx, span := util.StartSpan(ctx, "PaymentService.ProcessApproval")
	defer span.End()

	firstSeen, err := ps.redis.MarkCallbackSeen(ctx, payload.PaymentKey, 24*time.Hour)
	if err != nil {
		ps.logger.Warn("Callback dedup check unavailable", zap.Error(err))
	} else if !firstSeen {
		util.CallbacksDuplicateTotal.Inc()
	}

	order, err := ps.store.GetOrderByNo(ctx, payload.OrderNo)
	if err != nil {
		util.CallbacksRejectedTotal.WithLabelValues("order_not_found").Inc()
		return err
	}

	switch order.Status {
	case models.OrderStatusDone:
		// Gateways redeliver; the order already reached its terminal
		// paid state, so acknowledge without side effects.
		ps.logger.Info("Duplicate callback for paid order",
			zap.String("order_no", order.OrderNo))
		return nil
	case models.OrderStatusPending:
	default:
		util.CallbacksRejectedTotal.WithLabelValues("not_payable").Inc()
		return fmt.Errorf("%w: status=%s", apperr.ErrOrderNotPayable, order.Status)
	}

	if payload.Amount != order.TotalPrice {
		ps.failOrder(ctx, order, "amount_mismatch")
		util.CallbacksRejectedTotal.WithLabelValues("amount_mismatch").Inc()
		return fmt.Errorf("%w: declared=%d total=%d",
			apperr.ErrAmountMismatch, payload.Amount, order.TotalPrice)
	}

	approvedAt := payload.ApprovedAt
	if approvedAt.IsZero() {
		approvedAt = time.Now()
	}

	payment := &models.Payment{
		OrderID:    order.ID,
		Method:     payload.Method,
		PaymentKey: payload.PaymentKey,
		Amount:     payload.Amount,
		Status:     models.PaymentStatusApproved,
		CardIssuer: payload.CardIssuer,
		CardNumber: payload.CardNumber,
		ApprovedAt: approvedAt,
	}

	if err := ps.store.CreatePayment(ctx, payment); err != nil {
		if errors.Is(err, apperr.ErrDuplicatePayment) {
			// Lost the insert race to a concurrent delivery of the
			// same callback; that worker owns the DONE transition.
			util.CallbacksDuplicateTotal.Inc()
			return nil
		}
		return err
	}

	rows, err := ps.store.MarkOrderPaid(ctx, order.ID, approvedAt)
	if err != nil {
		return err
	}
	if rows == 0 {
		ps.logger.Warn("Order left PENDING before payment could apply",
			zap.Int64("order_id", order.ID))
		return nil
	}

	util.OrdersPaidTotal.Inc()
	ps.logger.Info("Order paid",
		zap.Int64("order_id", order.ID),
		zap.String("order_no", order.OrderNo),
		zap.String("payment_key", payload.PaymentKey))

	event := &models.OrderPaidEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPaid,
			Timestamp: time.Now(),
		},
		OrderID:    order.ID,
		OrderNo:    order.OrderNo,
		PaymentKey: payload.PaymentKey,
		Amount:     payload.Amount,
	}
	if err := ps.eventPublisher.PublishOrderPaid(ctx, event); err != nil {
		ps.logger.Error("Failed to publish OrderPaid event", zap.Error(err))
	}

	return nil
}

// failOrder applies PENDING -> FAILED and restores stock. The
// conditional update decides which caller owes the restore when
// callbacks race.
func (ps *PaymentService) failOrder(ctx context.Context, order *models.Order, reason string) {
	rows, err := ps.store.MarkOrderFailed(ctx, order.ID)
	if err != nil {
		ps.logger.Error("Failed to mark order failed",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
		return
	}
	if rows == 0 {
		return
	}

	if err := ps.store.IncreaseStock(ctx, order.ProductID, order.Quantity); err != nil {
		ps.logger.Error("Failed to restore stock for failed order",
			zap.Int64("order_id", order.ID),
			zap.Int64("product_id", order.ProductID),
			zap.Error(err))
	}

	event := &models.OrderFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderFailed,
			Timestamp: time.Now(),
		},
		OrderID:   order.ID,
		OrderNo:   order.OrderNo,
		ProductID: order.ProductID,
		Quantity:  order.Quantity,
		Reason:    reason,
	}
	if err := ps.eventPublisher.PublishOrderFailed(ctx, event); err != nil {
		ps.logger.Error("Failed to publish OrderFailed event", zap.Error(err))
	}
}

// GetPayment retrieves the payment for an order
func (ps *PaymentService) GetPayment(ctx context.Context, orderID int64) (*models.Payment, error) {
	return ps.store.GetPaymentByOrderID(ctx, orderID)
}
