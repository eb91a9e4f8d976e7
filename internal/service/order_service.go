package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

// OrderService handles order placement
type OrderService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	gateway        *GatewayClient
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	gateway *GatewayClient,
) *OrderService {
	return &OrderService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		gateway:        gateway,
		logger:         util.GetLogger(),
	}
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// CreateOrderResponse represents the response after creating an order.
// CheckoutURL and PayToken are empty when the gateway was unreachable;
// the order itself is still created and stays PENDING.
type CreateOrderResponse struct {
	OrderID     int64  `json:"order_id"`
	OrderNo     string `json:"order_no"`
	Status      string `json:"status"`
	CheckoutURL string `json:"checkout_url,omitempty"`
	PayToken    string `json:"pay_token,omitempty"`
}

// CreateOrder places an order: duplicate check, transactional stock
// decrement plus PENDING insert, then gateway checkout registration.
// The gateway call happens after the transaction commits, so a gateway
// failure surfaces as ErrGatewayUnavailable with the order already
// persisted.
func (s *OrderService) CreateOrder(ctx context.Context, userID int64, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if req.Quantity <= 0 {
		util.OrdersFailedTotal.WithLabelValues("invalid_quantity").Inc()
		return nil, apperr.ErrInvalidQuantity
	}

	product, err := s.store.GetProductByID(ctx, req.ProductID)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("product_not_found").Inc()
		return nil, err
	}

	exists, err := s.store.HasActiveOrder(ctx, userID, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active orders: %w", err)
	}
	if exists {
		util.OrdersFailedTotal.WithLabelValues("duplicate").Inc()
		return nil, apperr.ErrDuplicateOrder
	}

	// Fast-path gate on the Redis snapshot. A warm snapshot showing
	// insufficient stock sheds the request before the database round
	// trip; the conditional update below remains the authority.
	taken, err := s.redis.TakeStock(ctx, req.ProductID, req.Quantity)
	if err != nil {
		s.logger.Warn("Stock snapshot unavailable, continuing to DB",
			zap.Int64("product_id", req.ProductID),
			zap.Error(err))
		taken = true
	}
	if !taken {
		util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
		return nil, apperr.ErrInsufficientStock
	}

	order := &models.Order{
		OrderNo:    newOrderNo(),
		UserID:     userID,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		TotalPrice: product.Price * int64(req.Quantity),
		Status:     models.OrderStatusPending,
	}

	start := time.Now()
	err = s.store.PlaceOrder(ctx, order)
	util.StockDecrementLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		s.returnSnapshot(req.ProductID, req.Quantity)
		switch {
		case errors.Is(err, apperr.ErrInsufficientStock):
			util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
		case errors.Is(err, apperr.ErrDuplicateOrder):
			util.OrdersFailedTotal.WithLabelValues("duplicate").Inc()
		default:
			util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		}
		return nil, err
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_no", order.OrderNo),
		zap.Int64("user_id", userID))

	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCreated,
			Timestamp: time.Now(),
		},
		OrderID:    order.ID,
		OrderNo:    order.OrderNo,
		UserID:     order.UserID,
		ProductID:  order.ProductID,
		Quantity:   order.Quantity,
		TotalPrice: order.TotalPrice,
	}
	if err := s.eventPublisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	resp := &CreateOrderResponse{
		OrderID: order.ID,
		OrderNo: order.OrderNo,
		Status:  order.Status,
	}

	session, err := s.gateway.RequestCheckout(ctx, order.OrderNo, order.TotalPrice, product.Name)
	if err != nil {
		s.logger.Error("Checkout registration failed, order stays PENDING",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
		return resp, err
	}

	resp.CheckoutURL = session.CheckoutURL
	resp.PayToken = session.PayToken
	return resp, nil
}

// returnSnapshot gives the fast-path reservation back after the
// database rejected the order.
func (s *OrderService) returnSnapshot(productID int64, quantity int) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.redis.ReturnStock(ctx, productID, quantity); err != nil {
		s.logger.Warn("Failed to return stock snapshot",
			zap.Int64("product_id", productID),
			zap.Error(err))
	}
}

// GetOrder retrieves an order by ID
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	return s.store.GetOrderByID(ctx, orderID)
}

// ListOrders retrieves the user's orders, newest first
func (s *OrderService) ListOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	return s.store.GetOrdersByUserID(ctx, userID)
}

// GetProduct retrieves a visible product by ID
func (s *OrderService) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	return s.store.GetProductByID(ctx, productID)
}

// GetProducts retrieves all visible products
func (s *OrderService) GetProducts(ctx context.Context) ([]models.Product, error) {
	return s.store.GetProducts(ctx)
}

// SyncStockToRedis seeds the Redis stock snapshot from the database
func (s *OrderService) SyncStockToRedis(ctx context.Context) error {
	products, err := s.store.GetProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to get products: %w", err)
	}

	for _, product := range products {
		if err := s.redis.SetStock(ctx, product.ID, product.Stock); err != nil {
			s.logger.Error("Failed to seed stock snapshot",
				zap.Int64("product_id", product.ID),
				zap.Error(err))
		}
	}

	s.logger.Info("Stock snapshot seeded", zap.Int("count", len(products)))
	return nil
}

// newOrderNo generates a globally unique, opaque order number. The
// orders.order_no unique index backs the uniqueness contract; a
// collision there is an integrity failure, not something to retry.
func newOrderNo() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
}
